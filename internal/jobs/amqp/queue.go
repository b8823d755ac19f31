// Package amqp carries mirror jobs over RabbitMQ so the API and the mirror
// worker can run as separate processes.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/logger"
	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the queue uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

// Queue publishes and consumes MirrorJob messages on a durable queue bound to a
// direct exchange. Failed jobs with retries left are published again.
type Queue struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	queueName    string
	consumerTag  string
	store        jobs.JobStore

	mu      sync.Mutex
	wg      sync.WaitGroup
	started bool
	closed  bool
}

// NewQueue dials url and declares the exchange and queue. store records job
// state on this side of the broker and may be nil.
func NewQueue(url, exchangeName, queueName string, store jobs.JobStore) (*Queue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := newQueue(ch, exchangeName, queueName, store)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

func newQueue(ch channel, exchangeName, queueName string, store jobs.JobStore) (*Queue, error) {
	q := &Queue{
		channel:      ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		consumerTag:  "mirror-worker",
		store:        store,
	}
	if err := q.setup(); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return q, nil
}

func (q *Queue) setup() error {
	if err := q.channel.ExchangeDeclare(q.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// The routing key is the queue name.
	if err := q.channel.QueueBind(q.queueName, q.queueName, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishMirror implements the Publisher interface.
func (q *Queue) PublishMirror(ctx context.Context, job *jobs.MirrorJob) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return jobs.ErrQueueClosed
	}

	jobs.Prepare(job, time.Now())

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	return q.publish(ctx, job)
}

func (q *Queue) publish(ctx context.Context, job *jobs.MirrorJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = q.channel.PublishWithContext(ctx, q.exchangeName, q.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    job.JobID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	lg := logger.FromContext(ctx)

	lg.Info().
		Str("job_id", job.JobID).
		Str("target", string(job.Target)).
		Str("queue", q.queueName).
		Msg("Published mirror job")

	return nil
}

// Start implements the Consumer interface. Messages are handled one at a time
// and acknowledged once the job has finished or been republished for a retry.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return jobs.ErrQueueClosed
	}
	if q.started {
		return fmt.Errorf("consumer already started")
	}

	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := q.channel.Consume(q.queueName, q.consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	q.started = true

	q.wg.Add(1)
	go q.consume(ctx, deliveries, handler)

	lg := logger.FromContext(ctx)

	lg.Info().Str("queue", q.queueName).Msg("Started consuming mirror jobs")
	return nil
}

func (q *Queue) consume(ctx context.Context, deliveries <-chan amqp091.Delivery, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			q.handle(ctx, delivery, handler)
		}
	}
}

func (q *Queue) handle(ctx context.Context, delivery amqp091.Delivery, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	var job jobs.MirrorJob
	if err := json.Unmarshal(delivery.Body, &job); err != nil || job.JobID == "" || !job.Target.Valid() {
		log.Error().Err(err).Str("message_id", delivery.MessageId).Msg("Dropping malformed mirror job")
		delivery.Nack(false, false)
		return
	}

	retry := jobs.Execute(ctx, q.store, &job, handler)
	if retry != nil {
		if err := q.publish(ctx, retry); err != nil {
			// Let the broker redeliver the original message instead.
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to republish mirror job")
			delivery.Nack(false, true)
			return
		}
	}

	if err := delivery.Ack(false); err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to acknowledge mirror job")
	}
}

// Stop implements the Consumer interface. It cancels the consumer and waits
// for the job in flight to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	started := q.started
	q.started = false
	q.mu.Unlock()

	if started {
		if err := q.channel.Cancel(q.consumerTag, false); err != nil {
			return fmt.Errorf("cancel consumer: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	if err := q.Stop(context.Background()); err != nil {
		return err
	}
	err := q.channel.Close()
	if q.conn != nil {
		if connErr := q.conn.Close(); err == nil {
			err = connErr
		}
	}
	return err
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
