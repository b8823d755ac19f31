// Package snapshot archives computed dashboard reports to a storage bucket, one
// object per day, so past states of the dashboard can be compared.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atmagaming/finances/internal/dashboard"
	"github.com/atmagaming/finances/internal/logger"
)

const (
	objectPrefix = "snapshots"
	objectFile   = "dashboard.json"
	contentType  = "application/json"
)

// ObjectName is the object path of the snapshot taken on now's UTC day.
func ObjectName(now time.Time) string {
	return fmt.Sprintf("%s/%s/%s", objectPrefix, now.UTC().Format("2006-01-02"), objectFile)
}

// URI formats a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseURI splits a gs:// URI into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}

// Publisher writes reports to a bucket.
type Publisher struct {
	store  ObjectStore
	bucket string
}

// NewPublisher creates a Publisher writing to bucket.
func NewPublisher(store ObjectStore, bucket string) *Publisher {
	return &Publisher{store: store, bucket: bucket}
}

// Publish uploads report as the snapshot for now's day, overwriting an earlier
// snapshot of the same day, and returns its URI.
func (p *Publisher) Publish(ctx context.Context, report dashboard.Report, now time.Time) (string, error) {
	log := logger.FromContext(ctx)

	if p.bucket == "" {
		return "", fmt.Errorf("Publish: snapshot bucket not configured")
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Publish: encoding report: %w", err)
	}

	object := ObjectName(now)
	if err := p.store.Upload(ctx, p.bucket, object, contentType, body); err != nil {
		return "", fmt.Errorf("Publish: %w", err)
	}

	uri := URI(p.bucket, object)
	log.Info().
		Str("uri", uri).
		Int("bytes", len(body)).
		Msg("Dashboard snapshot published")

	return uri, nil
}

// Fetch reads back a published snapshot by URI.
func (p *Publisher) Fetch(ctx context.Context, uri string) (*dashboard.Report, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	body, err := p.store.Download(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	var report dashboard.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("Fetch: decoding report: %w", err)
	}
	return &report, nil
}
