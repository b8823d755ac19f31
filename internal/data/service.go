package data

import (
	"context"
	"fmt"
	"time"

	"github.com/atmagaming/finances/internal/cache"
	"github.com/atmagaming/finances/internal/domain"
)

const (
	keyPeople        = "people"
	keySensitiveData = "sensitive_data"
	keyPayees        = "payees"
	keyTransactions  = "transactions"
	keyVacations     = "vacations"
)

// Service serves tables from a Source through a TTL cache.
type Service struct {
	source Source
	cache  *cache.TTL
	now    func() time.Time
}

// NewService creates a Service. A nil clock means time.Now.
func NewService(source Source, c *cache.TTL, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{source: source, cache: c, now: clock}
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) People(ctx context.Context) ([]domain.Person, error) {
	return cache.Load(ctx, s.cache, keyPeople, s.now(), s.source.People)
}

func (s *Service) SensitiveData(ctx context.Context) ([]domain.SensitiveData, error) {
	return cache.Load(ctx, s.cache, keySensitiveData, s.now(), s.source.SensitiveData)
}

func (s *Service) Payees(ctx context.Context) ([]domain.Payee, error) {
	return cache.Load(ctx, s.cache, keyPayees, s.now(), s.source.Payees)
}

// Transactions returns transactions with payee names resolved.
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := cache.Load(ctx, s.cache, keyTransactions, s.now(), s.source.Transactions)
	if err != nil {
		return nil, err
	}
	payees, err := s.Payees(ctx)
	if err != nil {
		return nil, err
	}
	return ResolvePayeeNames(txs, payees), nil
}

func (s *Service) Vacations(ctx context.Context) ([]domain.Vacation, error) {
	return cache.Load(ctx, s.cache, keyVacations, s.now(), s.source.Vacations)
}

// All reads the five tables through the cache.
func (s *Service) All(ctx context.Context) (*Snapshot, error) {
	snap, err := Fetch(ctx, s, s.now())
	if err != nil {
		return nil, fmt.Errorf("All: %w", err)
	}
	return snap, nil
}

// Refresh drops every cached table so the next read goes to the source.
func (s *Service) Refresh() {
	s.cache.Purge()
}
