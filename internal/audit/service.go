// Copyright 2025 LifeReady
package audit

import (
	"context"
	"log"
	"time"

	"github.com/lifeready/core/internal/domain"
)

// Config holds Service configuration.
type Config struct {
	Logger *log.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logger: log.New(log.Writer(), "[audit] ", log.LstdFlags),
	}
}

// Service is the sole entry point for recording and reading the chain.
// Every write goes through Append, which is the only place event_hash is
// computed — no caller may construct an AuditEvent with a pre-set hash.
type Service struct {
	repo    *Repository
	metrics *Metrics
	logger  *log.Logger
}

// NewService constructs a Service. metrics may be nil to disable
// Prometheus instrumentation (e.g. in unit tests that don't set up a
// registry).
func NewService(repo *Repository, metrics *Metrics, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{repo: repo, metrics: metrics, logger: cfg.Logger}
}

// Record appends one event to the chain and returns it with its computed
// event_hash populated.
func (s *Service) Record(ctx context.Context, in AppendInput) (domain.AuditEvent, error) {
	start := time.Now()
	event, err := s.repo.Append(ctx, in)
	if err != nil {
		s.logger.Printf("append failed: action=%s error=%v", in.Action, err)
		return domain.AuditEvent{}, err
	}
	s.metrics.ObserveAppend(in.Action, time.Since(start).Seconds())
	return event, nil
}

// Chain returns the full chain, verified before being handed back. A
// broken chain is an internal invariant failure, never a client error.
func (s *Service) Chain(ctx context.Context) ([]domain.AuditEvent, error) {
	events, err := s.repo.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := VerifyChain(events); err != nil {
		s.logger.Printf("chain verification failed: %v", err)
		return nil, err
	}
	return events, nil
}

// CaseExcerpt returns the events recorded against caseID, in chain order.
func (s *Service) CaseExcerpt(ctx context.Context, caseID string) ([]domain.AuditEvent, error) {
	return s.repo.FetchByCase(ctx, caseID)
}
