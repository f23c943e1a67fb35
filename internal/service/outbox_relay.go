package service

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"oracle/internal/config"
	"oracle/internal/models"
	"oracle/internal/repository"
)

// Sink is the external delivery target for outbox entries. Implementations
// must treat a timeout as a failure; the relay counts it against retries.
type Sink interface {
	Send(ctx context.Context, kind string, payload []byte) error
}

// OutboxRelayService drains the outbox: it claims due PENDING entries under
// a lease, delivers them through the sink, and applies the retry/backoff
// discipline. Delivery is at-least-once; a crash between send and the
// status update re-delivers, so consumers de-duplicate on entry id.
type OutboxRelayService struct {
	Repo   repository.Repository
	Sink   Sink
	Config config.OutboxConfig
	Logger *zap.Logger
	Flags  *SystemSettingsService
}

func (s *OutboxRelayService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Sink == nil {
		return nil
	}
	interval := s.Config.DispatchInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.dispatchOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("outbox dispatch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *OutboxRelayService) dispatchOnce(ctx context.Context) error {
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureOutboxRelay, true) {
		return nil
	}
	_, err := s.DispatchNext(ctx, s.batchSize())
	return err
}

// DispatchNext claims up to maxBatch due entries and attempts delivery,
// returning how many were delivered.
func (s *OutboxRelayService) DispatchNext(ctx context.Context, maxBatch int) (int, error) {
	if s == nil || s.Repo == nil || s.Sink == nil {
		return 0, nil
	}
	now := time.Now().UTC()
	lease := s.Config.LeaseDuration
	if lease <= 0 {
		lease = time.Minute
	}
	entries, err := s.Repo.ClaimDueOutboxEntries(ctx, now, maxBatch, now.Add(lease))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if s.deliver(ctx, entry) {
			sent++
		}
	}
	return sent, nil
}

func (s *OutboxRelayService) deliver(ctx context.Context, entry models.OutboxEntry) bool {
	err := s.Sink.Send(ctx, entry.Kind, entry.Payload)
	now := time.Now().UTC()
	if err == nil {
		if markErr := s.Repo.MarkOutboxSent(ctx, entry.ID, now); markErr != nil && s.Logger != nil {
			// Entry was delivered but not marked; the reaper requeues it
			// after the lease expires and the consumer de-dups.
			s.Logger.Warn("outbox sent but status update failed",
				zap.String("entry_id", entry.ID),
				zap.Error(markErr),
			)
		}
		return true
	}

	retries := entry.Retries + 1
	if retries >= s.maxRetries() {
		if markErr := s.Repo.MarkOutboxFailed(ctx, entry.ID, retries, err.Error()); markErr != nil && s.Logger != nil {
			s.Logger.Warn("outbox fail-mark failed", zap.String("entry_id", entry.ID), zap.Error(markErr))
		}
		if s.Logger != nil {
			s.Logger.Error("outbox delivery exhausted",
				zap.String("entry_id", entry.ID),
				zap.String("kind", entry.Kind),
				zap.Int("retries", retries),
				zap.Error(err),
			)
		}
		return false
	}

	next := now.Add(s.backoffDelay(retries))
	if markErr := s.Repo.MarkOutboxRetry(ctx, entry.ID, retries, err.Error(), next); markErr != nil && s.Logger != nil {
		s.Logger.Warn("outbox retry-mark failed", zap.String("entry_id", entry.ID), zap.Error(markErr))
	}
	if s.Logger != nil {
		s.Logger.Warn("outbox delivery failed, will retry",
			zap.String("entry_id", entry.ID),
			zap.String("kind", entry.Kind),
			zap.Int("retries", retries),
			zap.Time("next_attempt_at", next),
			zap.Error(err),
		)
	}
	return false
}

// Requeue resets a FAILED entry for another round of delivery attempts.
// This is the operator escape hatch for entries that exhausted retries.
func (s *OutboxRelayService) Requeue(ctx context.Context, id string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	entry, err := s.Repo.GetOutboxEntryByID(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrOutboxEntryNotFound
	}
	requeued, err := s.Repo.RequeueFailedOutboxEntry(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !requeued {
		return ErrOutboxEntryNotFailed
	}
	return nil
}

// ReapLeases returns expired IN_FLIGHT claims to PENDING so entries whose
// worker crashed mid-delivery become eligible again.
func (s *OutboxRelayService) ReapLeases(ctx context.Context) (int64, error) {
	if s == nil || s.Repo == nil {
		return 0, nil
	}
	return s.Repo.ReapExpiredOutboxLeases(ctx, time.Now().UTC())
}

// backoffDelay is exponential in the retry count with up to 50% jitter on
// top, capped at the configured maximum.
func (s *OutboxRelayService) backoffDelay(retries int) time.Duration {
	base := s.Config.BackoffBase
	if base <= 0 {
		base = 2 * time.Second
	}
	max := s.Config.BackoffMax
	if max <= 0 {
		max = 5 * time.Minute
	}

	delay := base
	for i := 1; i < retries; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	delay += jitter
	if delay > max {
		delay = max
	}
	return delay
}

func (s *OutboxRelayService) batchSize() int {
	if s.Config.BatchSize > 0 {
		return s.Config.BatchSize
	}
	return 10
}

func (s *OutboxRelayService) maxRetries() int {
	if s.Config.MaxRetries > 0 {
		return s.Config.MaxRetries
	}
	return 5
}
