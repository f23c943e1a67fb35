package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"oracle/internal/models"
	"oracle/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Conditional transitions mirror the store's semantics closely enough for
// the service tests: unique indexes, conflict-ignore inserts, claim leases.
type stubRepo struct {
	mu sync.Mutex

	markets     map[string]models.Market
	reports     []models.Report
	settlements map[string]models.Settlement // by market id
	batches     map[string]models.Batch
	batchItems  []models.BatchItem
	outbox      map[string]models.OutboxEntry
	settings    map[string]models.SystemSetting
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		markets:     map[string]models.Market{},
		settlements: map[string]models.Settlement{},
		batches:     map[string]models.Batch{},
		outbox:      map[string]models.OutboxEntry{},
		settings:    map[string]models.SystemSetting{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) InsertMarket(ctx context.Context, item *models.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[item.ID] = *item
	return nil
}

func (s *stubRepo) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markets[id]; ok {
		out := m
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Market
	for _, m := range s.markets {
		if params.Status != nil && m.Status != *params.Status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *stubRepo) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	items, _ := s.ListMarkets(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListOpenMarketsClosedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Market
	for _, m := range s.markets {
		if m.Status == models.MarketStatusOpen && !m.ClosesAt.After(cutoff) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosesAt.Before(out[j].ClosesAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) MarkMarketResolvedTx(ctx context.Context, tx *gorm.DB, marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markets[marketID]; ok && m.Status == models.MarketStatusOpen {
		m.Status = models.MarketStatusResolved
		s.markets[marketID] = m
	}
	return nil
}

func (s *stubRepo) CreateReport(ctx context.Context, item *models.Report) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.MarketID == item.MarketID && r.IdempotencyKey == item.IdempotencyKey {
			return false, nil
		}
	}
	s.reports = append(s.reports, *item)
	return true, nil
}

func (s *stubRepo) GetReportByIdempotencyKey(ctx context.Context, marketID, key string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.MarketID == marketID && r.IdempotencyKey == key {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListReportsByMarketID(ctx context.Context, marketID string) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for _, r := range s.reports {
		if r.MarketID == marketID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *stubRepo) CreateSettlementTx(ctx context.Context, tx *gorm.DB, item *models.Settlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settlements[item.MarketID]; ok {
		return false, nil
	}
	s.settlements[item.MarketID] = *item
	return true, nil
}

func (s *stubRepo) GetSettlementByMarketID(ctx context.Context, marketID string) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.settlements[marketID]; ok {
		out := st
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListSettlementsByMarketIDs(ctx context.Context, marketIDs []string) ([]models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Settlement
	for _, id := range marketIDs {
		if st, ok := s.settlements[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertBatchTx(ctx context.Context, tx *gorm.DB, batch *models.Batch, items []models.BatchItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = *batch
	s.batchItems = append(s.batchItems, items...)
	return nil
}

func (s *stubRepo) GetBatchByID(ctx context.Context, id string) (*models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.batches[id]; ok {
		out := b
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListBatches(ctx context.Context, params repository.ListBatchesParams) ([]models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Batch
	for _, b := range s.batches {
		out = append(out, b)
	}
	return out, nil
}

func (s *stubRepo) CountBatches(ctx context.Context, params repository.ListBatchesParams) (int64, error) {
	items, _ := s.ListBatches(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListBatchItemsByBatchID(ctx context.Context, batchID string) ([]models.BatchItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BatchItem
	for _, item := range s.batchItems {
		if item.BatchID == batchID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out, nil
}

func (s *stubRepo) ListBatchedMarketIDs(ctx context.Context, marketIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(marketIDs))
	for _, id := range marketIDs {
		want[id] = struct{}{}
	}
	var out []string
	for _, item := range s.batchItems {
		if _, ok := want[item.MarketID]; ok {
			out = append(out, item.MarketID)
		}
	}
	return out, nil
}

func (s *stubRepo) EnqueueOutboxTx(ctx context.Context, tx *gorm.DB, item *models.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[item.ID] = *item
	return nil
}

func (s *stubRepo) ClaimDueOutboxEntries(ctx context.Context, now time.Time, limit int, leaseUntil time.Time) ([]models.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.OutboxEntry
	for _, entry := range s.outbox {
		if entry.Status == models.OutboxStatusPending && !entry.NextAttemptAt.After(now) {
			due = append(due, entry)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		entry := due[i]
		entry.Status = models.OutboxStatusInFlight
		lease := leaseUntil
		entry.LeaseExpiresAt = &lease
		entry.UpdatedAt = now
		s.outbox[entry.ID] = entry
		due[i] = entry
	}
	return due, nil
}

func (s *stubRepo) MarkOutboxSent(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.outbox[id]; ok {
		entry.Status = models.OutboxStatusSent
		entry.LastError = nil
		entry.LeaseExpiresAt = nil
		entry.UpdatedAt = now
		s.outbox[id] = entry
	}
	return nil
}

func (s *stubRepo) MarkOutboxRetry(ctx context.Context, id string, retries int, lastError string, nextAttemptAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.outbox[id]; ok {
		entry.Status = models.OutboxStatusPending
		entry.Retries = retries
		entry.LastError = &lastError
		entry.NextAttemptAt = nextAttemptAt
		entry.LeaseExpiresAt = nil
		entry.UpdatedAt = time.Now().UTC()
		s.outbox[id] = entry
	}
	return nil
}

func (s *stubRepo) MarkOutboxFailed(ctx context.Context, id string, retries int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.outbox[id]; ok {
		entry.Status = models.OutboxStatusFailed
		entry.Retries = retries
		entry.LastError = &lastError
		entry.LeaseExpiresAt = nil
		entry.UpdatedAt = time.Now().UTC()
		s.outbox[id] = entry
	}
	return nil
}

func (s *stubRepo) ReapExpiredOutboxLeases(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, entry := range s.outbox {
		if entry.Status == models.OutboxStatusInFlight && entry.LeaseExpiresAt != nil && entry.LeaseExpiresAt.Before(now) {
			entry.Status = models.OutboxStatusPending
			entry.LeaseExpiresAt = nil
			entry.UpdatedAt = now
			s.outbox[id] = entry
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) GetOutboxEntryByID(ctx context.Context, id string) (*models.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.outbox[id]; ok {
		out := entry
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListOutboxEntries(ctx context.Context, params repository.ListOutboxParams) ([]models.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OutboxEntry
	for _, entry := range s.outbox {
		if params.Status != nil && entry.Status != *params.Status {
			continue
		}
		if params.MarketID != nil && entry.MarketID != *params.MarketID {
			continue
		}
		if params.Kind != nil && entry.Kind != *params.Kind {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *stubRepo) CountOutboxEntries(ctx context.Context, params repository.ListOutboxParams) (int64, error) {
	items, _ := s.ListOutboxEntries(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) RequeueFailedOutboxEntry(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.outbox[id]
	if !ok || entry.Status != models.OutboxStatusFailed {
		return false, nil
	}
	entry.Status = models.OutboxStatusPending
	entry.Retries = 0
	entry.NextAttemptAt = now
	entry.UpdatedAt = now
	s.outbox[id] = entry
	return true, nil
}

func (s *stubRepo) CountOutboxByStatus(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int64{}
	for _, entry := range s.outbox {
		out[entry.Status]++
	}
	return out, nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[item.Key] = *item
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.settings[key]; ok {
		out := item
		return &out, nil
	}
	return nil, nil
}

func (s *stubRepo) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SystemSetting
	for _, item := range s.settings {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// --- shared fixtures --------------------------------------------------------

func addOpenMarket(s *stubRepo, id string, closesAt time.Time) {
	s.markets[id] = models.Market{
		ID:        id,
		Question:  "will it settle?",
		ClosesAt:  closesAt,
		Status:    models.MarketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}
