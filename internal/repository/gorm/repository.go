package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oracle/internal/models"
	"oracle/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Markets ----------------------------------------------------------------

func (s *Store) InsertMarket(ctx context.Context, item *models.Market) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	query = applyMarketFilters(query, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context, params repository.ListMarketsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	query = applyMarketFilters(query, params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyMarketFilters(query *gorm.DB, params repository.ListMarketsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) ListOpenMarketsClosedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 10)
	var items []models.Market
	err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("status = ?", models.MarketStatusOpen).
		Where("closes_at <= ?", cutoff).
		Order("closes_at asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkMarketResolvedTx(ctx context.Context, tx *gorm.DB, marketID string) error {
	db := s.txOrDB(ctx, tx)
	if db == nil {
		return nil
	}
	return db.Model(&models.Market{}).
		Where("id = ?", marketID).
		Where("status = ?", models.MarketStatusOpen).
		Update("status", models.MarketStatusResolved).Error
}

// --- Reports ----------------------------------------------------------------

func (s *Store) CreateReport(ctx context.Context, item *models.Report) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetReportByIdempotencyKey(ctx context.Context, marketID, key string) (*models.Report, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Report
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Where("idempotency_key = ?", key).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListReportsByMarketID(ctx context.Context, marketID string) ([]models.Report, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Report
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("market_id = ?", marketID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Settlements ------------------------------------------------------------

func (s *Store) CreateSettlementTx(ctx context.Context, tx *gorm.DB, item *models.Settlement) (bool, error) {
	db := s.txOrDB(ctx, tx)
	if db == nil || item == nil {
		return false, nil
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetSettlementByMarketID(ctx context.Context, marketID string) (*models.Settlement, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Settlement
	err := s.db.WithContext(ctx).Where("market_id = ?", marketID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSettlementsByMarketIDs(ctx context.Context, marketIDs []string) ([]models.Settlement, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return nil, nil
	}
	var items []models.Settlement
	err := s.db.WithContext(ctx).
		Model(&models.Settlement{}).
		Where("market_id IN ?", marketIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Batches ----------------------------------------------------------------

func (s *Store) InsertBatchTx(ctx context.Context, tx *gorm.DB, batch *models.Batch, items []models.BatchItem) error {
	db := s.txOrDB(ctx, tx)
	if db == nil || batch == nil {
		return nil
	}
	if err := db.Create(batch).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (s *Store) GetBatchByID(ctx context.Context, id string) (*models.Batch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Batch
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBatches(ctx context.Context, params repository.ListBatchesParams) ([]models.Batch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Batch{})
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Batch
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBatches(ctx context.Context, params repository.ListBatchesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Batch{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListBatchItemsByBatchID(ctx context.Context, batchID string) ([]models.BatchItem, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BatchItem
	err := s.db.WithContext(ctx).
		Model(&models.BatchItem{}).
		Where("batch_id = ?", batchID).
		Order("market_id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBatchedMarketIDs(ctx context.Context, marketIDs []string) ([]string, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.BatchItem{}).
		Where("market_id IN ?", marketIDs).
		Pluck("market_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Outbox -----------------------------------------------------------------

func (s *Store) EnqueueOutboxTx(ctx context.Context, tx *gorm.DB, item *models.OutboxEntry) error {
	db := s.txOrDB(ctx, tx)
	if db == nil || item == nil {
		return nil
	}
	return db.Create(item).Error
}

func (s *Store) ClaimDueOutboxEntries(ctx context.Context, now time.Time, limit int, leaseUntil time.Time) ([]models.OutboxEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 10)
	var claimed []models.OutboxEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []models.OutboxEntry
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", models.OutboxStatusPending).
			Where("next_attempt_at <= ?", now).
			Order("created_at asc").
			Limit(limit).
			Find(&due).Error
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]string, 0, len(due))
		for _, entry := range due {
			ids = append(ids, entry.ID)
		}
		err = tx.Model(&models.OutboxEntry{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":           models.OutboxStatusInFlight,
				"lease_expires_at": leaseUntil,
				"updated_at":       now,
			}).Error
		if err != nil {
			return err
		}
		for i := range due {
			due[i].Status = models.OutboxStatusInFlight
			lease := leaseUntil
			due[i].LeaseExpiresAt = &lease
			due[i].UpdatedAt = now
		}
		claimed = due
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *Store) MarkOutboxSent(ctx context.Context, id string, now time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           models.OutboxStatusSent,
			"last_error":       nil,
			"lease_expires_at": nil,
			"updated_at":       now,
		}).Error
}

func (s *Store) MarkOutboxRetry(ctx context.Context, id string, retries int, lastError string, nextAttemptAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           models.OutboxStatusPending,
			"retries":          retries,
			"last_error":       lastError,
			"next_attempt_at":  nextAttemptAt,
			"lease_expires_at": nil,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (s *Store) MarkOutboxFailed(ctx context.Context, id string, retries int, lastError string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           models.OutboxStatusFailed,
			"retries":          retries,
			"last_error":       lastError,
			"lease_expires_at": nil,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (s *Store) ReapExpiredOutboxLeases(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("status = ?", models.OutboxStatusInFlight).
		Where("lease_expires_at IS NOT NULL").
		Where("lease_expires_at < ?", now).
		Updates(map[string]any{
			"status":           models.OutboxStatusPending,
			"lease_expires_at": nil,
			"updated_at":       now,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) GetOutboxEntryByID(ctx context.Context, id string) (*models.OutboxEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OutboxEntry
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOutboxEntries(ctx context.Context, params repository.ListOutboxParams) ([]models.OutboxEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.OutboxEntry{})
	query = applyOutboxFilters(query, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.OutboxEntry
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOutboxEntries(ctx context.Context, params repository.ListOutboxParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.OutboxEntry{})
	query = applyOutboxFilters(query, params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyOutboxFilters(query *gorm.DB, params repository.ListOutboxParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.ToUpper(strings.TrimSpace(*params.Status)))
	}
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	return query
}

func (s *Store) RequeueFailedOutboxEntry(ctx context.Context, id string, now time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Where("status = ?", models.OutboxStatusFailed).
		Updates(map[string]any{
			"status":          models.OutboxStatusPending,
			"retries":         0,
			"next_attempt_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CountOutboxByStatus(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.OutboxEntry{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// --- Settings ---------------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	err := s.db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Order("key asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func (s *Store) txOrDB(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx)
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
