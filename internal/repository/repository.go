package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"oracle/internal/models"
)

type ListMarketsParams struct {
	Limit   int
	Offset  int
	Status  *string
	OrderBy string
	Asc     *bool
}

type ListBatchesParams struct {
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool
}

type ListOutboxParams struct {
	Limit    int
	Offset   int
	Status   *string
	MarketID *string
	Kind     *string
	OrderBy  string
	Asc      *bool
}

// Repository is the single persistence surface shared by the domain
// services, the HTTP handlers and the background workers. The store is the
// only coordination point between concurrent workers, so every conditional
// transition (settlement insert, outbox claim, retry requeue) happens here.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Markets
	InsertMarket(ctx context.Context, item *models.Market) error
	GetMarketByID(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context, params ListMarketsParams) (int64, error)
	ListOpenMarketsClosedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Market, error)
	MarkMarketResolvedTx(ctx context.Context, tx *gorm.DB, marketID string) error

	// Reports
	// CreateReport inserts with conflict-ignore on (market_id,
	// idempotency_key); inserted reports whether a new row was written.
	CreateReport(ctx context.Context, item *models.Report) (inserted bool, err error)
	GetReportByIdempotencyKey(ctx context.Context, marketID, key string) (*models.Report, error)
	ListReportsByMarketID(ctx context.Context, marketID string) ([]models.Report, error)

	// Settlements
	// CreateSettlementTx inserts with conflict-ignore on market_id; the
	// unique index is the final arbiter under concurrent writers.
	CreateSettlementTx(ctx context.Context, tx *gorm.DB, item *models.Settlement) (inserted bool, err error)
	GetSettlementByMarketID(ctx context.Context, marketID string) (*models.Settlement, error)
	ListSettlementsByMarketIDs(ctx context.Context, marketIDs []string) ([]models.Settlement, error)

	// Batches
	InsertBatchTx(ctx context.Context, tx *gorm.DB, batch *models.Batch, items []models.BatchItem) error
	GetBatchByID(ctx context.Context, id string) (*models.Batch, error)
	ListBatches(ctx context.Context, params ListBatchesParams) ([]models.Batch, error)
	CountBatches(ctx context.Context, params ListBatchesParams) (int64, error)
	ListBatchItemsByBatchID(ctx context.Context, batchID string) ([]models.BatchItem, error)
	ListBatchedMarketIDs(ctx context.Context, marketIDs []string) ([]string, error)

	// Outbox
	EnqueueOutboxTx(ctx context.Context, tx *gorm.DB, item *models.OutboxEntry) error
	// ClaimDueOutboxEntries atomically flips up to limit due PENDING entries
	// to IN_FLIGHT under a lease, oldest first, skipping rows locked by
	// concurrent workers.
	ClaimDueOutboxEntries(ctx context.Context, now time.Time, limit int, leaseUntil time.Time) ([]models.OutboxEntry, error)
	MarkOutboxSent(ctx context.Context, id string, now time.Time) error
	MarkOutboxRetry(ctx context.Context, id string, retries int, lastError string, nextAttemptAt time.Time) error
	MarkOutboxFailed(ctx context.Context, id string, retries int, lastError string) error
	ReapExpiredOutboxLeases(ctx context.Context, now time.Time) (int64, error)
	GetOutboxEntryByID(ctx context.Context, id string) (*models.OutboxEntry, error)
	ListOutboxEntries(ctx context.Context, params ListOutboxParams) ([]models.OutboxEntry, error)
	CountOutboxEntries(ctx context.Context, params ListOutboxParams) (int64, error)
	RequeueFailedOutboxEntry(ctx context.Context, id string, now time.Time) (bool, error)
	CountOutboxByStatus(ctx context.Context) (map[string]int64, error)

	// Settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}
