package service

import "errors"

// Caller-facing error taxonomy. Handlers map these to HTTP statuses;
// everything else surfaces as a repository failure.
var (
	ErrMarketNotFound       = errors.New("market not found")
	ErrMarketClosed         = errors.New("market is closed")
	ErrSettlementNotFound   = errors.New("settlement not found")
	ErrDuplicateSettlement  = errors.New("settlement already recorded for market")
	ErrUnsettledMarket      = errors.New("market has no settlement")
	ErrAlreadyBatched       = errors.New("market already belongs to a batch")
	ErrBatchNotFound        = errors.New("batch not found")
	ErrEmptyBatch           = errors.New("batch requires at least one market")
	ErrOutboxEntryNotFound  = errors.New("outbox entry not found")
	ErrOutboxEntryNotFailed = errors.New("outbox entry is not in FAILED state")
)
