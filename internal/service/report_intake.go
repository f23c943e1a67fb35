package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"oracle/internal/models"
	"oracle/internal/repository"
)

// ReportIntakeService accepts value reports from external sources. Retried
// submissions with the same (market, idempotency key) pair return the first
// row unchanged instead of erroring, so callers can retry blindly.
type ReportIntakeService struct {
	Repo repository.Repository
}

// SubmitReport returns the stored report and whether this call created it.
func (s *ReportIntakeService) SubmitReport(ctx context.Context, marketID, source string, value decimal.Decimal, idempotencyKey string) (*models.Report, bool, error) {
	if s == nil || s.Repo == nil {
		return nil, false, nil
	}
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, false, err
	}
	if market == nil {
		return nil, false, ErrMarketNotFound
	}
	if market.Status != models.MarketStatusOpen {
		return nil, false, ErrMarketClosed
	}

	report := &models.Report{
		ID:             uuid.NewString(),
		MarketID:       marketID,
		Source:         source,
		Value:          value,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	inserted, err := s.Repo.CreateReport(ctx, report)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return report, true, nil
	}

	// Conflict-ignored: a row with this key already exists; hand it back.
	prior, err := s.Repo.GetReportByIdempotencyKey(ctx, marketID, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if prior == nil {
		// The conflicting row vanished between insert and read.
		return nil, false, errors.New("report conflict but prior row not found")
	}
	return prior, false, nil
}

func (s *ReportIntakeService) ListReports(ctx context.Context, marketID string) ([]models.Report, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	return s.Repo.ListReportsByMarketID(ctx, marketID)
}
