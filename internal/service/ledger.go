package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"oracle/internal/models"
	"oracle/internal/repository"
)

// LedgerService owns settlements: it records a market's decided outcome
// exactly once and emits the settlement.recorded outbox entry in the same
// transaction, so the event cannot be lost between the write and delivery.
type LedgerService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *LedgerService) RecordSettlement(ctx context.Context, marketID string, outcome decimal.Decimal, decidedAt time.Time) (*models.Settlement, error) {
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

	now := time.Now().UTC()
	if decidedAt.IsZero() {
		decidedAt = now
	}
	settlement := &models.Settlement{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Outcome:   outcome,
		DecidedAt: decidedAt.UTC(),
		CreatedAt: now,
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		inserted, err := s.Repo.CreateSettlementTx(ctx, tx, settlement)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrDuplicateSettlement
		}
		if err := s.Repo.MarkMarketResolvedTx(ctx, tx, marketID); err != nil {
			return err
		}
		entry, err := NewSettlementRecordedEntry(settlement)
		if err != nil {
			return err
		}
		return s.Repo.EnqueueOutboxTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("settlement recorded",
			zap.String("market_id", marketID),
			zap.String("settlement_id", settlement.ID),
			zap.String("outcome", outcome.String()),
		)
	}
	return settlement, nil
}

func (s *LedgerService) GetSettlement(ctx context.Context, marketID string) (*models.Settlement, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	settlement, err := s.Repo.GetSettlementByMarketID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if settlement == nil {
		return nil, ErrSettlementNotFound
	}
	return settlement, nil
}

// SettlementView is the read model for a settled market: the outcome, the
// reports that fed it, and a hash binding them together for tamper-evidence.
type SettlementView struct {
	MarketID  string          `json:"market_id"`
	Outcome   decimal.Decimal `json:"outcome"`
	DecidedAt time.Time       `json:"decided_at"`
	Reports   []models.Report `json:"reports"`
	Hash      string          `json:"hash"`
}

func (s *LedgerService) GetSettlementView(ctx context.Context, marketID string) (*SettlementView, error) {
	settlement, err := s.GetSettlement(ctx, marketID)
	if err != nil {
		return nil, err
	}
	reports, err := s.Repo.ListReportsByMarketID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return &SettlementView{
		MarketID:  marketID,
		Outcome:   settlement.Outcome,
		DecidedAt: settlement.DecidedAt,
		Reports:   reports,
		Hash:      settlementHash(marketID, settlement.Outcome, settlement.DecidedAt, reports),
	}, nil
}

// settlementHash digests the settlement and its ordered reports. Reports
// must be in created_at ascending order for the hash to be reproducible.
func settlementHash(marketID string, outcome decimal.Decimal, decidedAt time.Time, reports []models.Report) string {
	h := sha256.New()
	h.Write([]byte(marketID))
	h.Write([]byte(outcome.String()))
	h.Write([]byte(decidedAt.UTC().Format(time.RFC3339)))
	for _, r := range reports {
		h.Write([]byte(r.ID))
		h.Write([]byte(r.Source))
		h.Write([]byte(r.Value.String()))
		h.Write([]byte(r.CreatedAt.UTC().Format(time.RFC3339)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
