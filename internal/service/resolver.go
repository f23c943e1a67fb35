package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"oracle/internal/config"
	"oracle/internal/models"
	"oracle/internal/repository"
)

// ResolverService periodically settles OPEN markets whose close time has
// passed, once their reports agree: at least MinReports values with a
// relative spread (max-min)/min within MaxSpread settle to the mean.
// Markets that never reach agreement simply stay OPEN.
type ResolverService struct {
	Repo   repository.Repository
	Ledger *LedgerService
	Config config.ResolverConfig
	Logger *zap.Logger
	Flags  *SystemSettingsService
}

func (s *ResolverService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Ledger == nil {
		return nil
	}
	interval := s.Config.ScanInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.scanOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("resolver scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *ResolverService) scanOnce(ctx context.Context) error {
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureResolver, true) {
		return nil
	}
	batch := s.Config.MarketBatch
	if batch <= 0 {
		batch = 10
	}
	now := time.Now().UTC()
	markets, err := s.Repo.ListOpenMarketsClosedBefore(ctx, now, batch)
	if err != nil {
		return err
	}
	for _, market := range markets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.resolveMarket(ctx, market); err != nil && s.Logger != nil {
			s.Logger.Warn("resolver skipped market",
				zap.String("market_id", market.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *ResolverService) resolveMarket(ctx context.Context, market models.Market) error {
	reports, err := s.Repo.ListReportsByMarketID(ctx, market.ID)
	if err != nil {
		return err
	}
	values := make([]decimal.Decimal, 0, len(reports))
	for _, r := range reports {
		values = append(values, r.Value)
	}
	outcome, ok := s.tryResolve(values)
	if !ok {
		return nil
	}

	_, err = s.Ledger.RecordSettlement(ctx, market.ID, outcome, time.Now().UTC())
	if errors.Is(err, ErrDuplicateSettlement) {
		// Another worker settled it first; nothing to do.
		return nil
	}
	return err
}

// tryResolve implements the agreement policy over report values.
func (s *ResolverService) tryResolve(values []decimal.Decimal) (decimal.Decimal, bool) {
	minReports := s.Config.MinReports
	if minReports <= 0 {
		minReports = 3
	}
	if len(values) < minReports {
		return decimal.Zero, false
	}

	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	lo := sorted[0]
	hi := sorted[len(sorted)-1]
	if lo.IsZero() {
		return decimal.Zero, false
	}

	maxSpread := decimal.NewFromFloat(s.Config.MaxSpread)
	if maxSpread.LessThanOrEqual(decimal.Zero) {
		maxSpread = decimal.NewFromFloat(0.01)
	}
	spread := hi.Sub(lo).Div(lo)
	if spread.GreaterThan(maxSpread) {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for _, v := range sorted {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(sorted)))), true
}
