package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"oracle/internal/models"
	"oracle/internal/repository"
)

// MarketService is the directory of markets the other components reference.
type MarketService struct {
	Repo repository.Repository
}

func (s *MarketService) CreateMarket(ctx context.Context, question string, closesAt time.Time) (*models.Market, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	market := &models.Market{
		ID:        uuid.NewString(),
		Question:  question,
		ClosesAt:  closesAt.UTC(),
		Status:    models.MarketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.InsertMarket(ctx, market); err != nil {
		return nil, err
	}
	return market, nil
}

func (s *MarketService) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	market, err := s.Repo.GetMarketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	return market, nil
}

func (s *MarketService) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, nil
	}
	items, err := s.Repo.ListMarkets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountMarkets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
