package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"oracle/internal/merkle"
	"oracle/internal/models"
	"oracle/internal/repository"
)

// BatchBuilderService groups settled markets into Merkle-committed batches.
// Market ids are deduplicated and sorted ascending before hashing so the
// root is reproducible from the member set alone.
type BatchBuilderService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *BatchBuilderService) CreateBatch(ctx context.Context, marketIDs []string) (*models.Batch, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	ids := canonicalMarketIDs(marketIDs)
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	settlements, err := s.Repo.ListSettlementsByMarketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	settled := make(map[string]struct{}, len(settlements))
	for _, st := range settlements {
		settled[st.MarketID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := settled[id]; !ok {
			return nil, ErrUnsettledMarket
		}
	}

	batched, err := s.Repo.ListBatchedMarketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(batched) > 0 {
		return nil, ErrAlreadyBatched
	}

	now := time.Now().UTC()
	batch := &models.Batch{
		ID:         uuid.NewString(),
		MerkleRoot: merkle.RootHex(ids),
		CreatedAt:  now,
	}
	items := make([]models.BatchItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, models.BatchItem{BatchID: batch.ID, MarketID: id})
	}

	// The precheck above races with concurrent batch creation; the unique
	// index on batch_items.market_id makes the insert the final arbiter.
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.InsertBatchTx(ctx, tx, batch, items); err != nil {
			return err
		}
		entry, err := NewBatchCommittedEntry(batch, ids)
		if err != nil {
			return err
		}
		return s.Repo.EnqueueOutboxTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("batch committed",
			zap.String("batch_id", batch.ID),
			zap.String("merkle_root", batch.MerkleRoot),
			zap.Int("markets", len(ids)),
		)
	}
	return batch, nil
}

func (s *BatchBuilderService) GetBatch(ctx context.Context, id string) (*models.Batch, []models.BatchItem, error) {
	if s == nil || s.Repo == nil {
		return nil, nil, nil
	}
	batch, err := s.Repo.GetBatchByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if batch == nil {
		return nil, nil, ErrBatchNotFound
	}
	items, err := s.Repo.ListBatchItemsByBatchID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return batch, items, nil
}

func canonicalMarketIDs(marketIDs []string) []string {
	seen := make(map[string]struct{}, len(marketIDs))
	ids := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
