package service

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"oracle/internal/merkle"
	"oracle/internal/models"
)

// SettlementRecordedPayload is the wire body for settlement.recorded
// entries. The market hash is the Merkle leaf for the market, so a consumer
// can verify batch membership against a later batch.committed root.
type SettlementRecordedPayload struct {
	SettlementID  string `json:"settlement_id"`
	MarketID      string `json:"market_id"`
	MarketHashHex string `json:"market_hash_hex"`
	Outcome       string `json:"outcome"`
	DecidedAtUnix int64  `json:"decided_at_unix"`
}

type BatchCommittedPayload struct {
	BatchID       string   `json:"batch_id"`
	MerkleRootHex string   `json:"merkle_root_hex"`
	MarketIDs     []string `json:"market_ids"`
	CreatedAtUnix int64    `json:"created_at_unix"`
}

func NewSettlementRecordedEntry(settlement *models.Settlement) (*models.OutboxEntry, error) {
	leaf := merkle.HashLeaf(settlement.MarketID)
	payload := SettlementRecordedPayload{
		SettlementID:  settlement.ID,
		MarketID:      settlement.MarketID,
		MarketHashHex: hex.EncodeToString(leaf[:]),
		Outcome:       settlement.Outcome.String(),
		DecidedAtUnix: settlement.DecidedAt.Unix(),
	}
	return newOutboxEntry(settlement.MarketID, models.OutboxKindSettlementRecorded, payload)
}

func NewBatchCommittedEntry(batch *models.Batch, marketIDs []string) (*models.OutboxEntry, error) {
	payload := BatchCommittedPayload{
		BatchID:       batch.ID,
		MerkleRootHex: batch.MerkleRoot,
		MarketIDs:     marketIDs,
		CreatedAtUnix: batch.CreatedAt.Unix(),
	}
	// Batch events carry the batch id in the market slot; one batch spans
	// many markets.
	return newOutboxEntry(batch.ID, models.OutboxKindBatchCommitted, payload)
}

func newOutboxEntry(marketID, kind string, payload any) (*models.OutboxEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &models.OutboxEntry{
		ID:            uuid.NewString(),
		MarketID:      marketID,
		Kind:          kind,
		Payload:       datatypes.JSON(raw),
		Status:        models.OutboxStatusPending,
		Retries:       0,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
