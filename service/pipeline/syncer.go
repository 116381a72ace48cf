package pipeline

import (
	"context"

	"github.com/viant/durable/service/sales"
	"go.uber.org/zap"
)

// SyncResult reports a synced batch.
type SyncResult struct {
	Synced        int    `json:"synced"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Syncer pushes approved records to the accounting system.
type Syncer interface {
	Sync(ctx context.Context, records []*sales.ProcessedRecord) (*SyncResult, error)
}

// LogSyncer only logs the batch.
type LogSyncer struct {
	Logger *zap.Logger
}

// Sync logs the batch size.
func (s *LogSyncer) Sync(_ context.Context, records []*sales.ProcessedRecord) (*SyncResult, error) {
	s.Logger.Info("records synced", zap.Int("syncedCount", len(records)))
	return &SyncResult{Synced: len(records)}, nil
}
