// Package store persists batch submission state so a run can resume after
// a process restart without resubmitting succeeded batches. The JSONL
// result files remain the source of truth for verdicts; the store is the
// operator-facing registry of statuses, attempts and last errors.
package store

import (
	"context"
	"time"

	"github.com/sondeo-labs/crimeval/internal/model"
)

// Run identifies one validation pipeline invocation.
type Run struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusComplete  = "complete"
	RunStatusCancelled = "cancelled"
)

// BatchState is the persisted registry entry for one batch.
type BatchState struct {
	RunID     string            `json:"run_id"`
	BatchID   string            `json:"batch_id"`
	Index     int               `json:"index"`
	Size      int               `json:"size"`
	Status    model.BatchStatus `json:"status"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"last_error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// BatchFilter specifies criteria for listing batch states.
type BatchFilter struct {
	RunID  string            `json:"run_id,omitempty"`
	Status model.BatchStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// Store defines the persistence interface for the batch-state registry.
type Store interface {
	CreateRun(ctx context.Context, dataset string) (*Run, error)
	FinishRun(ctx context.Context, runID, status string) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// UpsertBatch records or updates a batch state keyed by batch id.
	UpsertBatch(ctx context.Context, state BatchState) error
	GetBatch(ctx context.Context, batchID string) (*BatchState, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]BatchState, error)

	Migrate(ctx context.Context) error
	Close() error
}
