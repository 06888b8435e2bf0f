package model

import "time"

// BatchStatus tracks the lifecycle of one submitted batch.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusSucceeded BatchStatus = "succeeded"
	BatchStatusPartial   BatchStatus = "partial"
	BatchStatusFailed    BatchStatus = "failed"
)

// Batch is an ordered, fixed-capacity partition of cleaned observations
// submitted as one unit to the classifier.
type Batch struct {
	ID           string        `json:"id"`
	Index        int           `json:"index"`
	Observations []Observation `json:"observations"`
}

// Verdict is the classifier output for a single observation.
type Verdict struct {
	Match         bool   `json:"match"`
	Justification string `json:"justification"`
	Observed      string `json:"observed,omitempty"`
	Error         string `json:"error,omitempty"`
	RawResponse   string `json:"raw_response,omitempty"`
}

// Errored reports whether the classifier failed to produce a usable
// verdict for this observation.
func (v Verdict) Errored() bool {
	return v.Error != ""
}

// BatchResult is the raw persisted response for one batch: one verdict per
// observation id plus batch-level status. Results are immutable once
// written; a batch id maps to exactly one result file.
type BatchResult struct {
	BatchID     string             `json:"batch_id"`
	Index       int                `json:"index"`
	Status      BatchStatus        `json:"status"`
	Verdicts    map[string]Verdict `json:"verdicts"`
	Attempts    int                `json:"attempts"`
	LastError   string             `json:"last_error,omitempty"`
	CompletedAt time.Time          `json:"completed_at"`
}

// ResolveStatus derives the batch-level status from its verdicts:
// succeeded when every observation has a usable verdict, partial when
// only some do.
func (r *BatchResult) ResolveStatus() BatchStatus {
	if len(r.Verdicts) == 0 {
		return BatchStatusFailed
	}
	errored := 0
	for _, v := range r.Verdicts {
		if v.Errored() {
			errored++
		}
	}
	switch errored {
	case 0:
		return BatchStatusSucceeded
	case len(r.Verdicts):
		return BatchStatusFailed
	default:
		return BatchStatusPartial
	}
}

// FailedBatch enumerates a batch that exhausted its retries, with enough
// detail for the operator to resubmit it later.
type FailedBatch struct {
	BatchID   string `json:"batch_id"`
	Index     int    `json:"index"`
	Size      int    `json:"size"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}
