// Package batch partitions the cleaned corpus into fixed-size batches and
// drives their submission to the classification service with retry,
// write-ahead persistence and idempotent resume.
package batch

import (
	"fmt"
	"path/filepath"

	"github.com/sondeo-labs/crimeval/internal/model"
)

// Partition splits observations into ordered fixed-size batches. The
// split is strict: every observation lands in exactly one batch, order is
// preserved, and only the final batch may be short. A nil or empty input
// yields no batches.
func Partition(observations []model.Observation, size int) []model.Batch {
	if size <= 0 || len(observations) == 0 {
		return nil
	}

	batches := make([]model.Batch, 0, (len(observations)+size-1)/size)
	for start := 0; start < len(observations); start += size {
		end := start + size
		if end > len(observations) {
			end = len(observations)
		}
		idx := len(batches)
		batches = append(batches, model.Batch{
			ID:           BatchID(idx),
			Index:        idx,
			Observations: observations[start:end],
		})
	}
	return batches
}

// BatchID renders the canonical id for a batch index.
func BatchID(index int) string {
	return fmt.Sprintf("batch-%04d", index+1)
}

// ResultPath is the durable result file for a batch id.
func ResultPath(dir, batchID string) string {
	return filepath.Join(dir, batchID+".jsonl")
}
