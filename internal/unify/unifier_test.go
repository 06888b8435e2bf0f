package unify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sondeo-labs/crimeval/internal/batch"
	"github.com/sondeo-labs/crimeval/internal/corpus"
	"github.com/sondeo-labs/crimeval/internal/model"
)

func makeCleaned(n int) []model.Observation {
	obs := make([]model.Observation, n)
	for i := range obs {
		obs[i] = model.Observation{
			ObservationID: fmt.Sprintf("H%03d-P01-1", i+1),
			SubjectID:     fmt.Sprintf("H%03d-P01", i+1),
			Category:      "D01",
			Narrative:     "Le robaron la bicicleta en la puerta de su casa",
			Cleaned:       "Robaron la bicicleta en la puerta de su casa",
		}
	}
	return obs
}

func writeResult(t *testing.T, dir string, res model.BatchResult) {
	t.Helper()
	require.NoError(t, corpus.WriteFile(batch.ResultPath(dir, res.BatchID), []model.BatchResult{res}))
}

func succeededResult(index int, obs []model.Observation) model.BatchResult {
	verdicts := make(map[string]model.Verdict, len(obs))
	for _, o := range obs {
		verdicts[o.ObservationID] = model.Verdict{Match: true, Justification: "consistente"}
	}
	return model.BatchResult{
		BatchID:  batch.BatchID(index),
		Index:    index,
		Status:   model.BatchStatusSucceeded,
		Verdicts: verdicts,
	}
}

func TestUnify_CoverageAccounting(t *testing.T) {
	dir := t.TempDir()
	cleaned := makeCleaned(6)

	// Batch 1 succeeded, batch 2 failed and holds no verdicts.
	writeResult(t, dir, succeededResult(0, cleaned[:3]))
	writeResult(t, dir, model.BatchResult{
		BatchID: batch.BatchID(1), Index: 1,
		Status: model.BatchStatusFailed, LastError: "timeout",
	})

	out, err := Unify(cleaned, dir, 3)
	require.NoError(t, err)

	// Covered + gaps partition the corpus exactly.
	assert.Len(t, out.Flat, 3)
	require.Len(t, out.Gaps, 3)
	assert.Equal(t, len(cleaned), len(out.Flat)+len(out.Gaps))

	// Gaps carry the original narrative so downstream adjudication does
	// not need the corpus file.
	for _, gap := range out.Gaps {
		assert.Equal(t, "batch-0002", gap.BatchID)
		assert.Equal(t, "D01", gap.Category)
		assert.Equal(t, "Le robaron la bicicleta en la puerta de su casa", gap.Narrative)
		assert.Equal(t, "Robaron la bicicleta en la puerta de su casa", gap.Cleaned)
	}
}

func TestUnify_NestedRollup(t *testing.T) {
	dir := t.TempDir()
	cleaned := []model.Observation{
		{ObservationID: "H001-P01-1", SubjectID: "H001-P01", Category: "D01", Narrative: "a"},
		{ObservationID: "H001-P01-2", SubjectID: "H001-P01", Category: "D02", Narrative: "b"},
		{ObservationID: "H002-P01-1", SubjectID: "H002-P01", Category: "D01", Narrative: "c"},
	}
	writeResult(t, dir, model.BatchResult{
		BatchID: batch.BatchID(0), Index: 0, Status: model.BatchStatusPartial,
		Verdicts: map[string]model.Verdict{
			"H001-P01-1": {Match: true},
			"H001-P01-2": {Match: false, Observed: "D05", Justification: "describe una estafa"},
			"H002-P01-1": {Error: "unparseable response"},
		},
	})

	out, err := Unify(cleaned, dir, 350)
	require.NoError(t, err)

	require.Len(t, out.Subjects, 2)
	first := out.Subjects[0]
	assert.Equal(t, "H001-P01", first.SubjectID)
	assert.Len(t, first.Observations, 2)
	assert.Equal(t, 1, first.Mismatches)
	assert.Zero(t, first.Errors)

	second := out.Subjects[1]
	assert.Equal(t, 1, second.Errors)
	assert.Zero(t, second.Mismatches)
}

func TestUnify_Deterministic(t *testing.T) {
	dir := t.TempDir()
	cleaned := makeCleaned(10)
	// Two batch files written out of order.
	writeResult(t, dir, succeededResult(1, cleaned[5:]))
	writeResult(t, dir, succeededResult(0, cleaned[:5]))

	first, err := Unify(cleaned, dir, 5)
	require.NoError(t, err)
	second, err := Unify(cleaned, dir, 5)
	require.NoError(t, err)

	assert.Equal(t, first.Flat, second.Flat)
	assert.Equal(t, first.Subjects, second.Subjects)

	// Ordering is by subject id, then observation id.
	for i := 1; i < len(first.Flat); i++ {
		prev, cur := first.Flat[i-1], first.Flat[i]
		less := prev.SubjectID < cur.SubjectID ||
			(prev.SubjectID == cur.SubjectID && prev.ObservationID < cur.ObservationID)
		assert.True(t, less, "records out of order at %d", i)
	}
}

func TestUnify_NoResultsDirectory(t *testing.T) {
	cleaned := makeCleaned(2)

	out, err := Unify(cleaned, t.TempDir()+"/missing", 350)
	require.NoError(t, err)
	assert.Empty(t, out.Flat)
	assert.Len(t, out.Gaps, 2)
}
