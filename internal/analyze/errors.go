// Package analyze extracts the records needing human attention from the
// unified views: category mismatches, classifier errors and coverage
// gaps. The extraction is a pure projection; it never re-runs anything.
package analyze

import (
	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/model"
)

// Extract projects the flattened records and coverage gaps into one
// adjudication list. Flat records contribute MISMATCH and API_ERROR
// entries in their (already deterministic) order; gaps follow as
// COVERAGE_GAP entries. The output replaces any previous extraction.
func Extract(flat []model.FlatRecord, gaps []model.CoverageGap) []model.ErrorRecord {
	var out []model.ErrorRecord

	for _, rec := range flat {
		switch {
		case rec.Verdict.Errored():
			out = append(out, model.ErrorRecord{
				Kind:          model.ErrorKindAPIError,
				SubjectID:     rec.SubjectID,
				ObservationID: rec.ObservationID,
				Narrative:     rec.Narrative,
				Cleaned:       rec.Cleaned,
				Expected:      rec.Category,
				Justification: rec.Verdict.Error,
				BatchID:       rec.BatchID,
			})
		case !rec.Verdict.Match:
			out = append(out, model.ErrorRecord{
				Kind:          model.ErrorKindMismatch,
				SubjectID:     rec.SubjectID,
				ObservationID: rec.ObservationID,
				Narrative:     rec.Narrative,
				Cleaned:       rec.Cleaned,
				Expected:      rec.Category,
				Observed:      rec.Verdict.Observed,
				Justification: rec.Verdict.Justification,
				BatchID:       rec.BatchID,
			})
		}
	}

	for _, gap := range gaps {
		out = append(out, model.ErrorRecord{
			Kind:          model.ErrorKindCoverageGap,
			SubjectID:     gap.SubjectID,
			ObservationID: gap.ObservationID,
			Narrative:     gap.Narrative,
			Cleaned:       gap.Cleaned,
			Expected:      gap.Category,
			BatchID:       gap.BatchID,
		})
	}

	counts := map[model.ErrorKind]int{}
	for _, r := range out {
		counts[r.Kind]++
	}
	zap.L().Info("error extraction complete",
		zap.Int("total", len(out)),
		zap.Int("mismatches", counts[model.ErrorKindMismatch]),
		zap.Int("api_errors", counts[model.ErrorKindAPIError]),
		zap.Int("coverage_gaps", counts[model.ErrorKindCoverageGap]))

	return out
}
