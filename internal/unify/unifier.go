// Package unify merges persisted batch results into the two review views:
// a flattened per-observation file and a nested per-subject file. Output
// is deterministic for a given set of inputs.
package unify

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/batch"
	"github.com/sondeo-labs/crimeval/internal/corpus"
	"github.com/sondeo-labs/crimeval/internal/model"
)

// Output carries both views plus the observations that no verdict covers.
type Output struct {
	Flat     []model.FlatRecord
	Subjects []model.SubjectRecord
	Gaps     []model.CoverageGap
}

// Unify joins the cleaned corpus against every persisted batch result in
// dir. Each observation either receives its verdict (flattened + nested)
// or is recorded as a coverage gap; the two sets always partition the
// corpus exactly. batchSize must match the partition used at submission
// so gaps can name the batch they belonged to.
func Unify(cleaned []model.Observation, dir string, batchSize int) (*Output, error) {
	results, err := loadResults(dir)
	if err != nil {
		return nil, err
	}

	verdicts := make(map[string]model.Verdict)
	batchOf := make(map[string]string)
	for _, r := range results {
		for obsID, v := range r.Verdicts {
			verdicts[obsID] = v
			batchOf[obsID] = r.BatchID
		}
	}

	out := &Output{}
	for i, obs := range cleaned {
		v, ok := verdicts[obs.ObservationID]
		if !ok {
			gap := model.CoverageGap{
				SubjectID:     obs.SubjectID,
				ObservationID: obs.ObservationID,
				Category:      obs.Category,
				Narrative:     obs.Narrative,
				Cleaned:       obs.Cleaned,
			}
			if batchSize > 0 {
				gap.BatchID = batch.BatchID(i / batchSize)
			}
			out.Gaps = append(out.Gaps, gap)
			continue
		}
		out.Flat = append(out.Flat, model.FlatRecord{
			SubjectID:     obs.SubjectID,
			ObservationID: obs.ObservationID,
			Category:      obs.Category,
			Narrative:     obs.Narrative,
			Cleaned:       obs.Cleaned,
			Verdict:       v,
			BatchID:       batchOf[obs.ObservationID],
		})
	}

	sortFlat(out.Flat)
	sort.Slice(out.Gaps, func(i, j int) bool {
		if out.Gaps[i].SubjectID != out.Gaps[j].SubjectID {
			return out.Gaps[i].SubjectID < out.Gaps[j].SubjectID
		}
		return out.Gaps[i].ObservationID < out.Gaps[j].ObservationID
	})
	out.Subjects = nest(out.Flat)

	zap.L().Info("batch results unified",
		zap.Int("observations", len(cleaned)),
		zap.Int("covered", len(out.Flat)),
		zap.Int("gaps", len(out.Gaps)),
		zap.Int("subjects", len(out.Subjects)))

	return out, nil
}

// loadResults reads every batch result file in dir, ordered by batch
// index.
func loadResults(dir string) ([]model.BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "unify: read dir %s", dir)
	}

	var all []model.BatchResult
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "batch-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		results, err := corpus.ReadFile[model.BatchResult](filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all, nil
}

func sortFlat(flat []model.FlatRecord) {
	sort.Slice(flat, func(i, j int) bool {
		if flat[i].SubjectID != flat[j].SubjectID {
			return flat[i].SubjectID < flat[j].SubjectID
		}
		return flat[i].ObservationID < flat[j].ObservationID
	})
}

// nest groups the sorted flattened records per subject with the review
// rollup.
func nest(flat []model.FlatRecord) []model.SubjectRecord {
	var subjects []model.SubjectRecord
	for _, rec := range flat {
		if len(subjects) == 0 || subjects[len(subjects)-1].SubjectID != rec.SubjectID {
			subjects = append(subjects, model.SubjectRecord{SubjectID: rec.SubjectID})
		}
		s := &subjects[len(subjects)-1]
		s.Observations = append(s.Observations, rec)
		if rec.Verdict.Errored() {
			s.Errors++
		} else if !rec.Verdict.Match {
			s.Mismatches++
		}
	}
	return subjects
}
