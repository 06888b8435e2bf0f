// Package report assembles the reviewer-facing workbook from the
// flattened and error JSONL outputs. Plain cell values only; the
// workbook is a delivery format, not a styled document.
package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/model"
)

// Write renders the workbook at path with three sheets: a run summary,
// every flattened observation, and the adjudication list.
func Write(path string, flat []model.FlatRecord, errs []model.ErrorRecord) error {
	f := xlsx.NewFile()

	if err := writeSummary(f, flat, errs); err != nil {
		return err
	}
	if err := writeFlattened(f, flat); err != nil {
		return err
	}
	if err := writeErrors(f, errs); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}

	zap.L().Info("report written",
		zap.String("path", path),
		zap.Int("observations", len(flat)),
		zap.Int("errors", len(errs)))
	return nil
}

func writeSummary(f *xlsx.File, flat []model.FlatRecord, errs []model.ErrorRecord) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	matches, mismatches, apiErrors := 0, 0, 0
	for _, rec := range flat {
		switch {
		case rec.Verdict.Errored():
			apiErrors++
		case rec.Verdict.Match:
			matches++
		default:
			mismatches++
		}
	}
	gaps := 0
	for _, e := range errs {
		if e.Kind == model.ErrorKindCoverageGap {
			gaps++
		}
	}

	for _, row := range [][2]string{
		{"Observations classified", strconv.Itoa(len(flat))},
		{"Consistent", strconv.Itoa(matches)},
		{"Mismatches", strconv.Itoa(mismatches)},
		{"Classifier errors", strconv.Itoa(apiErrors)},
		{"Coverage gaps", strconv.Itoa(gaps)},
	} {
		r := sheet.AddRow()
		r.AddCell().SetString(row[0])
		r.AddCell().SetString(row[1])
	}
	return nil
}

func writeFlattened(f *xlsx.File, flat []model.FlatRecord) error {
	sheet, err := f.AddSheet("Flattened")
	if err != nil {
		return eris.Wrap(err, "report: add flattened sheet")
	}

	addRow(sheet, "subject_id", "observation_id", "category", "match",
		"observed", "justification", "narrative", "cleaned", "batch_id")
	for _, rec := range flat {
		addRow(sheet,
			rec.SubjectID,
			rec.ObservationID,
			rec.Category,
			strconv.FormatBool(rec.Verdict.Match),
			rec.Verdict.Observed,
			rec.Verdict.Justification,
			rec.Narrative,
			rec.Cleaned,
			rec.BatchID,
		)
	}
	return nil
}

func writeErrors(f *xlsx.File, errs []model.ErrorRecord) error {
	sheet, err := f.AddSheet("Errors")
	if err != nil {
		return eris.Wrap(err, "report: add errors sheet")
	}

	addRow(sheet, "kind", "subject_id", "observation_id", "expected",
		"observed", "justification", "narrative", "cleaned", "batch_id")
	for _, e := range errs {
		addRow(sheet,
			string(e.Kind),
			e.SubjectID,
			e.ObservationID,
			e.Expected,
			e.Observed,
			e.Justification,
			e.Narrative,
			e.Cleaned,
			e.BatchID,
		)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
