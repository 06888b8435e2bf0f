package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sondeo-labs/crimeval/internal/model"
)

func TestWrite_ThreeSheets(t *testing.T) {
	flat := []model.FlatRecord{
		{
			SubjectID: "H001-P01", ObservationID: "H001-P01-1", Category: "D01",
			Narrative: "Le robaron el celular",
			Verdict:   model.Verdict{Match: true, Justification: "consistente"},
			BatchID:   "batch-0001",
		},
		{
			SubjectID: "H001-P01", ObservationID: "H001-P01-2", Category: "D01",
			Narrative: "Lo estafaron por internet",
			Verdict:   model.Verdict{Match: false, Observed: "D05", Justification: "es una estafa"},
			BatchID:   "batch-0001",
		},
	}
	errs := []model.ErrorRecord{
		{Kind: model.ErrorKindMismatch, ObservationID: "H001-P01-2", Expected: "D01", Observed: "D05"},
		{Kind: model.ErrorKindCoverageGap, ObservationID: "H002-P01-1", Expected: "D02", BatchID: "batch-0002"},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, Write(path, flat, errs))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, "Summary", f.Sheets[0].Name)
	assert.Equal(t, "Flattened", f.Sheets[1].Name)
	assert.Equal(t, "Errors", f.Sheets[2].Name)

	// Flattened: header plus one row per record.
	require.Len(t, f.Sheets[1].Rows, 3)
	assert.Equal(t, "H001-P01-1", f.Sheets[1].Rows[1].Cells[1].String())
	assert.Equal(t, "false", f.Sheets[1].Rows[2].Cells[3].String())

	// Summary counts one consistent, one mismatch, one gap.
	summary := map[string]string{}
	for _, row := range f.Sheets[0].Rows {
		summary[row.Cells[0].String()] = row.Cells[1].String()
	}
	assert.Equal(t, "2", summary["Observations classified"])
	assert.Equal(t, "1", summary["Consistent"])
	assert.Equal(t, "1", summary["Mismatches"])
	assert.Equal(t, "1", summary["Coverage gaps"])

	// Errors sheet carries the kind column.
	require.Len(t, f.Sheets[2].Rows, 3)
	assert.Equal(t, "MISMATCH", f.Sheets[2].Rows[1].Cells[0].String())
	assert.Equal(t, "COVERAGE_GAP", f.Sheets[2].Rows[2].Cells[0].String())
}

func TestWrite_EmptyInputsStillProduceWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, Write(path, nil, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Len(t, f.Sheets[1].Rows, 1) // header only
}
