package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("casos")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "survey.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func defaultOpts() Options {
	return Options{MinNarrativeLen: 21, MinWords: 5}
}

func TestLoadWorkbook_BuildsCompositeIDs(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"household_id", "person_id", "observation_id", "category", "narrative"},
		{"H001", "P01", "1", "d01", "Le quitaron la cartera cuando caminaba por la avenida"},
	})

	res, err := LoadWorkbook(path, defaultOpts())
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)

	obs := res.Observations[0]
	assert.Equal(t, "H001-P01", obs.SubjectID)
	assert.Equal(t, "H001-P01-1", obs.ObservationID)
	assert.Equal(t, "D01", obs.Category)
}

func TestLoadWorkbook_QualityGate(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"household_id", "person_id", "observation_id", "category", "narrative"},
		{"H001", "P01", "1", "d01", "muy corto"},
		{"H001", "P01", "2", "d01", "Entraron a la vivienda y se llevaron varios artefactos"},
		{"H002", "P01", "1", "", "Una descripcion suficientemente larga sin categoria registrada"},
	})

	res, err := LoadWorkbook(path, defaultOpts())
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	require.Len(t, res.Rejected, 2)

	assert.Equal(t, "H001-P01-2", res.Observations[0].ObservationID)
	assert.Contains(t, res.Rejected[0].Detail, "narrative shorter")
	assert.Contains(t, res.Rejected[1].Detail, "missing category")
}

func TestLoadWorkbook_ScrubsBoilerplate(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"household_id", "person_id", "observation_id", "category", "narrative"},
		{"H001", "P01", "1", "d02", "12. PREG. Lo amenazaron con un cuchillo para quitarle el celular"},
	})

	res, err := LoadWorkbook(path, defaultOpts())
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	assert.Equal(t, "Lo amenazaron con un cuchillo para quitarle el celular", res.Observations[0].Narrative)
}

func TestLoadWorkbook_LengthGateCountsRunes(t *testing.T) {
	// 21 bytes but only 17 characters; the accents must not pad the
	// narrative past the minimum length.
	path := writeWorkbook(t, [][]string{
		{"household_id", "person_id", "observation_id", "category", "narrative"},
		{"H001", "P01", "1", "d03", "Le pegó a su ñañá"},
	})

	res, err := LoadWorkbook(path, defaultOpts())
	require.NoError(t, err)
	assert.Empty(t, res.Observations)
	require.Len(t, res.Rejected, 1)
	assert.Contains(t, res.Rejected[0].Detail, "narrative shorter")
}

func TestLoadWorkbook_MissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"household_id", "person_id", "category", "narrative"},
	})

	_, err := LoadWorkbook(path, defaultOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observation_id")
}

func TestLoadWorkbook_SkipsBlankTailRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"household_id", "person_id", "observation_id", "category", "narrative"},
		{"H001", "P01", "1", "d01", "Le arrebataron el bolso mientras esperaba el autobus"},
		{"", "", "", "", ""},
	})

	res, err := LoadWorkbook(path, defaultOpts())
	require.NoError(t, err)
	assert.Len(t, res.Observations, 1)
	assert.Empty(t, res.Rejected)
}
