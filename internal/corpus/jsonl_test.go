package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sondeo-labs/crimeval/internal/model"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.jsonl")
	in := []model.Observation{
		{ObservationID: "H001-P01-1", SubjectID: "H001-P01", Category: "D01", Narrative: "Le robaron el celular"},
		{ObservationID: "H002-P01-1", SubjectID: "H002-P01", Category: "D02", Narrative: "Entraron a la vivienda"},
	}

	require.NoError(t, WriteFile(path, in))
	out, err := ReadFile[model.Observation](path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	require.NoError(t, WriteFile(path, []model.Observation{{ObservationID: "old"}}))
	require.NoError(t, WriteFile(path, []model.Observation{{ObservationID: "new"}}))

	out, err := ReadFile[model.Observation](path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "new", out[0].ObservationID)

	// No temp siblings left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadFile_MalformedLineIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"observation_id\":\"a\"}\nnot json\n"), 0o644))

	_, err := ReadFile[model.Observation](path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")
}

func TestReadFile_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gappy.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"observation_id\":\"a\"}\n\n{\"observation_id\":\"b\"}\n"), 0o644))

	out, err := ReadFile[model.Observation](path)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "present.jsonl")
	assert.False(t, Exists(path))
	require.NoError(t, WriteFile(path, []model.Observation{}))
	assert.True(t, Exists(path))
}
