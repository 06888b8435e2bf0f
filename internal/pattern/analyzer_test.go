package pattern

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sondeo-labs/crimeval/internal/model"
	"github.com/sondeo-labs/crimeval/internal/taxonomy"
)

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Parse([]byte(`categories:
  D01: Robo de cartera o celular
skip_words:
  - ROBO
  - HURTO
  - ROBARON
  - AGRESION
`))
	require.NoError(t, err)
	return tax
}

func corpusWithPrefix(prefix string, withPrefix, total int) []model.Observation {
	obs := make([]model.Observation, total)
	for i := range obs {
		text := "una persona desconocida le quito sus pertenencias en la via publica"
		if i < withPrefix {
			text = prefix + " " + text
		}
		obs[i] = model.Observation{
			ObservationID: fmt.Sprintf("H%03d-P01-1", i+1),
			Narrative:     text,
		}
	}
	return obs
}

func findPattern(t *testing.T, report *Report, fragment string) model.Pattern {
	t.Helper()
	for _, p := range report.Patterns {
		if p.Fragment == fragment {
			return p
		}
	}
	t.Fatalf("pattern %q not in report", fragment)
	return model.Pattern{}
}

func TestAnalyze_BothThresholdsRequired(t *testing.T) {
	// 100 observations: one prefix hits 12 occurrences (12%), another 8
	// (8%). With min count 10 and min percent 5, only the first qualifies.
	obs := corpusWithPrefix("el encuestado manifiesta", 12, 100)
	for i := 90; i < 98; i++ {
		obs[i].Narrative = "refiere haber sido victima " + obs[i].Narrative
	}

	cfg := Config{MinCount: 10, MinPercent: 5.0}
	report := Analyze(cfg, testTaxonomy(t), obs)

	qualifying := findPattern(t, report, "EL ENCUESTADO MANIFIESTA")
	assert.True(t, qualifying.Removed)
	assert.Equal(t, 12, qualifying.Count)
	assert.InDelta(t, 12.0, qualifying.Percent, 0.01)

	// 8 occurrences: clears the percent bar but not the count bar, so it
	// is reported without qualifying for removal.
	reported := findPattern(t, report, "REFIERE HABER SIDO")
	assert.False(t, reported.Removed)
	assert.Equal(t, 8, reported.Count)
}

func TestAnalyze_CountsOncePerObservation(t *testing.T) {
	// The leading fragment only counts once no matter how often the words
	// recur inside the narrative.
	obs := []model.Observation{
		{ObservationID: "a", Narrative: "dice que dice que dice que algo paso"},
		{ObservationID: "b", Narrative: "dice que le paso algo distinto"},
	}

	report := Analyze(Config{MinCount: 1, MinPercent: 0}, testTaxonomy(t), obs)
	assert.Equal(t, 2, findPattern(t, report, "DICE QUE").Count)
}

func TestAnalyze_SkipWordsNeverQualify(t *testing.T) {
	obs := corpusWithPrefix("robaron", 50, 50)

	report := Analyze(Config{MinCount: 2, MinPercent: 1}, testTaxonomy(t), obs)
	for _, p := range report.Patterns {
		assert.NotContains(t, p.Fragment, "ROBARON")
	}
}

func TestAnalyze_ShortSingleWordsSkipped(t *testing.T) {
	// "SE" and "LE" are below the syllable floor; they never become
	// single-word candidates even at 100% frequency.
	obs := corpusWithPrefix("se", 50, 50)

	report := Analyze(Config{MinCount: 2, MinPercent: 1}, testTaxonomy(t), obs)
	for _, p := range report.Patterns {
		if p.Words == 1 {
			assert.NotEqual(t, "SE", p.Fragment)
		}
	}
}

func TestAnalyze_DiacriticsFold(t *testing.T) {
	obs := []model.Observation{
		{ObservationID: "a", Narrative: "declaró que fue asaltada en el mercado"},
		{ObservationID: "b", Narrative: "declaro que fue amenazado cerca de su casa"},
	}

	report := Analyze(Config{MinCount: 2, MinPercent: 0}, testTaxonomy(t), obs)
	assert.Equal(t, 2, findPattern(t, report, "DECLARO QUE").Count)
}

func TestAnalyze_EmptyCorpus(t *testing.T) {
	report := Analyze(Config{MinCount: 10, MinPercent: 5}, testTaxonomy(t), nil)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Patterns)
}
