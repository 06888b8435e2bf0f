// Package pattern detects boilerplate text fragments recurring at the
// start of survey narratives and strips them before classification.
package pattern

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/model"
	"github.com/sondeo-labs/crimeval/internal/taxonomy"
)

// maxFragmentWords bounds fragment extraction to the leading 1, 2 and 3
// words of each narrative. Interviewer boilerplate clusters at the start.
const maxFragmentWords = 3

// minSyllables is the single-word candidate floor: one- and two-syllable
// words (SE, LE, EN...) are connective tissue, not boilerplate.
const minSyllables = 3

// Config holds the pattern thresholds. A fragment is only eligible for
// removal when count >= MinCount AND percent >= MinPercent.
type Config struct {
	MinCount        int
	MinPercent      float64
	MinNarrativeLen int
	MinWords        int
}

// Report is the pattern analysis output: every fragment that met at least
// one threshold, flagged with whether it qualified for removal.
type Report struct {
	Total    int
	Patterns []model.Pattern
}

// Removable returns the qualifying fragments grouped by word length,
// longest first, each length ordered by descending count.
func (r *Report) Removable() [][]string {
	byLen := map[int][]model.Pattern{}
	for _, p := range r.Patterns {
		if p.Removed {
			byLen[p.Words] = append(byLen[p.Words], p)
		}
	}
	out := make([][]string, 0, maxFragmentWords)
	for length := maxFragmentWords; length >= 1; length-- {
		ps := byLen[length]
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].Count != ps[j].Count {
				return ps[i].Count > ps[j].Count
			}
			return ps[i].Fragment < ps[j].Fragment
		})
		frags := make([]string, len(ps))
		for i, p := range ps {
			frags[i] = p.Fragment
		}
		out = append(out, frags)
	}
	return out
}

// Analyze counts normalized leading fragments across the corpus. A
// fragment is counted once per observation regardless of repetition within
// it, so one verbose narrative cannot dominate the frequency statistics.
// An empty corpus is a no-op success with an empty report.
func Analyze(cfg Config, tax *taxonomy.Taxonomy, observations []model.Observation) *Report {
	counts := make(map[string]int)
	wordsOf := make(map[string]int)

	for _, obs := range observations {
		words := normalizeWords(fields(obs.Narrative))
		for length := 1; length <= maxFragmentWords && length <= len(words); length++ {
			frag := words[:length]
			if skipFragment(tax, frag, length) {
				continue
			}
			key := strings.Join(frag, " ")
			counts[key]++
			wordsOf[key] = length
		}
	}

	report := &Report{Total: len(observations)}
	for key, count := range counts {
		percent := 0.0
		if report.Total > 0 {
			percent = float64(count) / float64(report.Total) * 100
		}
		meetsCount := count >= cfg.MinCount
		meetsPercent := percent >= cfg.MinPercent

		// Report fragments that cleared at least one bar; removal demands both.
		if !meetsCount && !meetsPercent {
			continue
		}
		report.Patterns = append(report.Patterns, model.Pattern{
			Fragment: key,
			Words:    wordsOf[key],
			Count:    count,
			Percent:  percent,
			Removed:  meetsCount && meetsPercent,
		})
	}

	sort.Slice(report.Patterns, func(i, j int) bool {
		a, b := report.Patterns[i], report.Patterns[j]
		if a.Words != b.Words {
			return a.Words > b.Words
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Fragment < b.Fragment
	})

	removable := 0
	for _, p := range report.Patterns {
		if p.Removed {
			removable++
		}
	}
	zap.L().Info("pattern analysis complete",
		zap.Int("observations", report.Total),
		zap.Int("candidates", len(report.Patterns)),
		zap.Int("removable", removable),
	)

	return report
}

// skipFragment filters fragments that must never be removed: anything
// containing a protected crime keyword, and short single words.
func skipFragment(tax *taxonomy.Taxonomy, frag []string, length int) bool {
	for _, w := range frag {
		if w == "" {
			return true
		}
		if tax != nil && tax.IsSkipWord(w) {
			return true
		}
	}
	if length == 1 && countSyllables(frag[0]) < minSyllables {
		return true
	}
	return false
}
