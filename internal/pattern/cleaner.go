package pattern

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/model"
)

// Result carries the cleaning output: the modified corpus, the
// observations re-flagged as rejected, and summary statistics.
type Result struct {
	Cleaned  []model.Observation
	Rejected []model.RejectedObservation
	Modified int
}

// Clean strips the qualifying fragments from every narrative. Removal is
// longest-fragment-first (3 words, then 2, then 1), anchored at the start
// of the narrative, so an overlapping shorter fragment never leaves a
// dangling remnant of a longer one. The original narrative field is
// preserved untouched; the derived text lands in Cleaned.
//
// Narratives reduced below the minimum meaningful length are re-flagged
// as rejected rather than sent downstream.
func Clean(cfg Config, report *Report, observations []model.Observation) *Result {
	removable := report.Removable()
	res := &Result{}

	for _, obs := range observations {
		cleaned := removeFragments(obs.Narrative, removable)
		if cleaned != obs.Narrative {
			res.Modified++
		}

		// Rune count, not bytes: accented narratives must not slip past
		// the minimum with fewer visible characters.
		if utf8.RuneCountInString(cleaned) < cfg.MinNarrativeLen || countAlphaWords(cleaned) < cfg.MinWords {
			res.Rejected = append(res.Rejected, model.RejectedObservation{
				Observation: obs,
				Reason:      model.RejectInputRejected,
				Detail:      fmt.Sprintf("narrative below minimum meaningful length after cleaning (%d chars, %d words)", utf8.RuneCountInString(cleaned), countAlphaWords(cleaned)),
			})
			continue
		}

		obs.Cleaned = cleaned
		res.Cleaned = append(res.Cleaned, obs)
	}

	zap.L().Info("pattern cleaning complete",
		zap.Int("input", len(observations)),
		zap.Int("cleaned", len(res.Cleaned)),
		zap.Int("modified", res.Modified),
		zap.Int("rejected", len(res.Rejected)),
	)

	return res
}

// removeFragments strips matching leading fragments from text, longest
// length first. Within a length, fragments apply in the Removable order;
// after a strip the remaining text is re-checked against the next
// fragments, so stacked boilerplate ("EL DIA LUNES" then "ROBARON") peels
// off one layer at a time.
func removeFragments(text string, removable [][]string) string {
	words := fields(text)

	for _, frags := range removable {
		for _, frag := range frags {
			fragWords := strings.Split(frag, " ")
			if len(words) < len(fragWords) {
				continue
			}
			if leadingMatch(words, fragWords) {
				words = words[len(fragWords):]
			}
		}
	}

	cleaned := strings.Join(words, " ")
	if cleaned == "" {
		return ""
	}
	return capitalize(cleaned)
}

// leadingMatch reports whether the normalized leading words equal frag.
func leadingMatch(words, frag []string) bool {
	for i, fw := range frag {
		if normalizeWord(words[i]) != fw {
			return false
		}
	}
	return true
}
