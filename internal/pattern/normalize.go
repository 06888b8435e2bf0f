package pattern

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics removes combining marks so "AGRESIÓN" and "AGRESION"
// count as the same fragment. Survey narratives mix accented and
// unaccented spellings freely.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeWord folds a single word to its comparison form: upper-cased,
// diacritic-free, trimmed of surrounding punctuation.
func normalizeWord(w string) string {
	folded, _, err := transform.String(stripDiacritics, w)
	if err != nil {
		folded = w
	}
	folded = strings.ToUpper(folded)
	return strings.TrimFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// fields splits a narrative on whitespace, collapsing runs.
func fields(text string) []string {
	return strings.Fields(text)
}

// normalizeWords returns the comparison form of the first n words of text,
// or fewer when the text is shorter. Empty normalized words (pure
// punctuation tokens) are kept positional so removal offsets stay aligned.
func normalizeWords(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = normalizeWord(w)
	}
	return out
}

// countSyllables approximates Spanish syllable count by counting vowel
// groups. Single words this short carry no boilerplate signal, so the
// analyzer skips them as removal candidates.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	const vowels = "aeiouáéíóúü"

	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if count < 1 {
		return 1
	}
	return count
}

// capitalize upper-cases the first letter of a cleaned narrative.
func capitalize(text string) string {
	r := []rune(text)
	if len(r) == 0 {
		return text
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// countAlphaWords counts words containing at least one letter.
func countAlphaWords(text string) int {
	n := 0
	for _, w := range fields(text) {
		if strings.IndexFunc(w, unicode.IsLetter) >= 0 {
			n++
		}
	}
	return n
}
