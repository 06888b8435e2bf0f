// Package taxonomy loads the crime-category reference data consumed by the
// pipeline. The taxonomy is externally supplied; the core never defines it.
package taxonomy

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Taxonomy is the closed set of crime categories plus the keyword list the
// pattern analyzer must never treat as removable boilerplate.
type Taxonomy struct {
	Categories map[string]string `yaml:"categories"` // code → label
	SkipWords  []string          `yaml:"skip_words"`

	skip map[string]struct{}
}

// Load reads a taxonomy YAML file. At least one category is required.
func Load(path string) (*Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "taxonomy: read file")
	}
	return Parse(raw)
}

// Parse decodes taxonomy YAML.
func Parse(raw []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, eris.Wrap(err, "taxonomy: unmarshal")
	}
	if len(t.Categories) == 0 {
		return nil, eris.New("taxonomy: no categories defined")
	}

	t.skip = make(map[string]struct{}, len(t.SkipWords))
	for _, w := range t.SkipWords {
		t.skip[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}

	return &t, nil
}

// Known reports whether code belongs to the category set.
func (t *Taxonomy) Known(code string) bool {
	_, ok := t.Categories[code]
	return ok
}

// Label returns the human label for a category code, or the code itself
// when unknown.
func (t *Taxonomy) Label(code string) string {
	if l, ok := t.Categories[code]; ok {
		return l
	}
	return code
}

// IsSkipWord reports whether an upper-cased word is a protected crime
// keyword that pattern removal must leave alone.
func (t *Taxonomy) IsSkipWord(word string) bool {
	_, ok := t.skip[strings.ToUpper(word)]
	return ok
}

// Codes returns the category codes in stable sorted order.
func (t *Taxonomy) Codes() []string {
	codes := make([]string, 0, len(t.Categories))
	for c := range t.Categories {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
