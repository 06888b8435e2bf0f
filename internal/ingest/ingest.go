// Package ingest loads the survey workbook into the observation corpus.
// Rows failing the minimal-quality gate are kept as rejected records with
// a reason so nothing is dropped silently.
package ingest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/model"
)

// Columns maps corpus fields to workbook header names.
type Columns struct {
	HouseholdID   string
	PersonID      string
	ObservationID string
	Category      string
	Narrative     string
}

// DefaultColumns returns the standard export header names.
func DefaultColumns() Columns {
	return Columns{
		HouseholdID:   "household_id",
		PersonID:      "person_id",
		ObservationID: "observation_id",
		Category:      "category",
		Narrative:     "narrative",
	}
}

// Options configures workbook ingestion.
type Options struct {
	SheetName       string // if empty, the first sheet
	Columns         Columns
	MinNarrativeLen int
	MinWords        int
}

// Result pairs the accepted corpus with the rows excluded by the quality
// gate.
type Result struct {
	Observations []model.Observation
	Rejected     []model.RejectedObservation
}

// Survey-form boilerplate tokens that leak into free-text cells.
var boilerplateTokens = []string{"P.", "PREG.", "ITEM", "OBS.", "ESP."}

// LoadWorkbook reads the survey workbook and returns the observation
// corpus. The first row must be a header carrying the configured column
// names.
func LoadWorkbook(path string, opts Options) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open workbook")
	}

	sheet, err := getSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: sheet %q is empty", sheet.Name)
	}

	cols, err := resolveColumns(rowToStrings(sheet.Rows[0]), opts.Columns)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		obs, ok := buildObservation(cells, cols)
		if !ok {
			// Blank row, common at the tail of exported sheets.
			continue
		}

		if reason := gate(obs, opts); reason != "" {
			res.Rejected = append(res.Rejected, model.RejectedObservation{
				Observation: obs,
				Reason:      model.RejectInputRejected,
				Detail:      fmt.Sprintf("row %d: %s", i+2, reason),
			})
			continue
		}
		res.Observations = append(res.Observations, obs)
	}

	zap.L().Info("workbook ingested",
		zap.String("path", path),
		zap.Int("accepted", len(res.Observations)),
		zap.Int("rejected", len(res.Rejected)))

	return res, nil
}

type columnIndex struct {
	household, person, observation, category, narrative int
}

func resolveColumns(header []string, want Columns) (columnIndex, error) {
	if want == (Columns{}) {
		want = DefaultColumns()
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	ci := columnIndex{}
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{want.HouseholdID, &ci.household},
		{want.PersonID, &ci.person},
		{want.ObservationID, &ci.observation},
		{want.Category, &ci.category},
		{want.Narrative, &ci.narrative},
	} {
		pos, ok := idx[strings.ToLower(c.name)]
		if !ok {
			return ci, eris.Errorf("ingest: column %q not found in header", c.name)
		}
		*c.dst = pos
	}
	return ci, nil
}

func buildObservation(cells []string, cols columnIndex) (model.Observation, bool) {
	obs := model.Observation{
		HouseholdID: cell(cells, cols.household),
		PersonID:    cell(cells, cols.person),
		Category:    strings.ToUpper(cell(cells, cols.category)),
		Narrative:   scrubNarrative(cell(cells, cols.narrative)),
	}
	seq := cell(cells, cols.observation)
	if obs.HouseholdID == "" && obs.PersonID == "" && obs.Narrative == "" {
		return obs, false
	}

	obs.SubjectID = obs.HouseholdID + "-" + obs.PersonID
	obs.ObservationID = obs.SubjectID + "-" + seq
	return obs, true
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// scrubNarrative strips survey-form boilerplate tokens and leading
// digits/punctuation that interviewers copy into the free-text cell.
func scrubNarrative(text string) string {
	text = strings.TrimSpace(text)
	for _, tok := range boilerplateTokens {
		text = strings.ReplaceAll(text, tok, " ")
		text = strings.ReplaceAll(text, strings.ToLower(tok), " ")
	}
	text = strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(text), " ")
}

func gate(obs model.Observation, opts Options) string {
	if utf8.RuneCountInString(obs.Narrative) < opts.MinNarrativeLen {
		return fmt.Sprintf("narrative shorter than %d characters", opts.MinNarrativeLen)
	}
	if n := alphaWords(obs.Narrative); n < opts.MinWords {
		return fmt.Sprintf("only %d alphabetic words, need %d", n, opts.MinWords)
	}
	if obs.Category == "" {
		return "missing category code"
	}
	return ""
}

func alphaWords(text string) int {
	n := 0
	for _, w := range strings.Fields(text) {
		for _, r := range w {
			if unicode.IsLetter(r) {
				n++
				break
			}
		}
	}
	return n
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}
