package classifier

import (
	"encoding/json"
	"regexp"
	"strings"
)

type rawVerdict struct {
	Match            *bool  `json:"match"`
	ObservedCategory string `json:"observed_category"`
	Justification    string `json:"justification"`
}

var matchFieldRe = regexp.MustCompile(`"match"\s*:\s*(true|false)`)

// parseResult extracts a verdict from the model response with progressive
// fallback: strict JSON, then an embedded JSON object, then a bare regex
// scan for the match field. A response that survives none of these is an
// explicit per-case error, never a silent pass.
func parseResult(cs Case, raw string) Result {
	res := Result{ObservationID: cs.ObservationID, Raw: raw}

	text := stripFences(raw)

	var v rawVerdict
	if err := json.Unmarshal([]byte(text), &v); err != nil || v.Match == nil {
		// Embedded object: the model sometimes prefixes commentary.
		if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
			v = rawVerdict{}
			if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
				v.Match = nil
			}
		}
	}

	if v.Match != nil {
		res.Match = *v.Match
		res.Observed = strings.TrimSpace(v.ObservedCategory)
		res.Justification = strings.TrimSpace(v.Justification)
		return res
	}

	// Last resort: truncated output that still carries the match field.
	if m := matchFieldRe.FindStringSubmatch(text); m != nil {
		res.Match = m[1] == "true"
		res.Justification = "verdict recovered from truncated response"
		return res
	}

	snippet := text
	if len(snippet) > 120 {
		snippet = snippet[:120]
	}
	res.Err = "unparseable response: " + snippet
	return res
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
