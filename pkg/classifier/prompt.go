package classifier

import (
	"fmt"
	"sort"
	"strings"
)

const systemPreamble = `You are an auditor for a household victimization survey. Each case pairs a free-text incident narrative (in Spanish) with the crime-category code the interviewer recorded. Judge whether the narrative is consistent with the recorded category.

Known categories:
%s

Respond with a single valid JSON object and nothing else:
{"match": <true|false>, "observed_category": "<best-fitting code>", "justification": "<one or two sentences, in Spanish>"}

Base the judgment only on the narrative text. If the narrative is too vague to support any category, set match to false and explain why.`

const userPromptTemplate = `Recorded category: %s
Narrative:
%s`

// buildSystemPrompt renders the category reference list into the system
// prompt in stable code order.
func buildSystemPrompt(categories map[string]string) string {
	codes := make([]string, 0, len(categories))
	for c := range categories {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	var b strings.Builder
	for _, code := range codes {
		fmt.Fprintf(&b, "- %s: %s\n", code, categories[code])
	}
	return fmt.Sprintf(systemPreamble, strings.TrimRight(b.String(), "\n"))
}

func buildUserPrompt(cs Case) string {
	return fmt.Sprintf(userPromptTemplate, cs.Category, cs.Narrative)
}
