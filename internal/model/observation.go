package model

// Observation is one survey response unit: a free-text crime narrative
// together with the crime-category code the respondent selected.
type Observation struct {
	HouseholdID   string `json:"household_id"`
	PersonID      string `json:"person_id"`
	ObservationID string `json:"observation_id"`
	SubjectID     string `json:"subject_id"`
	Category      string `json:"category"`
	Narrative     string `json:"narrative"`
	// Cleaned is the derived narrative after pattern removal. The original
	// Narrative is never mutated; both travel together for audit.
	Cleaned string `json:"cleaned,omitempty"`
}

// Text returns the narrative that should be shown to the classifier:
// the cleaned form when present, the original otherwise.
func (o Observation) Text() string {
	if o.Cleaned != "" {
		return o.Cleaned
	}
	return o.Narrative
}

// RejectReason explains why an observation was excluded from the
// classification corpus.
type RejectReason string

const (
	// RejectInputRejected marks observations failing the minimal-quality
	// gate (too short or too few words, before or after cleaning).
	RejectInputRejected RejectReason = "INPUT_REJECTED"
)

// RejectedObservation records an excluded observation with its reason so
// nothing is dropped silently.
type RejectedObservation struct {
	Observation Observation  `json:"observation"`
	Reason      RejectReason `json:"reason"`
	Detail      string       `json:"detail,omitempty"`
}

// Pattern is a recurring leading text fragment with its corpus frequency.
type Pattern struct {
	Fragment string  `json:"fragment"`
	Words    int     `json:"words"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
	Removed  bool    `json:"removed"`
}
