package model

// FlatRecord is the flattened view: one row per observation, carrying the
// classifier output verbatim. Used for row-level reporting.
type FlatRecord struct {
	SubjectID     string  `json:"subject_id"`
	ObservationID string  `json:"observation_id"`
	Category      string  `json:"category"`
	Narrative     string  `json:"narrative"`
	Cleaned       string  `json:"cleaned,omitempty"`
	Verdict       Verdict `json:"verdict"`
	BatchID       string  `json:"batch_id"`
}

// SubjectRecord is the nested view: one entry per subject aggregating all
// of its observations' results plus a rollup for subject-level review.
type SubjectRecord struct {
	SubjectID    string       `json:"subject_id"`
	Observations []FlatRecord `json:"observations"`
	Mismatches   int          `json:"mismatches"`
	Errors       int          `json:"errors"`
}

// CoverageGap is an observation with no classifier verdict because its
// batch failed. Gaps are surfaced, never defaulted to pass or fail. The
// narrative travels with the gap so the adjudication file stands alone.
type CoverageGap struct {
	SubjectID     string `json:"subject_id"`
	ObservationID string `json:"observation_id"`
	Category      string `json:"category"`
	Narrative     string `json:"narrative"`
	Cleaned       string `json:"cleaned,omitempty"`
	BatchID       string `json:"batch_id"`
}

// ErrorKind distinguishes why a record needs human attention, so a
// reviewer knows whether to re-run the classifier or adjudicate manually.
type ErrorKind string

const (
	// ErrorKindMismatch means the classifier disagrees with the reported
	// category.
	ErrorKindMismatch ErrorKind = "MISMATCH"
	// ErrorKindAPIError means the classifier could not produce a verdict.
	ErrorKindAPIError ErrorKind = "API_ERROR"
	// ErrorKindCoverageGap means the observation is missing from the
	// unified data because its batch failed.
	ErrorKindCoverageGap ErrorKind = "COVERAGE_GAP"
)

// ErrorRecord is one flattened entry flagged for manual adjudication.
type ErrorRecord struct {
	Kind          ErrorKind `json:"kind"`
	SubjectID     string    `json:"subject_id"`
	ObservationID string    `json:"observation_id"`
	Narrative     string    `json:"narrative"`
	Cleaned       string    `json:"cleaned,omitempty"`
	Expected      string    `json:"expected"`
	Observed      string    `json:"observed,omitempty"`
	Justification string    `json:"justification,omitempty"`
	BatchID       string    `json:"batch_id,omitempty"`
}
