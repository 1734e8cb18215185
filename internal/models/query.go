package models

// AnswerMode tells the caller how an answer was produced.
type AnswerMode string

const (
	// ModeGrounded means the external model answered with retrieved context.
	ModeGrounded AnswerMode = "grounded"

	// ModeOffline means the extractive fallback answered because the
	// generation provider was unavailable.
	ModeOffline AnswerMode = "offline"

	// ModeNoDocuments means retrieval found nothing to ground an answer on.
	ModeNoDocuments AnswerMode = "no_documents"

	// ModeError means the query could not proceed at all.
	ModeError AnswerMode = "error"
)

// QueryContext carries situational dashboard readings supplied by the caller.
// Pointers distinguish "not provided" from a zero reading.
type QueryContext struct {
	AQI          *float64 `json:"aqi,omitempty"`
	BedCapacity  *float64 `json:"bed_capacity,omitempty"`
	ActiveAlerts *int     `json:"active_alerts,omitempty"`
}

// Source identifies a document that contributed to an answer.
type Source struct {
	ID       string         `json:"id"`
	Excerpt  string         `json:"excerpt"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResult is the terminal state of every query. It is always well formed;
// failures surface through Mode, never as a panic or a bare error to the API.
type QueryResult struct {
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	Confidence float64    `json:"confidence"`
	Mode       AnswerMode `json:"mode"`
}

// Status is the health probe reported to external monitors.
type Status struct {
	Initialized    bool `json:"initialized"`
	DocumentCount  int  `json:"document_count"`
	StoreReachable bool `json:"store_reachable"`
}
