package model

import "time"

// Report represents the complete output of one annotation run
type Report struct {
	Source      string    `json:"source"`       // Record source description (path, DSN, or URL)
	GeneratedAt time.Time `json:"generated_at"` // When the run completed

	Records []EnrichedRecord `json:"records"` // Merged records, input order preserved
	Facets  []FacetSummary   `json:"facets"`  // Distinct values and counts per facet

	Stats      Stats  `json:"stats"`                // Annotation coverage breakdown
	Diagnostic string `json:"diagnostic,omitempty"` // Extractor/model diagnostic, inspectable

	LLM      LLMInfo  `json:"llm"`                // Which model produced the annotations, if any
	Warnings []string `json:"warnings,omitempty"` // Non-fatal issues encountered during the run
}

// FacetValue is one distinct value within a facet with its total occurrence
// count over the enriched set (not the filtered subset).
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetSummary describes one facet dimension: its values in first-seen order
// and the tri-state selection status under the current filter state.
type FacetSummary struct {
	Facet     string       `json:"facet"`               // source, theme, sentiment, or urgency
	Values    []FacetValue `json:"values"`              // First-seen order, counts over the full set
	Selection string       `json:"selection,omitempty"` // none, partial, or all
}

// Stats summarizes how well the model annotated the batch
type Stats struct {
	Total      int `json:"total"`      // Records in the batch
	Annotated  int `json:"annotated"`  // Records that received a model annotation
	Defaulted  int `json:"defaulted"`  // Records that fell back to the default annotation
	Duplicates int `json:"duplicates"` // Annotation ids that appeared more than once

	Sentiments map[string]int `json:"sentiments,omitempty"` // Count per sentiment value
	Urgencies  map[string]int `json:"urgencies,omitempty"`  // Count per urgency value

	Signals []Signal `json:"signals,omitempty"` // Diagnostic signals with transparent data
}

// Signal represents a diagnostic signal with transparent supporting data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Supporting numbers (counts, ratios)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCoverage     SignalType = "annotation_coverage" // Share of records with a real annotation
	SignalEmptyOutput  SignalType = "empty_model_output"  // Model produced nothing usable
	SignalParseFailure SignalType = "parse_failure"       // Model output unusable or only partly usable
	SignalDuplicateIDs SignalType = "duplicate_ids"       // Model repeated record ids
	SignalUnknownIDs   SignalType = "unknown_ids"         // Model invented record ids
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMInfo records which provider and model annotated the batch
type LLMInfo struct {
	Enabled  bool   `json:"enabled"`            // False when no provider was configured
	Provider string `json:"provider,omitempty"` // openai, anthropic, ollama
	Model    string `json:"model,omitempty"`    // Model name reported by the provider
	Cached   bool   `json:"cached"`             // Annotations came from the cache, not a live call
}
