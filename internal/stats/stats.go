// Package stats derives coverage statistics and diagnostic signals from one
// annotation run. Signals carry their supporting numbers so report readers
// can verify every claim the summary makes.
package stats

import (
	"fmt"
	"sort"

	"github.com/ppetrov/opinia/internal/model"
)

// Calculator computes batch statistics and generates signals
type Calculator struct{}

// NewCalculator creates a new calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute counts annotated vs defaulted records, builds the sentiment and
// urgency distributions, and generates diagnostic signals. The annotations
// slice is the extracted model output before merging; the diagnostic is the
// extractor's failure text, empty when the run was clean.
func (c *Calculator) Compute(enriched []model.EnrichedRecord, annotations []model.Annotation, diagnostic string) model.Stats {
	stats := model.Stats{
		Total:      len(enriched),
		Sentiments: make(map[string]int),
		Urgencies:  make(map[string]int),
	}

	for _, r := range enriched {
		if r.Annotated {
			stats.Annotated++
		}
		stats.Sentiments[string(r.Sentiment)]++
		stats.Urgencies[string(r.Urgency)]++
	}
	stats.Defaulted = stats.Total - stats.Annotated

	var signals []model.Signal

	// 1. Annotation coverage
	signals = append(signals, c.coverageSignal(stats.Annotated, stats.Total))

	// 2. Empty model output
	if stats.Total > 0 && len(annotations) == 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalEmptyOutput,
			Severity:    model.SeverityWarning,
			Description: "No annotations were produced; every record carries the default annotation",
			Data: map[string]interface{}{
				"records":     stats.Total,
				"annotations": 0,
			},
		})
	}

	// 3. Diagnostic presence. A diagnostic alongside annotations is a note
	// (skipped ids, call fallback); without them it marks unusable output.
	if diagnostic != "" {
		severity := model.SeverityInfo
		description := "Annotation run recorded a diagnostic"
		if len(annotations) == 0 {
			severity = model.SeverityWarning
			description = "Model output was not usable as annotations; raw diagnostic attached to the report"
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalParseFailure,
			Severity:    severity,
			Description: description,
			Data: map[string]interface{}{
				"diagnostic_bytes": len(diagnostic),
			},
		})
	}

	// 4. Duplicate annotation ids (first occurrence already won at merge)
	dupes := duplicateIDs(annotations)
	stats.Duplicates = len(dupes)
	if len(dupes) > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalDuplicateIDs,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("%d annotation id(s) appeared more than once; first occurrence wins", len(dupes)),
			Data: map[string]interface{}{
				"ids":   dupes,
				"count": len(dupes),
			},
		})
	}

	// 5. Annotation ids matching no record
	unknown := unknownIDs(enriched, annotations)
	if len(unknown) > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalUnknownIDs,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Model returned %d annotation(s) for unknown record id(s)", len(unknown)),
			Data: map[string]interface{}{
				"ids":   unknown,
				"count": len(unknown),
			},
		})
	}

	stats.Signals = signals
	return stats
}

// coverageSignal grades the share of records that received a real annotation:
// below 50% is critical, below 100% a warning.
func (c *Calculator) coverageSignal(annotated, total int) model.Signal {
	if total == 0 {
		return model.Signal{
			Type:        model.SignalCoverage,
			Severity:    model.SeverityInfo,
			Description: "No records to annotate",
			Data: map[string]interface{}{
				"total":     0,
				"annotated": 0,
			},
		}
	}

	ratio := float64(annotated) / float64(total)

	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityCritical
	} else if ratio < 1.0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Annotation coverage: %d/%d (%.0f%%)", annotated, total, ratio*100),
		Data: map[string]interface{}{
			"total":     total,
			"annotated": annotated,
			"defaulted": total - annotated,
			"ratio":     ratio,
			"formula":   "annotated_count / total_count",
		},
	}
}

// duplicateIDs returns the ids that appear more than once in the annotation
// list, sorted for stable output.
func duplicateIDs(annotations []model.Annotation) []int {
	counts := make(map[int]int, len(annotations))
	for _, a := range annotations {
		counts[a.ID]++
	}

	var dupes []int
	for id, n := range counts {
		if n > 1 {
			dupes = append(dupes, id)
		}
	}
	sort.Ints(dupes)
	return dupes
}

// unknownIDs returns annotation ids that match no record, sorted, each id
// reported once.
func unknownIDs(enriched []model.EnrichedRecord, annotations []model.Annotation) []int {
	known := make(map[int]bool, len(enriched))
	for _, r := range enriched {
		known[r.ID] = true
	}

	seen := make(map[int]bool)
	var unknown []int
	for _, a := range annotations {
		if !known[a.ID] && !seen[a.ID] {
			seen[a.ID] = true
			unknown = append(unknown, a.ID)
		}
	}
	sort.Ints(unknown)
	return unknown
}
