// Package merge joins feedback records with model annotations by id.
package merge

import "github.com/ppetrov/opinia/internal/model"

// Merger combines records with annotations into enriched records
type Merger struct{}

// NewMerger creates a new merger
func NewMerger() *Merger {
	return &Merger{}
}

// Merge joins records with annotations by id. For each record the first
// annotation in list order with a matching id wins; later duplicates are
// silently ignored. Records without a match receive the default annotation.
// The output always has exactly one entry per input record, in input order.
// Merge never fails: id mismatches are data-quality issues resolved by
// substitution, not errors.
func (m *Merger) Merge(records []model.FeedbackRecord, annotations []model.Annotation) []model.EnrichedRecord {
	// First occurrence wins, so only absent keys are inserted.
	byID := make(map[int]model.Annotation, len(annotations))
	for _, a := range annotations {
		if _, seen := byID[a.ID]; !seen {
			byID[a.ID] = a
		}
	}

	enriched := make([]model.EnrichedRecord, len(records))
	for i, r := range records {
		annotation, ok := byID[r.ID]
		if !ok {
			annotation = model.DefaultAnnotation(r.ID)
		}
		enriched[i] = model.EnrichedRecord{
			ID:        r.ID,
			Source:    r.Source,
			Message:   r.Message,
			Timestamp: r.Timestamp,
			Theme:     annotation.Theme,
			Sentiment: annotation.Sentiment,
			Urgency:   annotation.Urgency,
			Annotated: ok,
		}
	}

	return enriched
}
