// Package facet derives filter dimensions from enriched records and applies
// combinatorial facet selections to them.
package facet

import "github.com/ppetrov/opinia/internal/model"

// Facet identifies one filterable dimension of an enriched record
type Facet string

const (
	Source    Facet = "source"
	Theme     Facet = "theme"
	Sentiment Facet = "sentiment"
	Urgency   Facet = "urgency"
)

// All lists the facets in presentation order
var All = []Facet{Source, Theme, Sentiment, Urgency}

// Valid reports whether the facet name is one of the known dimensions
func (f Facet) Valid() bool {
	switch f {
	case Source, Theme, Sentiment, Urgency:
		return true
	}
	return false
}

// annotationDependent reports whether the facet's values come from the
// annotation half of an enriched record. Source comes from the record itself.
func (f Facet) annotationDependent() bool {
	return f != Source
}

// valueOf projects the facet's value out of an enriched record
func valueOf(r model.EnrichedRecord, f Facet) string {
	switch f {
	case Source:
		return r.Source
	case Theme:
		return r.Theme
	case Sentiment:
		return string(r.Sentiment)
	case Urgency:
		return string(r.Urgency)
	default:
		return ""
	}
}
