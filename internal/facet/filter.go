package facet

import "github.com/ppetrov/opinia/internal/model"

// SelectionStatus is the tri-state summary of a facet's selection
type SelectionStatus string

const (
	SelectionNone    SelectionStatus = "none"
	SelectionPartial SelectionStatus = "partial"
	SelectionAll     SelectionStatus = "all"
)

// State maps each facet to its set of selected values. An empty (or absent)
// set means no filter is applied for that facet. State is plain data owned by
// whoever holds the Engine; there is no package-level state.
type State map[Facet]map[string]bool

// NewState returns an empty filter state: every facet unconstrained
func NewState() State {
	return make(State)
}

// Engine holds one view's filter state and applies it to enriched records.
// Each view owns its own Engine; mutations are single-threaded per view.
type Engine struct {
	state     State
	annotated bool
}

// NewEngine creates an engine with empty state in the pre-annotation phase
func NewEngine() *Engine {
	return &Engine{state: NewState()}
}

// MarkAnnotated records that the annotation fetch completed with a usable,
// non-empty annotation list. Until then the annotation-dependent facets
// (theme, sentiment, urgency) impose no constraint. There is no transition
// back.
func (e *Engine) MarkAnnotated() {
	e.annotated = true
}

// Annotated reports whether annotations have arrived
func (e *Engine) Annotated() bool {
	return e.annotated
}

// Selected returns the selected values of a facet in no particular order
func (e *Engine) Selected(f Facet) []string {
	set := e.state[f]
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	return values
}

// Toggle adds the value to the facet's selection if absent, removes it if
// present. Toggling twice restores the prior state.
func (e *Engine) Toggle(f Facet, value string) {
	set := e.state[f]
	if set == nil {
		set = make(map[string]bool)
		e.state[f] = set
	}
	if set[value] {
		delete(set, value)
		return
	}
	set[value] = true
}

// SelectAll implements the toggle-all behavior of a facet's "All" control:
// if every value in allValues is already selected, the selection is cleared;
// otherwise the selection becomes exactly allValues. The asymmetry is
// deliberate and user-observable, not a plain select-all.
func (e *Engine) SelectAll(f Facet, allValues []string) {
	if e.allSelected(f, allValues) {
		delete(e.state, f)
		return
	}

	set := make(map[string]bool, len(allValues))
	for _, v := range allValues {
		set[v] = true
	}
	e.state[f] = set
}

// ClearAll empties every facet's selection unconditionally
func (e *Engine) ClearAll() {
	e.state = NewState()
}

// Apply filters enriched records under AND-across-facets / OR-within-facet
// semantics: a record passes when, for every facet with a non-empty
// selection, its value for that facet is among the selected values. A facet
// with an empty selection imposes no constraint. While annotations have not
// arrived, selections on annotation-dependent facets are ignored entirely so
// a stale selection cannot wrongly empty the view. Input order is preserved.
func (e *Engine) Apply(enriched []model.EnrichedRecord) []model.EnrichedRecord {
	active := e.activeFacets()
	if len(active) == 0 {
		return enriched
	}

	filtered := make([]model.EnrichedRecord, 0, len(enriched))
	for _, r := range enriched {
		if e.matches(r, active) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Summarize reports the tri-state selection status of a facet: none when the
// selection is empty, all when its size equals len(allValues), partial
// otherwise. Set equality is assumed since selections are built from the same
// index that produces allValues.
func (e *Engine) Summarize(f Facet, allValues []string) SelectionStatus {
	set := e.state[f]
	switch {
	case len(set) == 0:
		return SelectionNone
	case len(set) == len(allValues):
		return SelectionAll
	default:
		return SelectionPartial
	}
}

// Summaries builds the per-facet value lists, counts, and tri-state flags for
// the current enriched set, in standard facet order.
func (e *Engine) Summaries(enriched []model.EnrichedRecord) []model.FacetSummary {
	summaries := make([]model.FacetSummary, 0, len(All))
	for _, f := range All {
		values := Index(enriched, f)
		summaries = append(summaries, model.FacetSummary{
			Facet:     string(f),
			Values:    values,
			Selection: string(e.Summarize(f, ValueList(values))),
		})
	}
	return summaries
}

// activeFacets returns the facets that currently constrain the output
func (e *Engine) activeFacets() []Facet {
	var active []Facet
	for _, f := range All {
		if len(e.state[f]) == 0 {
			continue
		}
		if f.annotationDependent() && !e.annotated {
			continue
		}
		active = append(active, f)
	}
	return active
}

// matches reports whether the record passes every active facet constraint
func (e *Engine) matches(r model.EnrichedRecord, active []Facet) bool {
	for _, f := range active {
		if !e.state[f][valueOf(r, f)] {
			return false
		}
	}
	return true
}

// allSelected reports whether every value in allValues is currently selected
func (e *Engine) allSelected(f Facet, allValues []string) bool {
	set := e.state[f]
	if len(allValues) == 0 || len(set) == 0 {
		return false
	}
	for _, v := range allValues {
		if !set[v] {
			return false
		}
	}
	return true
}
