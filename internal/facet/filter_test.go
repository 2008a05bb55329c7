package facet

import (
	"testing"

	"github.com/ppetrov/opinia/internal/model"
)

func annotatedEngine() *Engine {
	e := NewEngine()
	e.MarkAnnotated()
	return e
}

func TestEngine_Toggle(t *testing.T) {
	e := annotatedEngine()

	e.Toggle(Source, "Twitter")
	if len(e.Selected(Source)) != 1 {
		t.Fatalf("Expected 1 selected value, got %d", len(e.Selected(Source)))
	}

	e.Toggle(Source, "Twitter")
	if len(e.Selected(Source)) != 0 {
		t.Error("Expected double-toggle to restore empty selection")
	}
}

func TestEngine_SelectAllTwiceReturnsToEmpty(t *testing.T) {
	e := annotatedEngine()
	all := []string{"Twitter", "Email", "Survey"}

	e.SelectAll(Source, all)
	if got := len(e.Selected(Source)); got != 3 {
		t.Fatalf("Expected all 3 values selected, got %d", got)
	}

	e.SelectAll(Source, all)
	if got := len(e.Selected(Source)); got != 0 {
		t.Errorf("Expected second select-all to clear the selection, got %d values", got)
	}
}

func TestEngine_SelectAllFromPartial(t *testing.T) {
	e := annotatedEngine()
	all := []string{"Twitter", "Email", "Survey"}

	// Partial selection: the gate ("all currently selected") is not met,
	// so the selection becomes exactly allValues, not cleared.
	e.Toggle(Source, "Twitter")
	e.SelectAll(Source, all)

	if got := len(e.Selected(Source)); got != 3 {
		t.Errorf("Expected select-all from partial to select all 3 values, got %d", got)
	}
}

func TestEngine_ClearAll(t *testing.T) {
	e := annotatedEngine()

	e.Toggle(Source, "Twitter")
	e.Toggle(Theme, "Billing")
	e.Toggle(Sentiment, "Negative")

	e.ClearAll()

	for _, f := range All {
		if len(e.Selected(f)) != 0 {
			t.Errorf("Expected facet %q cleared, got %d values", f, len(e.Selected(f)))
		}
	}
}

func TestEngine_ApplyNoConstraintsIsIdentity(t *testing.T) {
	e := annotatedEngine()
	enriched := enrichedFixture()

	filtered := e.Apply(enriched)

	if len(filtered) != len(enriched) {
		t.Fatalf("Expected all %d records, got %d", len(enriched), len(filtered))
	}
	for i := range enriched {
		if filtered[i].ID != enriched[i].ID {
			t.Errorf("Position %d: expected id %d, got %d", i, enriched[i].ID, filtered[i].ID)
		}
	}
}

func TestEngine_ApplySingleSourceFilter(t *testing.T) {
	e := annotatedEngine()
	e.Toggle(Source, "Twitter")

	filtered := e.Apply(enrichedFixture())

	if len(filtered) != 2 {
		t.Fatalf("Expected 2 Twitter records, got %d", len(filtered))
	}
	if filtered[0].ID != 1 || filtered[1].ID != 3 {
		t.Errorf("Expected ids 1,3 in original order, got %d,%d", filtered[0].ID, filtered[1].ID)
	}
	for _, r := range filtered {
		if r.Source != "Twitter" {
			t.Errorf("Expected only Twitter records, got source %q", r.Source)
		}
	}
}

func TestEngine_ApplyOrWithinFacet(t *testing.T) {
	e := annotatedEngine()
	e.Toggle(Theme, "Billing")
	e.Toggle(Theme, "UX")

	filtered := e.Apply(enrichedFixture())

	// Records 1 and 3 (Billing) plus 2 (UX); record 4 (Performance) excluded.
	if len(filtered) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(filtered))
	}
	for _, r := range filtered {
		if r.Theme != "Billing" && r.Theme != "UX" {
			t.Errorf("Unexpected theme %q in OR-filtered output", r.Theme)
		}
	}
}

func TestEngine_ApplyAndAcrossFacets(t *testing.T) {
	e := annotatedEngine()
	e.Toggle(Source, "Twitter")
	e.Toggle(Sentiment, "Negative")

	filtered := e.Apply(enrichedFixture())

	// Only record 1 is both Twitter and Negative.
	if len(filtered) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(filtered))
	}
	if filtered[0].ID != 1 {
		t.Errorf("Expected record 1, got %d", filtered[0].ID)
	}
}

func TestEngine_ApplyMonotonicNarrowing(t *testing.T) {
	e := annotatedEngine()
	enriched := enrichedFixture()

	e.Toggle(Source, "Twitter")
	before := len(e.Apply(enriched))

	e.Toggle(Urgency, "High")
	after := len(e.Apply(enriched))

	if after > before {
		t.Errorf("Adding a constraint grew the output: %d -> %d", before, after)
	}
}

func TestEngine_AnnotationFacetsSuppressedBeforeArrival(t *testing.T) {
	e := NewEngine() // Unannotated

	// A stale selection on an annotation-dependent facet must not empty the view.
	e.Toggle(Sentiment, "Positive")
	e.Toggle(Theme, "Nonexistent")

	enriched := enrichedFixture()
	filtered := e.Apply(enriched)

	if len(filtered) != len(enriched) {
		t.Errorf("Expected annotation facets to impose no constraint before annotations arrive, got %d of %d records", len(filtered), len(enriched))
	}
}

func TestEngine_SourceFilterActiveBeforeAnnotations(t *testing.T) {
	e := NewEngine() // Unannotated

	e.Toggle(Source, "Email")
	filtered := e.Apply(enrichedFixture())

	if len(filtered) != 1 || filtered[0].Source != "Email" {
		t.Errorf("Expected source filtering to work pre-annotation, got %d records", len(filtered))
	}
}

func TestEngine_AnnotationFacetsActiveAfterArrival(t *testing.T) {
	e := NewEngine()
	e.Toggle(Sentiment, "Negative")

	// Before: no constraint.
	if got := len(e.Apply(enrichedFixture())); got != 4 {
		t.Fatalf("Expected 4 records pre-annotation, got %d", got)
	}

	// After: the same selection filters.
	e.MarkAnnotated()
	filtered := e.Apply(enrichedFixture())
	if len(filtered) != 2 {
		t.Fatalf("Expected 2 Negative records post-annotation, got %d", len(filtered))
	}
	for _, r := range filtered {
		if r.Sentiment != model.SentimentNegative {
			t.Errorf("Expected Negative records only, got %q", r.Sentiment)
		}
	}
}

func TestEngine_SummarizeTriState(t *testing.T) {
	e := annotatedEngine()
	all := []string{"Twitter", "Email", "Survey"}

	if got := e.Summarize(Source, all); got != SelectionNone {
		t.Errorf("Expected none for empty selection, got %q", got)
	}

	e.Toggle(Source, "Twitter")
	if got := e.Summarize(Source, all); got != SelectionPartial {
		t.Errorf("Expected partial for 1 of 3, got %q", got)
	}

	e.Toggle(Source, "Email")
	if got := e.Summarize(Source, all); got != SelectionPartial {
		t.Errorf("Expected partial for 2 of 3, got %q", got)
	}

	e.Toggle(Source, "Survey")
	if got := e.Summarize(Source, all); got != SelectionAll {
		t.Errorf("Expected all for 3 of 3, got %q", got)
	}

	e.ClearAll()
	if got := e.Summarize(Source, all); got != SelectionNone {
		t.Errorf("Expected none after clear, got %q", got)
	}
}

func TestEngine_Summaries(t *testing.T) {
	e := annotatedEngine()
	e.Toggle(Source, "Twitter")

	summaries := e.Summaries(enrichedFixture())

	if len(summaries) != len(All) {
		t.Fatalf("Expected %d facet summaries, got %d", len(All), len(summaries))
	}

	bySummary := make(map[string]model.FacetSummary)
	for _, s := range summaries {
		bySummary[s.Facet] = s
	}

	src := bySummary["source"]
	if src.Selection != string(SelectionPartial) {
		t.Errorf("Expected partial source selection, got %q", src.Selection)
	}
	if len(src.Values) != 3 {
		t.Errorf("Expected 3 source values, got %d", len(src.Values))
	}

	theme := bySummary["theme"]
	if theme.Selection != string(SelectionNone) {
		t.Errorf("Expected none theme selection, got %q", theme.Selection)
	}
}

func TestEngine_ToggleUnknownFacetDoesNotPanic(t *testing.T) {
	e := annotatedEngine()

	e.Toggle(Facet("color"), "red")
	filtered := e.Apply(enrichedFixture())

	// Unknown facets never become active constraints.
	if len(filtered) != 4 {
		t.Errorf("Expected unknown facet to be inert, got %d records", len(filtered))
	}
}
