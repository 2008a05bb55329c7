package facet

import (
	"testing"

	"github.com/ppetrov/opinia/internal/model"
)

func enrichedFixture() []model.EnrichedRecord {
	return []model.EnrichedRecord{
		{ID: 1, Source: "Twitter", Theme: "Billing", Sentiment: model.SentimentNegative, Urgency: model.UrgencyHigh, Annotated: true},
		{ID: 2, Source: "Email", Theme: "UX", Sentiment: model.SentimentPositive, Urgency: model.UrgencyLow, Annotated: true},
		{ID: 3, Source: "Twitter", Theme: "Billing", Sentiment: model.SentimentNeutral, Urgency: model.UrgencyMedium, Annotated: true},
		{ID: 4, Source: "Survey", Theme: "Performance", Sentiment: model.SentimentNegative, Urgency: model.UrgencyHigh, Annotated: true},
	}
}

func TestIndex_FirstSeenOrder(t *testing.T) {
	values := Index(enrichedFixture(), Source)

	expected := []string{"Twitter", "Email", "Survey"}
	if len(values) != len(expected) {
		t.Fatalf("Expected %d distinct sources, got %d", len(expected), len(values))
	}
	for i, want := range expected {
		if values[i].Value != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, values[i].Value)
		}
	}
}

func TestIndex_Counts(t *testing.T) {
	values := Index(enrichedFixture(), Theme)

	counts := make(map[string]int)
	for _, v := range values {
		counts[v.Value] = v.Count
	}

	if counts["Billing"] != 2 {
		t.Errorf("Expected Billing count 2, got %d", counts["Billing"])
	}
	if counts["UX"] != 1 {
		t.Errorf("Expected UX count 1, got %d", counts["UX"])
	}
	if counts["Performance"] != 1 {
		t.Errorf("Expected Performance count 1, got %d", counts["Performance"])
	}
}

func TestIndex_TiesKeepFirstSeenOrder(t *testing.T) {
	// UX and Performance both have count 1; UX appeared first and must stay first.
	values := Index(enrichedFixture(), Theme)

	uxAt, perfAt := -1, -1
	for i, v := range values {
		switch v.Value {
		case "UX":
			uxAt = i
		case "Performance":
			perfAt = i
		}
	}
	if uxAt < 0 || perfAt < 0 {
		t.Fatalf("Expected both UX and Performance in index, got %+v", values)
	}
	if uxAt > perfAt {
		t.Error("Expected first-seen order for equal counts, got sorted-by-something order")
	}
}

func TestIndex_Empty(t *testing.T) {
	values := Index(nil, Sentiment)
	if len(values) != 0 {
		t.Errorf("Expected empty index for empty input, got %d values", len(values))
	}
}

func TestValueList(t *testing.T) {
	values := Index(enrichedFixture(), Urgency)
	names := ValueList(values)

	if len(names) != len(values) {
		t.Fatalf("Expected %d names, got %d", len(values), len(names))
	}
	for i := range values {
		if names[i] != values[i].Value {
			t.Errorf("Position %d: expected %q, got %q", i, values[i].Value, names[i])
		}
	}
}

func TestFacet_Valid(t *testing.T) {
	for _, f := range All {
		if !f.Valid() {
			t.Errorf("Expected %q to be valid", f)
		}
	}
	if Facet("color").Valid() {
		t.Error("Expected unknown facet to be invalid")
	}
}
