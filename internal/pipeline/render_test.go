package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ppetrov/opinia/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		Source:      "feedback.json",
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Records: []model.EnrichedRecord{
			{ID: 1, Source: "app-store", Message: "Crashes | constantly", Theme: "Stability", Sentiment: model.SentimentNegative, Urgency: model.UrgencyHigh, Annotated: true},
			{ID: 2, Source: "email", Message: "Great support", Theme: "Support", Sentiment: model.SentimentPositive, Urgency: model.UrgencyLow, Annotated: true},
		},
		Facets: []model.FacetSummary{
			{Facet: "source", Values: []model.FacetValue{{Value: "app-store", Count: 1}, {Value: "email", Count: 1}}, Selection: "none"},
			{Facet: "theme", Values: []model.FacetValue{{Value: "Stability", Count: 1}, {Value: "Support", Count: 1}}, Selection: "none"},
		},
		Stats: model.Stats{
			Total:     2,
			Annotated: 2,
			Signals: []model.Signal{
				{Type: model.SignalCoverage, Severity: model.SeverityInfo, Description: "Annotation coverage: 2/2 (100%)"},
			},
		},
		LLM: model.LLMInfo{Enabled: true, Provider: "openai", Model: "gpt-4o-mini"},
	}
}

func TestRenderer_RenderMarkdown(t *testing.T) {
	renderer := NewRenderer()

	md := renderer.RenderMarkdown(sampleReport())

	required := []string{
		"# Feedback Triage Report",
		"**Source:** feedback.json",
		"**Model:** openai gpt-4o-mini",
		"- Records: 2",
		"- Annotated: 2 (100%)",
		"### Source",
		"| app-store | 1 |",
		"### Theme",
		"| Stability | 1 |",
		"## Records",
		"| 1 | app-store | Stability | Negative | High |",
		"## Diagnostics",
		"**annotation_coverage** [info]",
	}
	for _, want := range required {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}

	// Pipe characters in messages must not break the table
	if !strings.Contains(md, `Crashes \| constantly`) {
		t.Error("Expected pipe characters to be escaped in table cells")
	}
}

func TestRenderer_RenderMarkdown_Disabled(t *testing.T) {
	renderer := NewRenderer()

	report := sampleReport()
	report.LLM = model.LLMInfo{}
	md := renderer.RenderMarkdown(report)

	if !strings.Contains(md, "**Model:** none (annotation disabled)") {
		t.Error("Expected the disabled-annotation model line")
	}
}

func TestRenderer_RenderMarkdown_Diagnostic(t *testing.T) {
	renderer := NewRenderer()

	report := sampleReport()
	report.Diagnostic = "model returned: something unusable"
	report.Warnings = []string{"model output could not be parsed; records keep default annotations"}
	md := renderer.RenderMarkdown(report)

	if !strings.Contains(md, "```\nmodel returned: something unusable\n```") {
		t.Error("Expected the raw diagnostic in a fenced block")
	}
	if !strings.Contains(md, "- **warning**: model output could not be parsed") {
		t.Error("Expected warnings in the diagnostics section")
	}
}

func TestRenderer_RenderMarkdown_Cached(t *testing.T) {
	renderer := NewRenderer()

	report := sampleReport()
	report.LLM.Cached = true
	md := renderer.RenderMarkdown(report)

	if !strings.Contains(md, "**Model:** openai gpt-4o-mini (cached)") {
		t.Error("Expected the cached marker in the model line")
	}
}

func TestRenderer_RenderJSON(t *testing.T) {
	renderer := NewRenderer()

	data, err := renderer.RenderJSON(sampleReport())
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var decoded model.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Source != "feedback.json" || decoded.Stats.Total != 2 {
		t.Errorf("Round-trip lost fields: %+v", decoded)
	}
	if !strings.Contains(string(data), "\n  \"source\"") {
		t.Error("Expected indented JSON output")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	long := strings.Repeat("a", 120)
	got := truncate(long, 100)
	if len([]rune(got)) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("Unexpected truncation: %q", got)
	}
}
