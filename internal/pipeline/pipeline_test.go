package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ppetrov/opinia/internal/model"
	"github.com/sashabaranov/go-openai"
)

const sampleRecords = `[
	{"id": 1, "source": "app-store", "message": "Crashes on launch", "timestamp": "2024-05-01T10:00:00Z"},
	{"id": 2, "source": "email", "message": "Great support experience"},
	{"id": 3, "source": "app-store", "message": "Dark mode please"}
]`

const sampleAnnotations = `[
	{"id": 1, "theme": "Stability", "sentiment": "Negative", "urgency": "High"},
	{"id": 2, "theme": "Support", "sentiment": "Positive", "urgency": "Low"},
	{"id": 3, "theme": "Feature Request", "sentiment": "Neutral", "urgency": "Medium"}
]`

func writeRecordsFile(t *testing.T, records string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedback.json")
	if err := os.WriteFile(path, []byte(records), 0644); err != nil {
		t.Fatalf("Failed to write records file: %v", err)
	}
	return path
}

func testConfig(path string) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Store.Kind = "file"
	cfg.Store.Path = path
	cfg.Cache.Enabled = false
	return &cfg
}

// annotationServer mocks an OpenAI endpoint that returns the given content
// for chat completions and answers the availability probe.
func annotationServer(t *testing.T, content string, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt64(calls, 1)
		}
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"object": "list", "data": []}`))
			return
		}
		resp := openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}},
			},
			Usage: openai.Usage{TotalTokens: 60},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestPipeline_Run_Disabled(t *testing.T) {
	cfg := testConfig(writeRecordsFile(t, sampleRecords))

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.LLM.Enabled {
		t.Error("Expected LLM disabled")
	}
	if report.Stats.Total != 3 || report.Stats.Annotated != 0 || report.Stats.Defaulted != 3 {
		t.Errorf("Unexpected stats: %+v", report.Stats)
	}
	for _, r := range report.Records {
		if r.Annotated || r.Theme != model.DefaultTheme {
			t.Errorf("Expected default annotation for record %d, got %+v", r.ID, r)
		}
	}

	// Source facet first, values in first-seen order with full-set counts
	sources := report.Facets[0]
	if sources.Facet != "source" || len(sources.Values) != 2 {
		t.Fatalf("Unexpected source facet: %+v", sources)
	}
	if sources.Values[0].Value != "app-store" || sources.Values[0].Count != 2 {
		t.Errorf("Unexpected first source value: %+v", sources.Values[0])
	}
	if sources.Selection != "none" {
		t.Errorf("Expected selection none, got %s", sources.Selection)
	}
}

func TestPipeline_Run_WithModel(t *testing.T) {
	server := annotationServer(t, sampleAnnotations, nil)
	defer server.Close()

	cfg := testConfig(writeRecordsFile(t, sampleRecords))
	cfg.LLM = model.LLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Timeout:  5,
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Stats.Annotated != 3 {
		t.Errorf("Expected 3 annotated records, got %d", report.Stats.Annotated)
	}
	if report.Records[0].Theme != "Stability" || report.Records[0].Sentiment != model.SentimentNegative {
		t.Errorf("Unexpected first record annotation: %+v", report.Records[0])
	}
	if !report.LLM.Enabled || report.LLM.Provider != "openai" || report.LLM.Cached {
		t.Errorf("Unexpected LLM info: %+v", report.LLM)
	}
	if report.Diagnostic != "" {
		t.Errorf("Expected empty diagnostic, got %q", report.Diagnostic)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", report.Warnings)
	}
}

func TestPipeline_Run_PartialAnnotations(t *testing.T) {
	content := `[{"id": 1, "theme": "Stability", "sentiment": "Negative", "urgency": "High"}]`
	server := annotationServer(t, content, nil)
	defer server.Close()

	cfg := testConfig(writeRecordsFile(t, sampleRecords))
	cfg.LLM = model.LLMConfig{Provider: "openai", APIKey: "test-key", BaseURL: server.URL, Timeout: 5}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Stats.Annotated != 1 || report.Stats.Defaulted != 2 {
		t.Errorf("Unexpected stats: %+v", report.Stats)
	}
	if !report.Records[0].Annotated || report.Records[1].Annotated {
		t.Error("Expected only record 1 to carry a model annotation")
	}
	if !strings.Contains(report.Diagnostic, "skipped") {
		t.Errorf("Expected skipped-ids diagnostic, got %q", report.Diagnostic)
	}
}

func TestPipeline_Run_ModelFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(writeRecordsFile(t, sampleRecords))
	cfg.LLM = model.LLMConfig{Provider: "openai", APIKey: "test-key", BaseURL: server.URL, Timeout: 5}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected degraded report, got error: %v", err)
	}

	// Call failure substitutes a default annotation for every record
	if report.Stats.Total != 3 || report.Stats.Annotated != 3 {
		t.Errorf("Unexpected stats after fallback: %+v", report.Stats)
	}
	for _, r := range report.Records {
		if r.Theme != model.DefaultTheme || r.Sentiment != model.SentimentNeutral {
			t.Errorf("Expected default labels for record %d, got %+v", r.ID, r)
		}
	}
	if report.Diagnostic == "" {
		t.Error("Expected the triggering error in the diagnostic")
	}
	if len(report.Warnings) == 0 || !strings.Contains(report.Warnings[0], "model call failed") {
		t.Errorf("Expected a model-call warning, got %v", report.Warnings)
	}
}

func TestPipeline_Run_UnparseableOutput(t *testing.T) {
	server := annotationServer(t, "I cannot annotate these records.", nil)
	defer server.Close()

	cfg := testConfig(writeRecordsFile(t, sampleRecords))
	cfg.LLM = model.LLMConfig{Provider: "openai", APIKey: "test-key", BaseURL: server.URL, Timeout: 5}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected degraded report, got error: %v", err)
	}

	// Terminal extraction failure leaves records unannotated, not errored
	if report.Stats.Annotated != 0 {
		t.Errorf("Expected 0 annotated records, got %d", report.Stats.Annotated)
	}
	if report.Diagnostic != "I cannot annotate these records." {
		t.Errorf("Expected raw output as diagnostic, got %q", report.Diagnostic)
	}

	foundEmpty := false
	for _, s := range report.Stats.Signals {
		if s.Type == model.SignalEmptyOutput {
			foundEmpty = true
		}
	}
	if !foundEmpty {
		t.Errorf("Expected an empty-output signal, got %+v", report.Stats.Signals)
	}
}

func TestPipeline_Run_EmptyStore(t *testing.T) {
	var calls int64
	server := annotationServer(t, sampleAnnotations, &calls)
	defer server.Close()

	cfg := testConfig(writeRecordsFile(t, `[]`))
	cfg.LLM = model.LLMConfig{Provider: "openai", APIKey: "test-key", BaseURL: server.URL, Timeout: 5}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Stats.Total != 0 || len(report.Records) != 0 {
		t.Errorf("Expected an empty report, got %+v", report.Stats)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Errorf("Expected no model calls for an empty batch, got %d", calls)
	}
}

func TestPipeline_Run_StoreFailure(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.json"))

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	_, err = p.Run(context.Background())
	if err == nil {
		t.Fatal("Expected an error for a missing store file")
	}
	if !strings.Contains(err.Error(), "query file store") {
		t.Errorf("Expected a wrapped store error, got %v", err)
	}
}

func TestPipeline_RunSource(t *testing.T) {
	primary := writeRecordsFile(t, sampleRecords)
	other := filepath.Join(t.TempDir(), "other.json")
	if err := os.WriteFile(other, []byte(`[{"id": 9, "source": "survey", "message": "Confusing onboarding"}]`), 0644); err != nil {
		t.Fatalf("Failed to write records file: %v", err)
	}

	p, err := NewPipeline(testConfig(primary))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	report, err := p.RunSource(context.Background(), "file:"+other)
	if err != nil {
		t.Fatalf("RunSource failed: %v", err)
	}

	if report.Source != "file:"+other {
		t.Errorf("Expected source label %q, got %q", "file:"+other, report.Source)
	}
	if len(report.Records) != 1 || report.Records[0].ID != 9 {
		t.Errorf("Expected the overridden source's records, got %+v", report.Records)
	}
}

func TestPipeline_RunSource_BadSpec(t *testing.T) {
	p, err := NewPipeline(testConfig(writeRecordsFile(t, sampleRecords)))
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	if _, err := p.RunSource(context.Background(), "   "); err == nil {
		t.Fatal("Expected an error for a blank source spec")
	}
}

func TestPipeline_Run_CachedSecondRun(t *testing.T) {
	var calls int64
	server := annotationServer(t, sampleAnnotations, &calls)
	defer server.Close()

	cfg := testConfig(writeRecordsFile(t, sampleRecords))
	cfg.Cache.Enabled = true
	cfg.LLM = model.LLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Timeout:  5,
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.LLM.Cached {
		t.Error("Expected a live model call on the first run")
	}
	liveCalls := atomic.LoadInt64(&calls)

	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if !second.LLM.Cached {
		t.Error("Expected the second run to hit the cache")
	}
	if second.Stats.Annotated != 3 {
		t.Errorf("Expected cached annotations to merge, got %+v", second.Stats)
	}
	if atomic.LoadInt64(&calls) != liveCalls {
		t.Errorf("Expected no additional model calls, got %d more", atomic.LoadInt64(&calls)-liveCalls)
	}
}
