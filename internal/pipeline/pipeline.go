// Package pipeline orchestrates one triage run: store query, model
// annotation, tolerant extraction, merge, facet indexing, and stats.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppetrov/opinia/internal/cache"
	"github.com/ppetrov/opinia/internal/extract"
	"github.com/ppetrov/opinia/internal/facet"
	"github.com/ppetrov/opinia/internal/llm"
	"github.com/ppetrov/opinia/internal/merge"
	"github.com/ppetrov/opinia/internal/model"
	"github.com/ppetrov/opinia/internal/stats"
	"github.com/ppetrov/opinia/internal/store"
	"github.com/ppetrov/opinia/internal/worker"
)

// Pipeline runs the complete triage process for one record source
type Pipeline struct {
	store      store.Store
	annotator  *llm.Annotator
	extractor  *extract.Extractor
	merger     *merge.Merger
	calculator *stats.Calculator
	cache      cache.Cache // nil when caching is disabled
	limiter    *worker.Limiter
	config     *model.Config
	source     string // report label for the primary store
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	annotator, err := llm.NewAnnotator(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		// A misconfigured provider disables annotation rather than
		// blocking triage; records still flow with default labels.
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize LLM provider: %v\n", err)
		annotator, _ = llm.NewAnnotator(llm.Config{})
	}

	var c cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			c = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		} else {
			c = cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
		}
	}

	return &Pipeline{
		store:      st,
		annotator:  annotator,
		extractor:  extract.NewExtractor(),
		merger:     merge.NewMerger(),
		calculator: stats.NewCalculator(),
		cache:      c,
		limiter:    worker.NewLimiter(cfg.Batch.RPS, cfg.Batch.Burst),
		config:     cfg,
		source:     sourceLabel(cfg.Store),
	}, nil
}

// AnnotationResult captures one annotation fetch: the list to merge, the raw
// diagnostic, and how the model was (or was not) involved.
type AnnotationResult struct {
	Annotations []model.Annotation
	Diagnostic  string
	CallFailed  bool
	LLM         model.LLMInfo
}

// Records queries the primary store
func (p *Pipeline) Records(ctx context.Context) ([]model.FeedbackRecord, error) {
	records, err := p.store.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s store: %w", p.store.Kind(), err)
	}
	return records, nil
}

// AnnotateRecords fetches annotations for one batch through the cache and
// rate limiter. It never fails: a model-call failure substitutes the default
// annotation for every record, a parse failure yields an empty list, and in
// both cases the cause lands in the diagnostic.
func (p *Pipeline) AnnotateRecords(ctx context.Context, records []model.FeedbackRecord) AnnotationResult {
	result := AnnotationResult{
		LLM: model.LLMInfo{
			Enabled:  p.annotator.IsEnabled(),
			Provider: p.annotator.ProviderName(),
		},
	}
	if len(records) == 0 || !p.annotator.IsEnabled() {
		return result
	}

	text, respModel, cached, err := p.modelText(ctx, records)
	result.LLM.Model = respModel
	result.LLM.Cached = cached
	if err != nil {
		result.Annotations = extract.DefaultAnnotations(llm.RecordIDs(records))
		result.Diagnostic = err.Error()
		result.CallFailed = true
		return result
	}

	result.Annotations, result.Diagnostic = p.extractor.Extract(text, llm.RecordIDs(records))
	return result
}

// Run executes one triage run and assembles the report. A store failure is
// the only fatal path; model and parse failures degrade to default
// annotations with the cause kept inspectable in the report.
func (p *Pipeline) Run(ctx context.Context) (*model.Report, error) {
	// 1. Query the store
	records, err := p.Records(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Fetch annotations unless the batch is empty or annotation is disabled
	res := p.AnnotateRecords(ctx, records)

	var warnings []string
	switch {
	case res.CallFailed:
		warnings = append(warnings, fmt.Sprintf("model call failed: %s", res.Diagnostic))
	case res.Diagnostic != "" && len(res.Annotations) == 0:
		warnings = append(warnings, "model output could not be parsed; records keep default annotations")
	case res.Diagnostic != "":
		warnings = append(warnings, fmt.Sprintf("annotation note: %s", res.Diagnostic))
	}

	// 3. Merge records with annotations, first annotation per id wins
	enriched := p.merger.Merge(records, res.Annotations)

	// 4. Index facets; theme, sentiment and urgency unlock once annotated
	engine := facet.NewEngine()
	if len(res.Annotations) > 0 {
		engine.MarkAnnotated()
	}

	// 5. Coverage stats with diagnostic signals
	batchStats := p.calculator.Compute(enriched, res.Annotations, res.Diagnostic)

	// 6. Assemble the report
	return &model.Report{
		Source:      p.source,
		GeneratedAt: time.Now().UTC(),
		Records:     enriched,
		Facets:      engine.Summaries(enriched),
		Stats:       batchStats,
		Diagnostic:  res.Diagnostic,
		LLM:         res.LLM,
		Warnings:    warnings,
	}, nil
}

// RunSource runs the pipeline against one source spec, overriding the
// configured store. Batch processing names one source per input line; the
// annotator, cache and rate limiter are shared across sources.
func (p *Pipeline) RunSource(ctx context.Context, source string) (*model.Report, error) {
	storeCfg, err := store.ParseSourceSpec(source, p.config.Store)
	if err != nil {
		return nil, fmt.Errorf("parse source %q: %w", source, err)
	}

	st, err := store.NewStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("create store for %q: %w", source, err)
	}
	defer closeStore(st)

	run := *p
	run.store = st
	run.source = source
	return run.Run(ctx)
}

// Close releases the primary store's resources
func (p *Pipeline) Close() {
	closeStore(p.store)
}

// modelText returns the model's raw response text for the batch, serving it
// from the cache when possible. Live calls wait on the provider's rate
// limiter first.
func (p *Pipeline) modelText(ctx context.Context, records []model.FeedbackRecord) (string, string, bool, error) {
	key := cache.AnnotationKey(p.annotator.ProviderName(), p.config.LLM.Model, records)

	if p.cache != nil {
		if data, ok := p.cache.Get(key); ok {
			return string(data), p.config.LLM.Model, true, nil
		}
	}

	if err := p.limiter.Wait(ctx, p.annotator.ProviderName()); err != nil {
		return "", "", false, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := p.annotator.Annotate(ctx, records)
	if err != nil {
		return "", "", false, err
	}
	if resp == nil {
		return "", "", false, nil
	}

	if p.cache != nil {
		if err := p.cache.Set(key, []byte(resp.Text), p.config.Cache.TTL); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to cache model response: %v\n", err)
		}
	}

	return resp.Text, resp.Model, false, nil
}

// sourceLabel describes a store configuration for the report header
func sourceLabel(cfg model.StoreConfig) string {
	if cfg.Kind == "sqlite" && cfg.Table != "" {
		return fmt.Sprintf("%s (table %s)", cfg.Path, cfg.Table)
	}
	return cfg.Path
}

func closeStore(st store.Store) {
	if c, ok := st.(io.Closer); ok {
		_ = c.Close()
	}
}
