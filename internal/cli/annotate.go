package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppetrov/opinia/internal/facet"
	"github.com/ppetrov/opinia/internal/model"
	"github.com/ppetrov/opinia/internal/pipeline"
	"github.com/ppetrov/opinia/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	outFormat    string
	outPath      string
	tableName    string
	timeout      time.Duration
	userAgent    string
	maxBytes     int64
	ignoreRobots bool
	noCache      bool
	llmEnabled   bool
	llmProvider  string
	llmModel     string
	llmBaseURL   string
	llmAPIKey    string
	llmMaxTokens int

	filterSource    []string
	filterTheme     []string
	filterSentiment []string
	filterUrgency   []string
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate [source]",
	Short: "Triage a single feedback source and generate a report",
	Long: `Annotate reads feedback records from one source and produces a triage report:
- Query records from a file, SQLite database, HTML export, or URL
- Ask the configured model for one annotation per record
- Merge annotations with records; unlabeled records keep default labels
- Derive facet counts and annotation coverage statistics
- Render the report as Markdown or JSON

A source is a path, an http(s) URL, or an explicit kind:path spec
(sqlite:feedback.db, file:records.json, html:export.html, url:https://...).
Without an argument the source configured in the config file is used.

Example:
  opinia annotate feedback.json
  opinia annotate sqlite:feedback.db --table feedback --llm
  opinia annotate https://example.com/export.json --llm --format json -o report.json
  opinia annotate feedback.json --llm --sentiment Negative --urgency High`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	// Output flags
	annotateCmd.Flags().StringVar(&outFormat, "format", "markdown", "output format (json, markdown)")
	annotateCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file path (default: stdout)")

	// Store flags
	annotateCmd.Flags().StringVar(&tableName, "table", "feedback", "table name for sqlite sources")
	annotateCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall run timeout (model calls included)")
	annotateCmd.Flags().StringVar(&userAgent, "ua", "Opinia/0.1 (+https://github.com/ppetrov/opinia)", "HTTP User-Agent for url sources")
	annotateCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read from url sources")
	annotateCmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "skip the robots.txt check for url sources")
	annotateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the annotation cache (force a fresh model call)")

	// LLM flags
	annotateCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model annotation")
	annotateCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	annotateCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	annotateCmd.Flags().StringVar(&llmBaseURL, "llm-base-url", "", "override the provider base URL")
	annotateCmd.Flags().StringVar(&llmAPIKey, "llm-api-key", "", "provider API key (default: environment)")
	annotateCmd.Flags().IntVar(&llmMaxTokens, "llm-max-tokens", 1500, "response token cap for model calls")

	// Filter flags
	annotateCmd.Flags().StringSliceVar(&filterSource, "source", nil, "only list records from these sources")
	annotateCmd.Flags().StringSliceVar(&filterTheme, "theme", nil, "only list records with these themes (needs --llm)")
	annotateCmd.Flags().StringSliceVar(&filterSentiment, "sentiment", nil, "only list records with these sentiments (needs --llm)")
	annotateCmd.Flags().StringSliceVar(&filterUrgency, "urgency", nil, "only list records with these urgencies (needs --llm)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Build configuration from flags
	cfg := model.DefaultConfig()
	cfg.Store.Table = tableName
	cfg.Store.Timeout = timeout
	cfg.Store.UserAgent = userAgent
	cfg.Store.MaxBodyBytes = maxBytes
	cfg.Store.IgnoreRobots = ignoreRobots
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.Format = outFormat

	if err := resolveSource(args, &cfg); err != nil {
		return err
	}

	// Configure LLM if enabled
	if err := configureLLM(&cfg); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Source: %s\n", cfg.Store.Path)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	// Create pipeline
	p, err := pipeline.NewPipeline(&cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Running triage...\n")
	}

	report, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("triage failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Loaded %d records\n", report.Stats.Total)
		fmt.Fprintf(os.Stderr, "✓ Annotated %d/%d records\n", report.Stats.Annotated, report.Stats.Total)
		if report.LLM.Enabled {
			cached := ""
			if report.LLM.Cached {
				cached = " (cached)"
			}
			fmt.Fprintf(os.Stderr, "✓ Annotations from %s/%s%s\n", report.LLM.Provider, report.LLM.Model, cached)
		}
		for _, w := range report.Warnings {
			fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
		}
		fmt.Fprintln(os.Stderr)
	}

	if applyFilters(report) && verbose {
		fmt.Fprintf(os.Stderr, "✓ Filter matched %d/%d records\n\n", len(report.Records), report.Stats.Total)
	}

	return writeReport(report)
}

// resolveSource fills cfg.Store from the positional source argument, falling
// back to store.kind and store.path from the config file
func resolveSource(args []string, cfg *model.Config) error {
	if len(args) > 0 {
		storeCfg, err := store.ParseSourceSpec(args[0], cfg.Store)
		if err != nil {
			return fmt.Errorf("parse source: %w", err)
		}
		cfg.Store = storeCfg
		return nil
	}

	if kind := viper.GetString("store.kind"); kind != "" {
		cfg.Store.Kind = kind
	}
	if path := viper.GetString("store.path"); path != "" {
		cfg.Store.Path = path
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("no source specified (pass a path, URL, or kind:path spec)")
	}
	return nil
}

// configureLLM applies the shared LLM flags to cfg, resolving the API key
// from the flag or the environment. Annotation stays disabled unless --llm
// is given.
func configureLLM(cfg *model.Config) error {
	if !llmEnabled {
		return nil
	}

	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	cfg.LLM.BaseURL = llmBaseURL
	cfg.LLM.MaxTokens = llmMaxTokens

	if llmAPIKey != "" {
		cfg.LLM.APIKey = llmAPIKey
		return nil
	}

	// Get API key from environment
	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return nil
}

// applyFilters narrows the report's record list to the facet values selected
// on the command line. Facet summaries and stats keep describing the whole
// batch; only the record listing shrinks. Returns false when no filter flag
// was given.
func applyFilters(report *model.Report) bool {
	selections := map[facet.Facet][]string{
		facet.Source:    filterSource,
		facet.Theme:     filterTheme,
		facet.Sentiment: filterSentiment,
		facet.Urgency:   filterUrgency,
	}

	engine := facet.NewEngine()
	if report.Stats.Annotated > 0 {
		engine.MarkAnnotated()
	}

	active := false
	for f, values := range selections {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			engine.Toggle(f, v)
			active = true
		}
	}
	if !active {
		return false
	}

	report.Records = engine.Apply(report.Records)
	return true
}

// writeReport renders the report in the selected format to stdout or the -o path
func writeReport(report *model.Report) error {
	renderer := pipeline.NewRenderer()

	var data []byte
	switch outFormat {
	case "json":
		out, err := renderer.RenderJSON(report)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		data = out
	case "markdown", "md":
		data = []byte(renderer.RenderMarkdown(report))
	default:
		return fmt.Errorf("unknown format %q (want json or markdown)", outFormat)
	}

	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote report to %s\n", outPath)
	}
	return nil
}
