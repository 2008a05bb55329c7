package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ppetrov/opinia/internal/model"
	"github.com/ppetrov/opinia/internal/pipeline"
	"github.com/ppetrov/opinia/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	fetchTimeout time.Duration
	rps          float64
	burst        int
	// noCache and the LLM flags are defined in annotate.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Triage multiple feedback sources from a file in parallel",
	Long: `Batch triages multiple sources concurrently:
- Read sources from input file (one per line, # comments and blanks skipped)
- Process sources in parallel with configurable worker count
- Share one annotation cache and per-provider rate limiter across sources
- Write individual JSON and Markdown reports for each source

Example:
  opinia batch sources.txt
  opinia batch sources.txt --concurrency 10 --output-dir ./reports
  opinia batch sources.txt --llm --rps 2 --burst 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./opinia-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&rps, "rps", 1, "model calls per second per provider")
	batchCmd.Flags().IntVar(&burst, "burst", 2, "rate limiter burst size")

	// Inherit flags from annotate command
	batchCmd.Flags().StringVar(&tableName, "table", "feedback", "table name for sqlite sources")
	batchCmd.Flags().DurationVar(&fetchTimeout, "fetch-timeout", 30*time.Second, "HTTP timeout for individual url sources")
	batchCmd.Flags().StringVar(&userAgent, "ua", "Opinia/0.1 (+https://github.com/ppetrov/opinia)", "HTTP User-Agent for url sources")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the annotation cache")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model annotation")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Opinia Batch Triage\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)

	// Build configuration
	cfg := model.DefaultConfig()
	cfg.Store.Table = tableName
	cfg.Store.Timeout = fetchTimeout
	cfg.Store.UserAgent = userAgent
	cfg.Cache.Enabled = !noCache
	cfg.Batch.Concurrency = concurrency
	cfg.Batch.RPS = rps
	cfg.Batch.Burst = burst
	cfg.Output.Verbose = verbose

	// Configure LLM if enabled
	if err := configureLLM(&cfg); err != nil {
		return err
	}
	if llmEnabled {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", llmProvider, llmModel)
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Create the pipeline shared by all workers; the annotation cache and
	// rate limiter live here, so sources share them
	p, err := pipeline.NewPipeline(&cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	// Create batch processor
	processor := worker.NewBatchProcessor(p, concurrency)

	// Process sources
	fmt.Fprintf(os.Stderr, "⚙️  Triaging sources with %d workers...\n", concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d sources\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")

	// Write reports
	renderer := pipeline.NewRenderer()
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		successCount++

		// Generate output file names
		slug := sanitizeFilename(result.Source)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		data, err := renderer.RenderJSON(result.Report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to render JSON: %v\n", result.Source, err)
			continue
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		md := renderer.RenderMarkdown(result.Report)
		if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ %s (annotated %d/%d)\n", result.Source, result.Report.Stats.Annotated, result.Report.Stats.Total)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d sources\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename flattens a source spec into a safe report filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"://", "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)
	s = strings.Trim(s, "._-")

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	if s == "" {
		return "report"
	}
	return s
}
