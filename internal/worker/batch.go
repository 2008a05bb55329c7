package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppetrov/opinia/internal/model"
)

// Triager defines the interface for triaging one feedback source
type Triager interface {
	RunSource(ctx context.Context, source string) (*model.Report, error)
}

// TriageJob represents one source triage job
type TriageJob struct {
	Source  string
	Triager Triager
}

// Execute executes the triage job
func (j *TriageJob) Execute(ctx context.Context) Result {
	report, err := j.Triager.RunSource(ctx, j.Source)
	if err != nil {
		return &TriageResult{
			Source: j.Source,
			Report: nil,
			Error:  err,
		}
	}
	return &TriageResult{
		Source: j.Source,
		Report: report,
		Error:  nil,
	}
}

// TriageResult represents the result of a triage job
type TriageResult struct {
	Source string
	Report *model.Report
	Error  error
}

// GetError returns the error from the triage result
func (r *TriageResult) GetError() error {
	return r.Error
}

// BatchProcessor triages multiple feedback sources concurrently
type BatchProcessor struct {
	triager     Triager
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(triager Triager, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		triager:     triager,
		concurrency: concurrency,
	}
}

// ProcessSources triages multiple sources concurrently
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*TriageResult {
	if len(sources) == 0 {
		return []*TriageResult{}
	}

	// Create worker pool
	pool := NewPool(b.concurrency)
	pool.Start()

	// Submit jobs
	for _, source := range sources {
		job := &TriageJob{
			Source:  source,
			Triager: b.triager,
		}
		pool.Submit(job)
	}

	// Wait for all jobs to complete
	results := pool.Wait()

	// Convert to TriageResults
	triageResults := make([]*TriageResult, len(results))
	for i, result := range results {
		triageResults[i] = result.(*TriageResult)
	}

	return triageResults
}

// ProcessFile reads sources from a file and triages them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*TriageResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads source specs from a file (one per line)
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate sources
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
