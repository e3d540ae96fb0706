package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/ppiankov/latool/internal/model"
)

// Analyzer runs a full analysis of one URL. Failures are reported inside
// the result rather than as an error.
type Analyzer interface {
	Analyze(ctx context.Context, url string) *model.Result
}

// AnalyzeJob analyzes a single URL as part of a batch
type AnalyzeJob struct {
	Index    int
	URL      string
	Analyzer Analyzer
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	res := j.Analyzer.Analyze(ctx, j.URL)
	out := &BatchResult{Index: j.Index, URL: j.URL, Result: res}
	switch {
	case res == nil:
		out.Error = fmt.Errorf("%s: no result", j.URL)
	case res.Cancelled:
		out.Error = fmt.Errorf("%s: %w", j.URL, context.Canceled)
	case !res.Success:
		out.Error = fmt.Errorf("%s: %s", j.URL, res.Error)
	}
	return out
}

// BatchResult is the outcome of one URL in a batch
type BatchResult struct {
	Index  int
	URL    string
	Result *model.Result
	Error  error
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple URLs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessURLs analyzes urls concurrently. Results come back in input order;
// the error aggregates every failed URL.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) ([]*BatchResult, error) {
	if len(urls) == 0 {
		return []*BatchResult{}, nil
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, url := range urls {
		if !pool.Submit(&AnalyzeJob{Index: i, URL: url, Analyzer: b.analyzer}) {
			break
		}
	}

	results := pool.Wait()

	batch := make([]*BatchResult, 0, len(results))
	for _, r := range results {
		batch = append(batch, r.(*BatchResult))
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Index < batch[j].Index })

	var errs *multierror.Error
	for _, r := range batch {
		if r.Error != nil {
			errs = multierror.Append(errs, r.Error)
		}
	}
	if len(batch) < len(urls) {
		errs = multierror.Append(errs, fmt.Errorf("batch interrupted after %d of %d URLs: %w", len(batch), len(urls), ctx.Err()))
	}

	return batch, errs.ErrorOrNil()
}

// ProcessFile reads URLs from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls)
}

// Failed counts the failed entries of a batch
func Failed(results []*BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Error != nil && !errors.Is(r.Error, context.Canceled) {
			n++
		}
	}
	return n
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
