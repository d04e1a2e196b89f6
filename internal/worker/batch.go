package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

// URLValidator validates the article at a URL
type URLValidator interface {
	ValidateURL(ctx context.Context, url string) (*model.ValidationResult, error)
}

// ValidateJob validates one article URL
type ValidateJob struct {
	Index     int
	URL       string
	Validator URLValidator
}

// Execute runs the validation
func (j *ValidateJob) Execute(ctx context.Context) Result {
	result, err := j.Validator.ValidateURL(ctx, j.URL)
	return &BatchResult{
		Index:  j.Index,
		URL:    j.URL,
		Result: result,
		Error:  err,
	}
}

// BatchResult is the outcome for one URL. Result may be set alongside
// Error when the validation failed after extraction.
type BatchResult struct {
	Index  int
	URL    string
	Result *model.ValidationResult
	Error  error
}

// GetError returns the validation error
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor validates many URLs concurrently
type BatchProcessor struct {
	validator   URLValidator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(validator URLValidator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		validator:   validator,
		concurrency: concurrency,
	}
}

// ProcessURLs validates the URLs and returns results in input order
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*BatchResult {
	if len(urls) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, url := range urls {
		pool.Submit(&ValidateJob{Index: i, URL: url, Validator: b.validator})
	}

	results := pool.Wait()

	batchResults := make([]*BatchResult, 0, len(results))
	for _, result := range results {
		if br, ok := result.(*BatchResult); ok {
			batchResults = append(batchResults, br)
		}
	}
	sort.Slice(batchResults, func(i, j int) bool {
		return batchResults[i].Index < batchResults[j].Index
	})

	return batchResults
}

// ProcessFile reads URLs from a file and validates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file, one per line. Blank lines and
// lines starting with # are skipped and duplicates are dropped.
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
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
