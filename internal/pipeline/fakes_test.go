package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/detect"
	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/retrieve"
	"github.com/ppiankov/credence/internal/score"
	"github.com/sirupsen/logrus"
)

type fakeClaims struct {
	mu      sync.Mutex
	claims  []string
	err     error
	release chan struct{} // when set, calls block until closed
	calls   atomic.Int32
}

func (f *fakeClaims) ExtractClaims(ctx context.Context, text string) ([]string, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claims, f.err
}

func (f *fakeClaims) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// fakeSearch echoes the query back as two sources. Queries containing
// "delayed" block until the context ends.
type fakeSearch struct {
	snippet string
	calls   atomic.Int32
}

func (f *fakeSearch) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	f.calls.Add(1)
	if strings.Contains(query, "delayed") {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []model.SearchHit{
		{Title: query, Snippet: f.snippet, URL: "https://apnews.com/" + strings.ReplaceAll(query, " ", "-"), SourceName: "AP News"},
		{Title: query, Snippet: f.snippet, URL: "https://www.bbc.com/" + strings.ReplaceAll(query, " ", "-"), SourceName: "BBC"},
	}, nil
}

// fakeStance contradicts passages mentioning "denied" and supports the rest
type fakeStance struct{}

func (fakeStance) CompareStance(ctx context.Context, claimText, evidenceText string) (model.StanceJudgment, error) {
	if strings.Contains(evidenceText, "denied") {
		confidence := 0.8
		return model.StanceJudgment{Stance: model.StanceContradicts, Confidence: &confidence}, nil
	}
	return model.StanceJudgment{Stance: model.StanceSupports}, nil
}

type testPipeline struct {
	claims       *fakeClaims
	search       *fakeSearch
	orchestrator *Orchestrator
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestPipeline(t *testing.T, claims []string, opts Options, withCache bool) *testPipeline {
	t.Helper()

	tp := &testPipeline{
		claims: &fakeClaims{claims: claims},
		search: &fakeSearch{},
	}
	log := quietLogger()

	var results *cache.ResultCache
	if withCache {
		results = cache.NewResultCache(cache.NewMemoryCache(time.Hour, time.Minute), time.Hour)
	}

	if opts.ClaimConcurrency == 0 {
		opts.ClaimConcurrency = 3
	}
	if opts.ClaimTimeout == 0 {
		opts.ClaimTimeout = 5 * time.Second
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	tp.orchestrator = NewOrchestrator(
		extract.NewClaimExtractor(tp.claims, 0),
		retrieve.NewRetriever(tp.search, nil, retrieve.Options{MaxResults: 10}, log),
		detect.NewDetector(fakeStance{}, detect.Options{Votes: 1, Concurrency: 2}, log),
		score.NewAggregator(model.ScoringConfig{ContradictionPenalty: 1, CrossClaimPenalty: 0.25}),
		results,
		opts,
		log,
	)
	return tp
}
