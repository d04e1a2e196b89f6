package pipeline

import (
	"context"
	"time"

	"github.com/ppiankov/credence/internal/analyze"
	"github.com/ppiankov/credence/internal/detect"
	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/retrieve"
	"github.com/ppiankov/credence/internal/worker"
)

// Limiter keys, one bucket per collaborator
const (
	limitLLM    = "llm"
	limitSearch = "search"
)

// Guard rate-limits and retries calls to an external collaborator
type Guard struct {
	limiter  *worker.Limiter // nil means unlimited
	attempts int
	backoff  time.Duration
}

// NewGuard creates a guard. attempts <= 0 means a single attempt.
func NewGuard(limiter *worker.Limiter, attempts int, backoff time.Duration) *Guard {
	return &Guard{limiter: limiter, attempts: attempts, backoff: backoff}
}

func guarded[T any](ctx context.Context, g *Guard, key string, fn func(context.Context) (T, error)) (T, error) {
	return worker.Retry(ctx, g.attempts, g.backoff, func(ctx context.Context) (T, error) {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx, key); err != nil {
				var zero T
				return zero, err
			}
		}
		return fn(ctx)
	})
}

// Search wraps a search service
func (g *Guard) Search(next retrieve.EvidenceSearchService) retrieve.EvidenceSearchService {
	return &guardedSearch{next: next, guard: g}
}

// Claims wraps a claim extraction service
func (g *Guard) Claims(next extract.ClaimExtractionService) extract.ClaimExtractionService {
	return &guardedClaims{next: next, guard: g}
}

// Stance wraps a stance comparison service
func (g *Guard) Stance(next detect.StanceComparisonService) detect.StanceComparisonService {
	return &guardedStance{next: next, guard: g}
}

// Bias wraps a bias assessor
func (g *Guard) Bias(next analyze.BiasAssessor) analyze.BiasAssessor {
	return &guardedBias{next: next, guard: g}
}

// Summary wraps a summarizer
func (g *Guard) Summary(next analyze.Summarizer) analyze.Summarizer {
	return &guardedSummary{next: next, guard: g}
}

type guardedSearch struct {
	next  retrieve.EvidenceSearchService
	guard *Guard
}

func (s *guardedSearch) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	return guarded(ctx, s.guard, limitSearch, func(ctx context.Context) ([]model.SearchHit, error) {
		return s.next.Search(ctx, query, limit)
	})
}

type guardedClaims struct {
	next  extract.ClaimExtractionService
	guard *Guard
}

func (s *guardedClaims) ExtractClaims(ctx context.Context, text string) ([]string, error) {
	return guarded(ctx, s.guard, limitLLM, func(ctx context.Context) ([]string, error) {
		return s.next.ExtractClaims(ctx, text)
	})
}

type guardedStance struct {
	next  detect.StanceComparisonService
	guard *Guard
}

func (s *guardedStance) CompareStance(ctx context.Context, claimText, evidenceText string) (model.StanceJudgment, error) {
	return guarded(ctx, s.guard, limitLLM, func(ctx context.Context) (model.StanceJudgment, error) {
		return s.next.CompareStance(ctx, claimText, evidenceText)
	})
}

type guardedBias struct {
	next  analyze.BiasAssessor
	guard *Guard
}

func (s *guardedBias) AssessBias(ctx context.Context, title, text string) (*model.BiasAssessment, error) {
	return guarded(ctx, s.guard, limitLLM, func(ctx context.Context) (*model.BiasAssessment, error) {
		return s.next.AssessBias(ctx, title, text)
	})
}

type guardedSummary struct {
	next  analyze.Summarizer
	guard *Guard
}

func (s *guardedSummary) Summarize(ctx context.Context, title, text string, maxLen int) (string, error) {
	return guarded(ctx, s.guard, limitLLM, func(ctx context.Context) (string, error) {
		return s.next.Summarize(ctx, title, text, maxLen)
	})
}
