package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/credence/internal/analyze"
	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/detect"
	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/fetch"
	"github.com/ppiankov/credence/internal/fingerprint"
	"github.com/ppiankov/credence/internal/llm"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/retrieve"
	"github.com/ppiankov/credence/internal/score"
	"github.com/ppiankov/credence/internal/search"
	"github.com/ppiankov/credence/internal/store"
	"github.com/ppiankov/credence/internal/util"
	"github.com/ppiankov/credence/internal/verify"
	"github.com/ppiankov/credence/internal/worker"
	"github.com/sirupsen/logrus"
)

// retryBackoff is the first delay between collaborator attempts
const retryBackoff = 500 * time.Millisecond

// Build assembles a Service from configuration. The returned close
// function releases the record store and any shared cache connection.
func Build(ctx context.Context, cfg *model.Config, log *logrus.Logger) (*Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	guard := NewGuard(
		worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		cfg.Pipeline.Retries,
		retryBackoff,
	)

	// Language model, falling back to offline heuristics
	var claimService extract.ClaimExtractionService = extract.NewHeuristicService()
	var stanceService detect.StanceComparisonService = detect.NewLexicalStance()
	var biasService analyze.BiasAssessor
	var summaryService analyze.Summarizer

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, nil, fmt.Errorf("llm: %w", err)
	}
	if provider != nil {
		log.WithField("provider", provider.Name()).Info("Using language model")
		claimService = guard.Claims(llm.NewClaimService(provider))
		stanceService = guard.Stance(llm.NewStanceService(provider))
		biasService = guard.Bias(llm.NewBiasService(provider))
		summaryService = guard.Summary(llm.NewSummaryService(provider))
	} else {
		log.Info("No language model configured, using heuristic extraction and lexical stance")
	}

	searchClient := &http.Client{
		Timeout:   cfg.HTTP.Timeout,
		Transport: util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
	}
	searchProvider, err := search.NewProvider(cfg.Search, searchClient)
	if err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}

	results, err := buildResultCache(ctx, cfg.Cache, log, &closers)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	var records RecordStore
	if cfg.Store.Path != "" {
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("store directory: %w", err)
			}
		}
		sqlite, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, sqlite.Close)
		records = sqlite
	}

	orchestrator := NewOrchestrator(
		extract.NewClaimExtractor(claimService, cfg.Pipeline.MaxClaims),
		retrieve.NewRetriever(
			guard.Search(searchProvider),
			retrieve.NewAuthorityClassifier(&cfg.Authority),
			retrieve.Options{
				MaxResults:   cfg.Search.MaxResults,
				MinRelevance: cfg.Search.MinRelevance,
				QueryTerms:   cfg.Search.QueryTerms,
			},
			log,
		),
		detect.NewDetector(stanceService, detect.Options{
			Votes:       cfg.Pipeline.StanceVotes,
			Concurrency: cfg.Pipeline.SourceConcurrency,
		}, log),
		score.NewAggregator(cfg.Scoring),
		results,
		Options{
			ClaimConcurrency: cfg.Pipeline.ClaimConcurrency,
			ClaimTimeout:     cfg.Pipeline.ClaimTimeout,
			RequestTimeout:   cfg.Pipeline.RequestTimeout,
			CrossClaimCheck:  cfg.Pipeline.CrossClaimCheck,
		},
		log,
	)

	svc := NewService(orchestrator, fetch.NewFetcher(cfg.HTTP), records, log)
	svc.SetVerifier(verify.NewLinkChecker(cfg.HTTP, cfg.Pipeline.SourceConcurrency))
	svc.SetAnalyst(analyze.NewAnalyst(biasService, summaryService, log))
	return svc, closeAll, nil
}

// buildResultCache layers the in-process cache over disk or redis when configured
func buildResultCache(ctx context.Context, cfg model.CacheConfig, log *logrus.Logger, closers *[]func() error) (*cache.ResultCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var backend cache.Cache = cache.NewMemoryCache(cfg.TTL, 10*time.Minute)

	switch {
	case cfg.RedisAddr != "":
		redis, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, fingerprint.KeyPrefix, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		*closers = append(*closers, redis.Close)
		backend = cache.NewLayeredCache(backend, redis)
		log.WithField("addr", cfg.RedisAddr).Info("Using redis result cache")
	case cfg.Dir != "":
		backend = cache.NewLayeredCache(backend, cache.NewDiskCache(cfg.Dir, cfg.TTL))
		log.WithField("dir", cfg.Dir).Info("Using disk result cache")
	}

	return cache.NewResultCache(backend, cfg.TTL), nil
}
