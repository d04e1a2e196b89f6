package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/credence/internal/cache"
	"github.com/ppiankov/credence/internal/detect"
	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/retrieve"
	"github.com/ppiankov/credence/internal/score"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options bounds one validation run
type Options struct {
	ClaimConcurrency int           // Claims processed at once
	ClaimTimeout     time.Duration // Budget for retrieval and detection of one claim
	RequestTimeout   time.Duration // Budget for the whole run
	CrossClaimCheck  bool          // Compare claims against each other
}

// Orchestrator sequences extraction, retrieval, detection and aggregation
// for one article and owns the resulting ValidationResult.
type Orchestrator struct {
	extractor  *extract.ClaimExtractor
	retriever  *retrieve.Retriever
	detector   *detect.Detector
	aggregator *score.Aggregator
	results    *cache.ResultCache // nil disables caching
	opts       Options
	log        logrus.FieldLogger

	flights singleflight.Group

	now   func() time.Time
	newID func() string
}

// NewOrchestrator wires the pipeline stages together
func NewOrchestrator(
	extractor *extract.ClaimExtractor,
	retriever *retrieve.Retriever,
	detector *detect.Detector,
	aggregator *score.Aggregator,
	results *cache.ResultCache,
	opts Options,
	log logrus.FieldLogger,
) *Orchestrator {
	if opts.ClaimConcurrency <= 0 {
		opts.ClaimConcurrency = 1
	}
	if opts.ClaimTimeout <= 0 {
		opts.ClaimTimeout = 30 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		extractor:  extractor,
		retriever:  retriever,
		detector:   detector,
		aggregator: aggregator,
		results:    results,
		opts:       opts,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run validates the article. A cached completed result for the same
// fingerprint is returned without calling any collaborator, and concurrent
// runs for one fingerprint share a single execution.
//
// A non-nil error comes with a failed result when the pipeline started
// (extraction failure, request timeout) and a nil result otherwise.
func (o *Orchestrator) Run(ctx context.Context, article model.Article) (*model.ValidationResult, error) {
	if cached, ok := o.cached(ctx, article.Fingerprint); ok {
		o.log.WithFields(logrus.Fields{
			"validation_id": cached.ID,
			"fingerprint":   article.Fingerprint,
		}).Debug("Serving cached validation")
		return cached, nil
	}

	return o.await(ctx, o.flights.DoChan(article.Fingerprint, func() (interface{}, error) {
		if cached, ok := o.cached(ctx, article.Fingerprint); ok {
			return cached, nil
		}
		// the run belongs to every waiting caller, not just the first
		return o.execute(context.WithoutCancel(ctx), article, o.newID())
	}))
}

// Rerun validates the article again under an existing id, dropping any
// cached result for its fingerprint first. A run already in flight for the
// fingerprint is joined rather than duplicated.
func (o *Orchestrator) Rerun(ctx context.Context, article model.Article, id string) (*model.ValidationResult, error) {
	if o.results != nil {
		if err := o.results.Invalidate(ctx, article.Fingerprint); err != nil {
			o.log.WithError(err).WithField("fingerprint", article.Fingerprint).Warn("Failed to invalidate cached validation")
		}
	}

	return o.await(ctx, o.flights.DoChan(article.Fingerprint, func() (interface{}, error) {
		return o.execute(context.WithoutCancel(ctx), article, id)
	}))
}

func (o *Orchestrator) await(ctx context.Context, ch <-chan singleflight.Result) (*model.ValidationResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		var result *model.ValidationResult
		if res.Val != nil {
			result = res.Val.(*model.ValidationResult).Clone()
		}
		return result, res.Err
	}
}

func (o *Orchestrator) cached(ctx context.Context, fp string) (*model.ValidationResult, bool) {
	if o.results == nil {
		return nil, false
	}
	return o.results.Get(ctx, fp)
}

// claimOutcome is what one claim task produced
type claimOutcome struct {
	evidence       []model.Evidence
	contradictions []model.Contradiction
	timedOut       bool
}

func (o *Orchestrator) execute(parent context.Context, article model.Article, id string) (*model.ValidationResult, error) {
	start := o.now()
	ctx, cancel := context.WithTimeout(parent, o.opts.RequestTimeout)
	defer cancel()

	result := model.NewValidationResult(id, article, start.UTC())
	log := o.log.WithFields(logrus.Fields{
		"validation_id": result.ID,
		"fingerprint":   article.Fingerprint,
	})
	_ = result.Advance(model.StatusProcessing)
	log.Info("Validation started")

	claims, err := o.extractor.Extract(ctx, article.RawText)
	if err != nil {
		if ctx.Err() != nil {
			err = &model.TimeoutError{Scope: "request", Err: err}
		}
		o.fail(result, model.StageExtraction, start, err, log)
		return result, err
	}
	result.Claims = claims
	result.ClaimsExtracted = len(claims)
	log.WithField("claims", len(claims)).Debug("Claims extracted")

	outcomes, done := o.fanOut(ctx, claims, log)
	requestExpired := ctx.Err() != nil

	var crossClaim []model.Contradiction
	if o.opts.CrossClaimCheck && !requestExpired && len(claims) > 1 {
		crossClaim = o.detector.DetectClaimConflicts(ctx, claims)
		requestExpired = ctx.Err() != nil
	}

	var dropped []string
	for i, claim := range claims {
		if !done[i] || outcomes[i].timedOut {
			dropped = append(dropped, claim.ID)
			continue
		}
		result.Evidence = append(result.Evidence, outcomes[i].evidence...)
		result.Contradictions = append(result.Contradictions, outcomes[i].contradictions...)
	}
	result.Contradictions = append(result.Contradictions, crossClaim...)

	o.aggregator.Aggregate(claims, result.Evidence, result.Contradictions).Apply(result)
	if len(dropped) > 0 {
		result.Signals = append(result.Signals, partialSignal(dropped, len(claims)))
	}

	if requestExpired {
		err := &model.TimeoutError{Scope: "request", Err: context.DeadlineExceeded}
		o.fail(result, model.StageRequest, start, err, log)
		return result, err
	}

	completedAt := o.now().UTC()
	result.CompletedAt = &completedAt
	result.ProcessingTime = o.now().Sub(start)
	_ = result.Advance(model.StatusCompleted)

	if o.results != nil {
		if err := o.results.Put(parent, result); err != nil {
			log.WithError(err).Warn("Failed to cache validation result")
		}
	}

	log.WithFields(logrus.Fields{
		"score":           result.CredibilityScore,
		"sources_checked": result.SourcesChecked,
		"contradictions":  len(result.Contradictions),
		"duration":        result.ProcessingTime,
	}).Info("Validation completed")

	return result, nil
}

// fanOut runs retrieval and detection for every claim with bounded
// concurrency. When the request deadline passes it returns whatever has
// finished; done reports which outcomes are usable.
func (o *Orchestrator) fanOut(ctx context.Context, claims []model.Claim, log logrus.FieldLogger) ([]claimOutcome, []bool) {
	var mu sync.Mutex
	outcomes := make([]claimOutcome, len(claims))
	done := make([]bool, len(claims))

	finished := make(chan struct{})
	go func() {
		defer close(finished)

		var g errgroup.Group
		g.SetLimit(o.opts.ClaimConcurrency)
		for i, claim := range claims {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				outcome := o.processClaim(ctx, claim, log)
				if ctx.Err() != nil {
					return nil
				}
				mu.Lock()
				outcomes[i] = outcome
				done[i] = true
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		log.Warn("Request deadline reached, assembling partial result")
	}

	mu.Lock()
	defer mu.Unlock()
	snapshotOutcomes := make([]claimOutcome, len(outcomes))
	copy(snapshotOutcomes, outcomes)
	snapshotDone := make([]bool, len(done))
	copy(snapshotDone, done)
	return snapshotOutcomes, snapshotDone
}

func (o *Orchestrator) processClaim(ctx context.Context, claim model.Claim, log logrus.FieldLogger) claimOutcome {
	claimCtx, cancel := context.WithTimeout(ctx, o.opts.ClaimTimeout)
	defer cancel()

	log = log.WithField("claim_id", claim.ID)

	evidence, err := o.retriever.Retrieve(claimCtx, claim)
	if err != nil {
		log.WithError(err).Warn("Source retrieval failed, continuing without evidence")
		evidence = nil
	}

	var contradictions []model.Contradiction
	if len(evidence) > 0 {
		evidence, contradictions = o.detector.Detect(claimCtx, claim, evidence)
	}

	if claimCtx.Err() != nil && ctx.Err() == nil {
		log.WithError(&model.TimeoutError{Scope: "claim", Err: claimCtx.Err()}).
			Warn("Claim timed out, treating as no evidence")
		return claimOutcome{timedOut: true}
	}

	return claimOutcome{evidence: evidence, contradictions: contradictions}
}

func (o *Orchestrator) fail(result *model.ValidationResult, stage model.Stage, start time.Time, err error, log logrus.FieldLogger) {
	result.Error = err.Error()
	result.FailedStage = stage
	result.ProcessingTime = o.now().Sub(start)
	_ = result.Advance(model.StatusFailed)
	log.WithError(err).WithField("stage", stage).Error("Validation failed")
}

func partialSignal(dropped []string, total int) model.Signal {
	return model.Signal{
		Type:        model.SignalPartial,
		Severity:    model.SeverityWarning,
		Description: "Some claims were scored without evidence after timing out",
		Data: map[string]interface{}{
			"dropped_claims": dropped,
			"dropped":        len(dropped),
			"total":          total,
		},
	}
}
