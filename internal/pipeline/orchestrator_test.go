package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/fingerprint"
	"github.com/ppiankov/credence/internal/model"
)

func mustArticle(t *testing.T, text string) model.Article {
	t.Helper()
	article, err := fingerprint.NewArticle("", "", text)
	if err != nil {
		t.Fatalf("NewArticle failed: %v", err)
	}
	return article
}

func TestOrchestrator_BridgeScenario(t *testing.T) {
	tp := newTestPipeline(t, []string{"The bridge collapsed on Monday."}, Options{}, false)

	result, err := tp.orchestrator.Run(context.Background(), mustArticle(t, "The bridge collapsed on Monday."))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Status != model.StatusCompleted {
		t.Errorf("Expected completed, got %s", result.Status)
	}
	if len(result.Evidence) != 2 {
		t.Fatalf("Expected 2 evidence items, got %d", len(result.Evidence))
	}
	for _, ev := range result.Evidence {
		if ev.Stance != model.StanceSupports {
			t.Errorf("Expected supports, got %s", ev.Stance)
		}
		if ev.ClaimID != "claim-0" {
			t.Errorf("Expected evidence for claim-0, got %s", ev.ClaimID)
		}
	}
	if len(result.Contradictions) != 0 {
		t.Errorf("Expected no contradictions, got %d", len(result.Contradictions))
	}
	if result.CredibilityScore <= 0.5 {
		t.Errorf("Expected score above 0.5, got %f", result.CredibilityScore)
	}
	if result.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
	if result.SourcesChecked != 2 || result.ClaimsExtracted != 1 {
		t.Errorf("Unexpected counts: sources=%d claims=%d", result.SourcesChecked, result.ClaimsExtracted)
	}
}

func TestOrchestrator_ZeroClaims(t *testing.T) {
	tp := newTestPipeline(t, nil, Options{}, false)

	result, err := tp.orchestrator.Run(context.Background(), mustArticle(t, "Lovely weather today."))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.CredibilityScore != 0.5 {
		t.Errorf("Expected neutral score 0.5, got %f", result.CredibilityScore)
	}
	if result.ClaimsExtracted != 0 {
		t.Errorf("Expected 0 claims, got %d", result.ClaimsExtracted)
	}
	if result.Contradictions == nil || len(result.Contradictions) != 0 {
		t.Errorf("Expected empty contradictions, got %#v", result.Contradictions)
	}
	if tp.search.calls.Load() != 0 {
		t.Errorf("Expected no search calls, got %d", tp.search.calls.Load())
	}
}

func TestOrchestrator_ExtractorFailure(t *testing.T) {
	tp := newTestPipeline(t, nil, Options{}, true)
	tp.claims.setErr(errors.New("model unavailable"))

	article := mustArticle(t, "The bridge collapsed on Monday.")
	result, err := tp.orchestrator.Run(context.Background(), article)
	if !model.IsExtraction(err) {
		t.Fatalf("Expected ExtractionError, got %v", err)
	}

	if result.Status != model.StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if result.Error == "" {
		t.Error("Expected error message on result")
	}
	if result.FailedStage != model.StageExtraction {
		t.Errorf("Expected failure in extraction stage, got %q", result.FailedStage)
	}
	if result.Scored() {
		t.Error("Expected result without scores")
	}
	if len(result.ClaimScores) != 0 || len(result.Signals) != 0 || len(result.Evidence) != 0 {
		t.Errorf("Expected nothing aggregated, got %d claim scores and %d signals",
			len(result.ClaimScores), len(result.Signals))
	}

	// failures are not cached
	tp.claims.setErr(nil)
	tp.claims.claims = []string{"The bridge collapsed on Monday."}
	again, err := tp.orchestrator.Run(context.Background(), article)
	if err != nil {
		t.Fatalf("Expected rerun to succeed, got %v", err)
	}
	if again.Status != model.StatusCompleted {
		t.Errorf("Expected completed on rerun, got %s", again.Status)
	}
}

func TestOrchestrator_ClaimTimeout(t *testing.T) {
	tp := newTestPipeline(t, []string{
		"The bridge collapsed on Monday.",
		"Rescue crews were delayed by traffic.",
		"Twelve people were injured.",
	}, Options{ClaimTimeout: 50 * time.Millisecond}, false)

	result, err := tp.orchestrator.Run(context.Background(), mustArticle(t, "three claims"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Status != model.StatusCompleted {
		t.Fatalf("Expected completed, got %s", result.Status)
	}
	if len(result.Claims) != 3 {
		t.Fatalf("Expected 3 claims, got %d", len(result.Claims))
	}
	for _, ev := range result.Evidence {
		if ev.ClaimID == "claim-1" {
			t.Errorf("Expected no evidence for timed-out claim, got %+v", ev)
		}
	}
	if len(result.Evidence) != 4 {
		t.Errorf("Expected evidence from the other two claims, got %d", len(result.Evidence))
	}
	if result.ClaimScores[1].Score != 0.5 {
		t.Errorf("Expected neutral sub-score for timed-out claim, got %f", result.ClaimScores[1].Score)
	}

	var partial bool
	for _, sig := range result.Signals {
		if sig.Type == model.SignalPartial {
			partial = true
		}
	}
	if !partial {
		t.Error("Expected a partial signal")
	}
}

func TestOrchestrator_RequestTimeout(t *testing.T) {
	tp := newTestPipeline(t, []string{
		"Rescue crews were delayed by traffic.",
		"Ferries were delayed by fog.",
	}, Options{ClaimTimeout: 5 * time.Second, RequestTimeout: 50 * time.Millisecond}, true)

	article := mustArticle(t, "slow article")
	result, err := tp.orchestrator.Run(context.Background(), article)
	if !model.IsTimeout(err) {
		t.Fatalf("Expected timeout error, got %v", err)
	}

	if result.Status != model.StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if len(result.Claims) != 2 {
		t.Errorf("Expected claims preserved in partial result, got %d", len(result.Claims))
	}
	if result.FailedStage != model.StageRequest || !result.Scored() {
		t.Errorf("Expected scored partial result from request stage, got stage %q", result.FailedStage)
	}
	if result.CredibilityScore < 0 || result.CredibilityScore > 1 {
		t.Errorf("Expected score in [0,1], got %f", result.CredibilityScore)
	}
}

func TestOrchestrator_Contradictions(t *testing.T) {
	tp := newTestPipeline(t, []string{"The mayor resigned on Friday."}, Options{}, false)
	tp.search.snippet = "The mayor denied the reports."

	result, err := tp.orchestrator.Run(context.Background(), mustArticle(t, "The mayor resigned on Friday."))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(result.Contradictions) != 2 {
		t.Fatalf("Expected 2 contradictions, got %d", len(result.Contradictions))
	}
	if result.Contradictions[0].Severity != 0.8 {
		t.Errorf("Expected severity 0.8, got %f", result.Contradictions[0].Severity)
	}
	if result.CredibilityScore >= 0.5 {
		t.Errorf("Expected score below 0.5, got %f", result.CredibilityScore)
	}
}

func TestOrchestrator_CachedResult(t *testing.T) {
	tp := newTestPipeline(t, []string{"The bridge collapsed on Monday."}, Options{}, true)
	article := mustArticle(t, "The bridge collapsed on Monday.")

	first, err := tp.orchestrator.Run(context.Background(), article)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// whitespace and case differences share the fingerprint
	second, err := tp.orchestrator.Run(context.Background(), mustArticle(t, "  the BRIDGE collapsed   on monday. "))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected cached result with id %s, got %s", first.ID, second.ID)
	}
	if tp.claims.calls.Load() != 1 {
		t.Errorf("Expected 1 extraction, got %d", tp.claims.calls.Load())
	}
	if tp.search.calls.Load() != 1 {
		t.Errorf("Expected 1 search, got %d", tp.search.calls.Load())
	}
}

func TestOrchestrator_CoalescesConcurrentRuns(t *testing.T) {
	tp := newTestPipeline(t, []string{"The bridge collapsed on Monday."}, Options{}, false)
	tp.claims.release = make(chan struct{})
	article := mustArticle(t, "The bridge collapsed on Monday.")

	const callers = 5
	var wg sync.WaitGroup
	ids := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := tp.orchestrator.Run(context.Background(), article)
			if err != nil {
				t.Errorf("Run failed: %v", err)
				return
			}
			ids[i] = result.ID
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(tp.claims.release)
	wg.Wait()

	if tp.claims.calls.Load() != 1 {
		t.Errorf("Expected a single execution, got %d", tp.claims.calls.Load())
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Errorf("Expected shared id %s, got %s", ids[0], id)
		}
	}
}

func TestOrchestrator_CallerCancellation(t *testing.T) {
	tp := newTestPipeline(t, []string{"The bridge collapsed on Monday."}, Options{}, false)
	tp.claims.release = make(chan struct{})
	defer close(tp.claims.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tp.orchestrator.Run(ctx, mustArticle(t, "The bridge collapsed on Monday.")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestOrchestrator_ScoreBounds(t *testing.T) {
	inputs := [][]string{
		{"The mayor resigned on Friday."},
		{"The bridge collapsed on Monday.", "Twelve people were injured.", "The river flooded."},
		{},
	}

	for _, claims := range inputs {
		tp := newTestPipeline(t, claims, Options{}, false)
		tp.search.snippet = "officials denied it"
		result, err := tp.orchestrator.Run(context.Background(), mustArticle(t, "article text"))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if result.CredibilityScore < 0 || result.CredibilityScore > 1 {
			t.Errorf("Score out of bounds: %f", result.CredibilityScore)
		}
		if result.Confidence < 0 || result.Confidence > 1 {
			t.Errorf("Confidence out of bounds: %f", result.Confidence)
		}
	}
}
