package score

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ppiankov/credence/internal/model"
)

func claimsN(n int) []model.Claim {
	claims := make([]model.Claim, n)
	for i := range claims {
		claims[i] = model.Claim{ID: model.ClaimID(i), Text: "claim", Order: i}
	}
	return claims
}

func ev(claimID string, stance model.Stance) model.Evidence {
	return model.Evidence{ClaimID: claimID, SourceURL: "https://example.com/" + claimID, Stance: stance}
}

func TestAggregator_EmptyClaims(t *testing.T) {
	summary := NewAggregator(model.ScoringConfig{}).Aggregate(nil, nil, nil)

	if summary.CredibilityScore != 0.5 {
		t.Errorf("Expected neutral score 0.5, got %.2f", summary.CredibilityScore)
	}
	if summary.Confidence != 0.1 {
		t.Errorf("Expected low confidence 0.1, got %.2f", summary.Confidence)
	}
	if summary.ClaimsExtracted != 0 || summary.SourcesChecked != 0 {
		t.Errorf("Expected zero counts, got %+v", summary)
	}
	if len(summary.Signals) == 0 || summary.Signals[0].Type != model.SignalEvidenceCoverage {
		t.Error("Expected coverage signal first")
	}
}

func TestAggregator_NoEvidenceIsNeutral(t *testing.T) {
	summary := NewAggregator(model.ScoringConfig{}).Aggregate(claimsN(3), nil, nil)

	if summary.CredibilityScore != 0.5 {
		t.Errorf("Expected neutral score for claims without evidence, got %.2f", summary.CredibilityScore)
	}
	for _, cs := range summary.ClaimScores {
		if cs.Score != 0.5 {
			t.Errorf("Expected claim %s to score 0.5, got %.2f", cs.ClaimID, cs.Score)
		}
	}
}

func TestAggregator_SupportAboveNeutral(t *testing.T) {
	claims := claimsN(2)
	evidence := []model.Evidence{
		ev("claim-0", model.StanceSupports),
		ev("claim-0", model.StanceSupports),
		ev("claim-1", model.StanceSupports),
		ev("claim-1", model.StanceUnrelated),
	}

	summary := NewAggregator(model.ScoringConfig{}).Aggregate(claims, evidence, nil)

	// claim-0: 0.5 + 0.5*1 = 1.0, claim-1: 0.5 + 0.5*0.5 = 0.75
	if math.Abs(summary.CredibilityScore-0.875) > 1e-9 {
		t.Errorf("Expected 0.875, got %.4f", summary.CredibilityScore)
	}
	if summary.SourcesChecked != 4 {
		t.Errorf("Expected 4 sources checked, got %d", summary.SourcesChecked)
	}
	if math.Abs(summary.Confidence-0.34) > 1e-9 {
		t.Errorf("Expected confidence 0.34, got %.4f", summary.Confidence)
	}
}

func TestAggregator_ContradictionsLowerScore(t *testing.T) {
	claims := claimsN(1)
	evidence := []model.Evidence{
		ev("claim-0", model.StanceContradicts),
		ev("claim-0", model.StanceContradicts),
		ev("claim-0", model.StanceSupports),
		ev("claim-0", model.StanceUnrelated),
	}
	contradictions := []model.Contradiction{
		{ClaimID: "claim-0", SourceName: "A", Severity: 0.9},
		{ClaimID: "claim-0", SourceName: "B", Severity: 0.5},
	}

	summary := NewAggregator(model.ScoringConfig{ContradictionPenalty: 1}).Aggregate(claims, evidence, contradictions)

	// 0.5 + 0.5*(0.25 - 0.5) = 0.375
	if math.Abs(summary.CredibilityScore-0.375) > 1e-9 {
		t.Errorf("Expected 0.375, got %.4f", summary.CredibilityScore)
	}

	found := false
	for _, s := range summary.Signals {
		if s.Type == model.SignalContradiction {
			found = true
			if s.Severity != model.SeverityCritical {
				t.Errorf("Expected critical contradiction signal, got %s", s.Severity)
			}
		}
	}
	if !found {
		t.Error("Expected contradiction signal")
	}
}

func TestAggregator_CrossClaimPenalty(t *testing.T) {
	claims := claimsN(3)
	contradictions := []model.Contradiction{
		{ClaimID: "claim-2", OtherClaimID: "claim-0", Severity: 0.8},
	}

	summary := NewAggregator(model.ScoringConfig{CrossClaimPenalty: 0.25}).Aggregate(claims, nil, contradictions)

	// claims 0 and 2: 0.5 - 0.2 = 0.3, claim 1: 0.5
	if math.Abs(summary.ClaimScores[0].Score-0.3) > 1e-9 || math.Abs(summary.ClaimScores[2].Score-0.3) > 1e-9 {
		t.Errorf("Expected both conflicting claims penalized, got %+v", summary.ClaimScores)
	}
	if summary.ClaimScores[1].Score != 0.5 {
		t.Errorf("Expected uninvolved claim neutral, got %.2f", summary.ClaimScores[1].Score)
	}
	if summary.ClaimScores[2].CrossConflicts != 1 {
		t.Errorf("Expected cross conflict counted, got %d", summary.ClaimScores[2].CrossConflicts)
	}
}

func TestAggregator_Bounds(t *testing.T) {
	aggregator := NewAggregator(model.ScoringConfig{ContradictionPenalty: 5, CrossClaimPenalty: 3})
	claims := claimsN(2)
	evidence := []model.Evidence{
		ev("claim-0", model.StanceContradicts),
		ev("claim-1", model.StanceSupports),
		ev("claim-9", model.StanceSupports), // unknown claim is ignored
	}
	contradictions := []model.Contradiction{
		{ClaimID: "claim-1", OtherClaimID: "claim-0", Severity: math.NaN()},
		{ClaimID: "claim-1", OtherClaimID: "claim-0", Severity: 7},
	}

	summary := aggregator.Aggregate(claims, evidence, contradictions)

	if summary.CredibilityScore < 0 || summary.CredibilityScore > 1 || math.IsNaN(summary.CredibilityScore) {
		t.Errorf("Score out of bounds: %v", summary.CredibilityScore)
	}
	if summary.SourcesChecked != 2 {
		t.Errorf("Expected evidence for unknown claims ignored, got %d", summary.SourcesChecked)
	}
	for _, cs := range summary.ClaimScores {
		if cs.Score < 0 || cs.Score > 1 || math.IsNaN(cs.Score) {
			t.Errorf("Claim score out of bounds: %+v", cs)
		}
	}
}

func TestAggregator_OrderIndependent(t *testing.T) {
	claims := claimsN(4)
	stances := []model.Stance{model.StanceSupports, model.StanceContradicts, model.StanceUnrelated}

	var evidence []model.Evidence
	for i := 0; i < 40; i++ {
		evidence = append(evidence, ev(model.ClaimID(i%4), stances[i%3]))
	}
	contradictions := []model.Contradiction{
		{ClaimID: "claim-1", OtherClaimID: "claim-0", Severity: 0.1},
		{ClaimID: "claim-2", OtherClaimID: "claim-0", Severity: 0.7},
		{ClaimID: "claim-3", OtherClaimID: "claim-0", Severity: 0.33},
	}

	aggregator := NewAggregator(model.ScoringConfig{CrossClaimPenalty: 0.25})
	baseline := aggregator.Aggregate(claims, evidence, contradictions)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		rng.Shuffle(len(evidence), func(i, j int) { evidence[i], evidence[j] = evidence[j], evidence[i] })
		rng.Shuffle(len(contradictions), func(i, j int) {
			contradictions[i], contradictions[j] = contradictions[j], contradictions[i]
		})

		summary := aggregator.Aggregate(claims, evidence, contradictions)
		if summary.CredibilityScore != baseline.CredibilityScore || summary.Confidence != baseline.Confidence {
			t.Fatalf("Round %d: expected %.6f/%.6f, got %.6f/%.6f", round,
				baseline.CredibilityScore, baseline.Confidence, summary.CredibilityScore, summary.Confidence)
		}
	}
}

func TestConfidence_MonotonicAndCapped(t *testing.T) {
	previous := -1.0
	for n := 0; n <= 30; n++ {
		c := Confidence(n)
		if c < previous {
			t.Errorf("Confidence decreased at %d: %.2f < %.2f", n, c, previous)
		}
		if c > 1 {
			t.Errorf("Confidence above 1 at %d: %.2f", n, c)
		}
		previous = c
	}
	if Confidence(100) != 1 {
		t.Errorf("Expected confidence capped at 1, got %.2f", Confidence(100))
	}
}
