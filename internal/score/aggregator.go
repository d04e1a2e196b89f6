package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/credence/internal/model"
)

const (
	// NeutralScore is used for claims without evidence and articles without claims
	NeutralScore = 0.5

	baseConfidence    = 0.1
	confidencePerHit  = 0.06
	defaultPenalty    = 1.0
	defaultCrossClaim = 0.25
)

// Summary is the aggregator output
type Summary struct {
	CredibilityScore float64
	Confidence       float64
	SourcesChecked   int
	ClaimsExtracted  int
	Supports         int
	Contradicts      int
	Unrelated        int
	ClaimScores      []model.ClaimScore
	Signals          []model.Signal
}

// Apply copies the summary onto a result
func (s Summary) Apply(result *model.ValidationResult) {
	result.CredibilityScore = s.CredibilityScore
	result.Confidence = s.Confidence
	result.SourcesChecked = s.SourcesChecked
	result.ClaimsExtracted = s.ClaimsExtracted
	result.ClaimScores = s.ClaimScores
	result.Signals = s.Signals
}

// Aggregator combines evidence stances into a credibility score
type Aggregator struct {
	contradictionPenalty float64
	crossClaimPenalty    float64
}

// NewAggregator creates an aggregator from scoring config. Loaded configs
// always carry a positive contradiction penalty (Config.Validate); a zero
// value here comes from an unset struct and gets the default.
func NewAggregator(config model.ScoringConfig) *Aggregator {
	a := &Aggregator{
		contradictionPenalty: config.ContradictionPenalty,
		crossClaimPenalty:    config.CrossClaimPenalty,
	}
	if a.contradictionPenalty <= 0 {
		a.contradictionPenalty = defaultPenalty
	}
	if a.crossClaimPenalty < 0 {
		a.crossClaimPenalty = defaultCrossClaim
	}
	return a
}

// Aggregate scores the claims. It is a pure function of its inputs and does
// not depend on the order in which evidence or contradictions arrive.
//
// Per claim with n evidence items, s supporting and c contradicting:
//
//	sub = clamp(0.5 + 0.5 * (s/n - penalty * c/n))
//
// minus crossClaimPenalty * severity for every claim-vs-claim conflict the
// claim takes part in. Claims without evidence score 0.5.
func (a *Aggregator) Aggregate(claims []model.Claim, evidence []model.Evidence, contradictions []model.Contradiction) Summary {
	summary := Summary{
		ClaimsExtracted: len(claims),
		ClaimScores:     make([]model.ClaimScore, 0, len(claims)),
	}

	index := make(map[string]int, len(claims))
	for i, claim := range claims {
		index[claim.ID] = i
		summary.ClaimScores = append(summary.ClaimScores, model.ClaimScore{ClaimID: claim.ID})
	}

	for _, ev := range evidence {
		i, ok := index[ev.ClaimID]
		if !ok {
			continue
		}
		summary.SourcesChecked++
		switch ev.Stance {
		case model.StanceSupports:
			summary.ClaimScores[i].Supports++
			summary.Supports++
		case model.StanceContradicts:
			summary.ClaimScores[i].Contradicts++
			summary.Contradicts++
		default:
			summary.ClaimScores[i].Unrelated++
			summary.Unrelated++
		}
	}

	crossSeverities := make(map[int][]float64)
	crossCount := 0
	for _, c := range contradictions {
		if !c.IsCrossClaim() {
			continue
		}
		crossCount++
		for _, id := range []string{c.ClaimID, c.OtherClaimID} {
			if i, ok := index[id]; ok {
				crossSeverities[i] = append(crossSeverities[i], clamp(c.Severity))
				summary.ClaimScores[i].CrossConflicts++
			}
		}
	}

	total := 0.0
	for i := range summary.ClaimScores {
		cs := &summary.ClaimScores[i]
		cs.Score = a.claimScore(cs.Supports, cs.Contradicts, cs.Unrelated, crossSeverities[i])
		total += cs.Score
	}

	if len(claims) == 0 {
		summary.CredibilityScore = NeutralScore
	} else {
		summary.CredibilityScore = clamp(total / float64(len(claims)))
	}
	summary.Confidence = Confidence(summary.SourcesChecked)

	summary.Signals = a.signals(summary, contradictions, crossCount, evidence, index)
	return summary
}

func (a *Aggregator) claimScore(supports, contradicts, unrelated int, crossSeverities []float64) float64 {
	score := NeutralScore

	n := supports + contradicts + unrelated
	if n > 0 {
		support := float64(supports) / float64(n)
		contradict := float64(contradicts) / float64(n)
		score = clamp(NeutralScore + 0.5*(support-a.contradictionPenalty*contradict))
	}

	// Sorted so the sum is independent of arrival order
	sort.Float64s(crossSeverities)
	for _, severity := range crossSeverities {
		score -= a.crossClaimPenalty * severity
	}

	return clamp(score)
}

// Confidence grows with the number of sources checked and is capped at 1
func Confidence(sourcesChecked int) float64 {
	return clamp(baseConfidence + confidencePerHit*float64(max(sourcesChecked, 0)))
}

func (a *Aggregator) signals(summary Summary, contradictions []model.Contradiction, crossCount int, evidence []model.Evidence, index map[string]int) []model.Signal {
	signals := []model.Signal{coverageSignal(summary)}

	if summary.SourcesChecked > 0 {
		signals = append(signals, stanceSignal(summary))
		signals = append(signals, authoritySignal(evidence, index))
	}
	if len(contradictions) > 0 {
		signals = append(signals, contradictionSignal(contradictions, crossCount))
	}

	severity := model.SeverityInfo
	if summary.Confidence < 0.4 {
		severity = model.SeverityWarning
	}
	signals = append(signals, model.Signal{
		Type:        model.SignalConfidence,
		Severity:    severity,
		Description: fmt.Sprintf("Confidence %.2f from %d sources checked", summary.Confidence, summary.SourcesChecked),
		Data: map[string]interface{}{
			"sources_checked": summary.SourcesChecked,
			"confidence":      summary.Confidence,
			"formula":         "min(0.1 + 0.06 * sources_checked, 1)",
		},
	})

	return signals
}

func coverageSignal(summary Summary) model.Signal {
	if summary.ClaimsExtracted == 0 {
		return model.Signal{
			Type:        model.SignalEvidenceCoverage,
			Severity:    model.SeverityWarning,
			Description: "No claims extracted; score is neutral",
			Data:        map[string]interface{}{"claims": 0},
		}
	}

	covered := 0
	for _, cs := range summary.ClaimScores {
		if cs.Supports+cs.Contradicts+cs.Unrelated > 0 {
			covered++
		}
	}
	ratio := float64(covered) / float64(summary.ClaimsExtracted)

	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityCritical
	} else if ratio < 1.0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalEvidenceCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d claims have at least one source", covered, summary.ClaimsExtracted),
		Data: map[string]interface{}{
			"claims":  summary.ClaimsExtracted,
			"covered": covered,
			"ratio":   ratio,
		},
	}
}

func stanceSignal(summary Summary) model.Signal {
	severity := model.SeverityInfo
	if summary.Contradicts > summary.Supports {
		severity = model.SeverityWarning
	}
	return model.Signal{
		Type:        model.SignalStanceBalance,
		Severity:    severity,
		Description: fmt.Sprintf("%d supporting, %d contradicting, %d unrelated", summary.Supports, summary.Contradicts, summary.Unrelated),
		Data: map[string]interface{}{
			"supports":    summary.Supports,
			"contradicts": summary.Contradicts,
			"unrelated":   summary.Unrelated,
			"formula":     "mean over claims of clamp(0.5 + 0.5 * (supports/n - penalty * contradicts/n))",
		},
	}
}

func authoritySignal(evidence []model.Evidence, index map[string]int) model.Signal {
	counts := map[model.AuthorityTier]int{}
	total := 0
	for _, ev := range evidence {
		if _, ok := index[ev.ClaimID]; !ok {
			continue
		}
		counts[ev.Authority]++
		total++
	}

	severity := model.SeverityInfo
	if counts[model.TierPrimary] == 0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalAuthorityDistribution,
		Severity:    severity,
		Description: fmt.Sprintf("Sources: %d primary, %d secondary, %d tertiary", counts[model.TierPrimary], counts[model.TierSecondary], counts[model.TierTertiary]),
		Data: map[string]interface{}{
			"primary":   counts[model.TierPrimary],
			"secondary": counts[model.TierSecondary],
			"tertiary":  counts[model.TierTertiary],
			"total":     total,
		},
	}
}

func contradictionSignal(contradictions []model.Contradiction, crossCount int) model.Signal {
	maxSeverity := 0.0
	for _, c := range contradictions {
		maxSeverity = math.Max(maxSeverity, c.Severity)
	}

	severity := model.SeverityWarning
	if maxSeverity >= 0.75 {
		severity = model.SeverityCritical
	}

	return model.Signal{
		Type:        model.SignalContradiction,
		Severity:    severity,
		Description: fmt.Sprintf("%d contradictions found (%d between claims)", len(contradictions), crossCount),
		Data: map[string]interface{}{
			"count":        len(contradictions),
			"cross_claim":  crossCount,
			"max_severity": maxSeverity,
		},
	}
}

// clamp bounds v to [0,1] and maps NaN to the neutral score
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return NeutralScore
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
