package model

import (
	"fmt"
	"slices"
	"time"
)

// Status is the lifecycle state of a validation
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// ValidationResult is the terminal aggregate of one validation run
type ValidationResult struct {
	ID              string          `json:"id"`
	Fingerprint     string          `json:"fingerprint"`
	SourceURL       string          `json:"source_url,omitempty"`
	ValidationTypes []string        `json:"validation_types,omitempty"`
	Status          Status          `json:"status"`
	Claims          []Claim         `json:"claims"`
	Evidence        []Evidence      `json:"evidence"`
	Contradictions  []Contradiction `json:"contradictions"`

	CredibilityScore float64       `json:"credibility_score"`
	Confidence       float64       `json:"confidence"`
	SourcesChecked   int           `json:"sources_checked"`
	ClaimsExtracted  int           `json:"claims_extracted"`
	ClaimScores      []ClaimScore  `json:"claim_scores,omitempty"`
	Signals          []Signal      `json:"signals,omitempty"`
	ProcessingTime   time.Duration `json:"processing_time"`

	Bias    *BiasAssessment `json:"bias,omitempty"`
	Summary string          `json:"summary,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	FailedStage Stage      `json:"failed_stage,omitempty"`
	RetryCount  int        `json:"retry_count,omitempty"`
}

// Stage names the pipeline step a failed validation stopped in
type Stage string

const (
	StageExtraction Stage = "extraction" // No claims, nothing was scored
	StageRequest    Stage = "request"    // Deadline passed after scoring started
)

// Scored reports whether the scores were produced by aggregation. A run
// that failed during extraction carries no scores at all.
func (r *ValidationResult) Scored() bool {
	return !(r.Status == StatusFailed && r.FailedStage == StageExtraction)
}

// NewValidationResult creates a pending result for the article
func NewValidationResult(id string, article Article, createdAt time.Time) *ValidationResult {
	return &ValidationResult{
		ID:             id,
		Fingerprint:    article.Fingerprint,
		SourceURL:      article.SourceURL,
		Status:         StatusPending,
		Claims:         []Claim{},
		Evidence:       []Evidence{},
		Contradictions: []Contradiction{},
		CreatedAt:      createdAt,
	}
}

// Advance moves the result to the next status. Regressions and
// transitions out of a terminal state are rejected.
func (r *ValidationResult) Advance(next Status) error {
	if next.rank() < 0 {
		return fmt.Errorf("unknown status %q", next)
	}
	if r.Status.IsTerminal() || next.rank() <= r.Status.rank() {
		return fmt.Errorf("invalid status transition %s -> %s", r.Status, next)
	}
	r.Status = next
	return nil
}

// Clone returns a copy whose slices can be modified without touching r
func (r *ValidationResult) Clone() *ValidationResult {
	c := *r
	c.Claims = slices.Clone(r.Claims)
	c.Evidence = slices.Clone(r.Evidence)
	c.Contradictions = slices.Clone(r.Contradictions)
	c.ClaimScores = slices.Clone(r.ClaimScores)
	c.Signals = slices.Clone(r.Signals)
	c.ValidationTypes = slices.Clone(r.ValidationTypes)
	if r.Bias != nil {
		bias := *r.Bias
		c.Bias = &bias
	}
	return &c
}

// BiasAssessment describes the slant of an article's framing. Score runs
// from -1 (against its subject) through 0 (neutral) to 1 (in favour).
type BiasAssessment struct {
	Score      float64 `json:"bias_score"`
	Direction  string  `json:"bias_direction"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ClaimScore is the per-claim breakdown behind the credibility score
type ClaimScore struct {
	ClaimID        string  `json:"claim_id"`
	Score          float64 `json:"score"`
	Supports       int     `json:"supports"`
	Contradicts    int     `json:"contradicts"`
	Unrelated      int     `json:"unrelated"`
	CrossConflicts int     `json:"cross_conflicts,omitempty"`
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalEvidenceCoverage      SignalType = "evidence_coverage"      // Claims with at least one source
	SignalStanceBalance         SignalType = "stance_balance"         // Supports vs contradicts
	SignalContradiction         SignalType = "contradiction"          // Contradictions found
	SignalAuthorityDistribution SignalType = "authority_distribution" // Authority tier balance
	SignalConfidence            SignalType = "confidence"             // Evidence density
	SignalPartial               SignalType = "partial"                // Claims dropped by timeouts or failures
	SignalSourceLiveness        SignalType = "source_liveness"        // Evidence links that no longer resolve
	SignalBias                  SignalType = "bias"                   // Slant of the article's framing
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
