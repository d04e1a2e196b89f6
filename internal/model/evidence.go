package model

import (
	"strings"
	"time"
)

// SearchHit is one candidate article returned by a news search provider
type SearchHit struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	SourceName  string     `json:"source_name"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
}

// Evidence represents a candidate source associated with a claim
type Evidence struct {
	ClaimID          string        `json:"claim_id"`
	SourceName       string        `json:"source_name"`
	SourceURL        string        `json:"source_url"`
	Title            string        `json:"title,omitempty"`
	Snippet          string        `json:"snippet,omitempty"`
	PublishedAt      *time.Time    `json:"published_at,omitempty"`
	Stance           Stance        `json:"stance"`
	StanceConfidence float64       `json:"stance_confidence,omitempty"` // Comparator confidence for the winning stance
	Relevance        float64       `json:"relevance"`                   // Lexical overlap with the claim (0-1)
	Authority        AuthorityTier `json:"authority,omitempty"`

	// Set by source verification only
	Link *LinkStatus `json:"link,omitempty"`
}

// LinkStatus is the result of checking that an evidence URL still resolves
type LinkStatus struct {
	Accessible   bool       `json:"accessible"`
	Dead         bool       `json:"dead"`                    // 404 or 410, or the request could not be made
	StatusCode   int        `json:"status_code,omitempty"`
	RedirectURL  string     `json:"redirect_url,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Text returns the source content used for stance comparison
func (e Evidence) Text() string {
	switch {
	case e.Title == "":
		return e.Snippet
	case e.Snippet == "":
		return e.Title
	default:
		return e.Title + ". " + e.Snippet
	}
}

// Stance describes how a source relates to a claim
type Stance string

const (
	StanceSupports    Stance = "supports"
	StanceContradicts Stance = "contradicts"
	StanceUnrelated   Stance = "unrelated"
)

// ParseStance maps free-form comparator output to a Stance.
// Anything unrecognized is unrelated.
func ParseStance(s string) Stance {
	switch Stance(strings.ToLower(strings.TrimSpace(s))) {
	case StanceSupports, "support", "supported", "agrees", "agree":
		return StanceSupports
	case StanceContradicts, "contradict", "contradicted", "refutes", "disagrees", "disagree":
		return StanceContradicts
	default:
		return StanceUnrelated
	}
}

// StanceJudgment is a single comparator verdict.
// Confidence is nil when the comparator did not report one.
type StanceJudgment struct {
	Stance     Stance   `json:"stance"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Contradiction is derived from contradicting evidence or from two conflicting claims
type Contradiction struct {
	ClaimID         string  `json:"claim_id"`
	ConflictingText string  `json:"conflicting_text"`
	SourceName      string  `json:"source_name,omitempty"` // Empty for claim-vs-claim conflicts
	SourceURL       string  `json:"source_url,omitempty"`
	OtherClaimID    string  `json:"other_claim_id,omitempty"`
	Severity        float64 `json:"severity"`
}

// IsCrossClaim reports whether the contradiction came from another claim rather than a source
func (c Contradiction) IsCrossClaim() bool {
	return c.OtherClaimID != ""
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Wire services, official and academic sources
	TierSecondary AuthorityTier = 2 // Established news organizations
	TierTertiary  AuthorityTier = 3 // Blogs, aggregators, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
