package retrieve

import (
	"context"
	"strings"

	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
)

// EvidenceSearchService is the news-search capability used to find
// candidate sources for a claim.
type EvidenceSearchService interface {
	Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error)
}

// Options bounds retrieval
type Options struct {
	MaxResults   int     // Cap on candidates per claim
	MinRelevance float64 // Candidates below this are dropped
	QueryTerms   int     // Salient terms used to build the query
}

// Retriever finds evidence candidates for claims
type Retriever struct {
	search    EvidenceSearchService
	authority *AuthorityClassifier
	opts      Options
	log       logrus.FieldLogger
}

// NewRetriever creates a retriever. A nil classifier uses the default authority config.
func NewRetriever(search EvidenceSearchService, authority *AuthorityClassifier, opts Options, log logrus.FieldLogger) *Retriever {
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Retriever{
		search:    search,
		authority: authority,
		opts:      opts,
		log:       log,
	}
}

// Retrieve searches for sources related to the claim and returns them as
// evidence with stance unrelated, in the order the search returned them.
// Errors are *model.RetrievalError; callers treat them as empty evidence.
func (r *Retriever) Retrieve(ctx context.Context, claim model.Claim) ([]model.Evidence, error) {
	if r.search == nil {
		return nil, &model.RetrievalError{ClaimID: claim.ID, Err: errNoSearchService}
	}

	query := BuildQuery(claim.Text, r.opts.QueryTerms)
	hits, err := r.search.Search(ctx, query, r.opts.MaxResults)
	if err != nil {
		return nil, &model.RetrievalError{ClaimID: claim.ID, Err: err}
	}

	claimTerms := SalientTerms(claim.Text)
	seen := make(map[string]bool, len(hits))
	evidence := make([]model.Evidence, 0, len(hits))

	for _, hit := range hits {
		if len(evidence) >= r.opts.MaxResults {
			break
		}

		key := strings.TrimRight(strings.TrimSpace(hit.URL), "/")
		if key == "" || seen[key] {
			continue
		}

		relevance := Relevance(claimTerms, hit.Title+" "+hit.Snippet)
		if relevance < r.opts.MinRelevance {
			continue
		}
		seen[key] = true

		evidence = append(evidence, model.Evidence{
			ClaimID:     claim.ID,
			SourceName:  sourceName(hit),
			SourceURL:   hit.URL,
			Title:       hit.Title,
			Snippet:     hit.Snippet,
			PublishedAt: hit.PublishedAt,
			Stance:      model.StanceUnrelated,
			Relevance:   relevance,
			Authority:   r.authority.Classify(hit.URL),
		})
	}

	r.log.WithFields(logrus.Fields{
		"claim_id": claim.ID,
		"query":    query,
		"hits":     len(hits),
		"evidence": len(evidence),
	}).Debug("retrieved evidence")

	return evidence, nil
}

func sourceName(hit model.SearchHit) string {
	if hit.SourceName != "" {
		return hit.SourceName
	}
	if host := hostOf(hit.URL); host != "" {
		return host
	}
	return "unknown"
}
