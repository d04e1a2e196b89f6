package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/credence/internal/model"
)

type stubSearch struct {
	hits      []model.SearchHit
	err       error
	lastQuery string
	lastLimit int
}

func (s *stubSearch) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	s.lastQuery = query
	s.lastLimit = limit
	return s.hits, s.err
}

func TestSalientTerms(t *testing.T) {
	terms := SalientTerms("The Governor's bridge was closed, and the bridge reopened in 2024.")

	expected := []string{"governor", "bridge", "closed", "reopened", "2024"}
	if len(terms) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, terms)
	}
	for i := range expected {
		if terms[i] != expected[i] {
			t.Errorf("Expected term %d to be %q, got %q", i, expected[i], terms[i])
		}
	}
}

func TestBuildQuery(t *testing.T) {
	query := BuildQuery("The central bank raised interest rates by half a point on Tuesday", 4)
	if query != "central bank raised interest" {
		t.Errorf("Unexpected query: %q", query)
	}

	// All stopwords falls back to the raw text
	if got := BuildQuery("  it was the  ", 8); got != "it was the" {
		t.Errorf("Expected raw fallback, got %q", got)
	}
}

func TestRelevance_Monotonic(t *testing.T) {
	claim := SalientTerms("Bridge collapse injured twelve commuters")

	candidates := []string{
		"Weather forecast for the weekend",
		"Bridge inspection scheduled",
		"Bridge collapse investigated",
		"Bridge collapse injured commuters",
		"Bridge collapse injured twelve commuters",
	}

	previous := -1.0
	for _, candidate := range candidates {
		score := Relevance(claim, candidate)
		if score < previous {
			t.Errorf("Relevance decreased for %q: %.2f < %.2f", candidate, score, previous)
		}
		if score < 0 || score > 1 {
			t.Errorf("Relevance out of range for %q: %.2f", candidate, score)
		}
		previous = score
	}

	if previous != 1.0 {
		t.Errorf("Expected full overlap to score 1.0, got %.2f", previous)
	}
}

func TestRelevance_Deterministic(t *testing.T) {
	claim := SalientTerms("Parliament passed the budget bill")
	a := Relevance(claim, "Budget bill passed by parliament late night")
	b := Relevance(claim, "Budget bill passed by parliament late night")
	if a != b {
		t.Errorf("Expected identical scores, got %.4f and %.4f", a, b)
	}
	if Relevance(nil, "anything") != 0 {
		t.Error("Expected 0 relevance for claim without salient terms")
	}
}

func TestRetriever_FiltersDedupesAndCaps(t *testing.T) {
	search := &stubSearch{hits: []model.SearchHit{
		{Title: "Bridge collapse injures commuters", URL: "https://www.reuters.com/a", SourceName: "Reuters"},
		{Title: "Bridge collapse injures commuters", URL: "https://www.reuters.com/a/"},
		{Title: "Celebrity wedding photos", URL: "https://gossip.example/b", SourceName: "Gossip"},
		{Title: "City bridge collapse", Snippet: "Commuters injured", URL: "https://blog.example/c"},
		{Title: "Bridge collapse update", URL: "https://bbc.co.uk/d", SourceName: "BBC"},
	}}

	retriever := NewRetriever(search, nil, Options{MaxResults: 2, MinRelevance: 0.2, QueryTerms: 8}, nil)
	claim := model.Claim{ID: model.ClaimID(0), Text: "A bridge collapse injured commuters"}

	evidence, err := retriever.Retrieve(context.Background(), claim)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if search.lastLimit != 2 {
		t.Errorf("Expected search limit 2, got %d", search.lastLimit)
	}
	if len(evidence) != 2 {
		t.Fatalf("Expected 2 evidence items, got %d: %+v", len(evidence), evidence)
	}

	if evidence[0].SourceURL != "https://www.reuters.com/a" {
		t.Errorf("Expected retrieval order preserved, got %s", evidence[0].SourceURL)
	}
	if evidence[1].SourceURL != "https://blog.example/c" {
		t.Errorf("Expected duplicate and irrelevant hits skipped, got %s", evidence[1].SourceURL)
	}
	if evidence[1].SourceName != "blog.example" {
		t.Errorf("Expected host as fallback source name, got %s", evidence[1].SourceName)
	}

	for _, ev := range evidence {
		if ev.ClaimID != claim.ID {
			t.Errorf("Expected claim ID %s, got %s", claim.ID, ev.ClaimID)
		}
		if ev.Stance != model.StanceUnrelated {
			t.Errorf("Expected unrelated stance before comparison, got %s", ev.Stance)
		}
		if ev.Relevance < 0.2 {
			t.Errorf("Expected relevance above threshold, got %.2f", ev.Relevance)
		}
	}

	if evidence[0].Authority != model.TierPrimary {
		t.Errorf("Expected Reuters to be primary, got %v", evidence[0].Authority)
	}
}

func TestRetriever_SearchFailure(t *testing.T) {
	retriever := NewRetriever(&stubSearch{err: errors.New("503")}, nil, Options{}, nil)

	_, err := retriever.Retrieve(context.Background(), model.Claim{ID: "claim-0", Text: "anything at all"})

	var retrievalErr *model.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("Expected RetrievalError, got %v", err)
	}
	if retrievalErr.ClaimID != "claim-0" {
		t.Errorf("Expected claim ID on error, got %s", retrievalErr.ClaimID)
	}
}

func TestAuthorityClassifier_Classify(t *testing.T) {
	classifier := NewAuthorityClassifier(&model.AuthorityConfig{
		PrimaryDomains:   []string{"reuters.com", "gov"},
		SecondaryDomains: []string{"bbc.co.uk"},
		DomainMap:        map[string]string{"localpaper.example": "secondary"},
	})

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{"https://www.reuters.com/world/x", model.TierPrimary, "Primary with www"},
		{"https://cdc.gov/data", model.TierPrimary, "Bare suffix domain"},
		{"https://news.bbc.co.uk/story", model.TierSecondary, "Secondary subdomain"},
		{"https://localpaper.example/a", model.TierSecondary, "Explicit domain map"},
		{"https://cs.stanford.edu/paper", model.TierPrimary, "Academic host"},
		{"https://someblog.example/post", model.TierTertiary, "Unknown host"},
		{"::not a url", model.TierTertiary, "Unparseable URL"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, got)
			}
		})
	}
}
