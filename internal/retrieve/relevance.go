package retrieve

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true, "an": true, "and": true,
	"any": true, "are": true, "as": true, "at": true, "be": true, "been": true, "before": true,
	"but": true, "by": true, "can": true, "could": true, "did": true, "do": true, "does": true,
	"for": true, "from": true, "had": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "how": true, "if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "last": true, "more": true, "most": true, "new": true, "no": true, "not": true,
	"of": true, "on": true, "one": true, "or": true, "other": true, "our": true, "out": true,
	"over": true, "said": true, "says": true, "she": true, "so": true, "some": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "to": true, "under": true,
	"up": true, "was": true, "we": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "who": true, "will": true, "with": true, "would": true,
	"year": true, "years": true, "you": true,
}

// SalientTerms returns the distinct content words of text in order of first
// appearance: lower-cased, possessives stripped, stopwords and one-letter
// tokens removed. Numbers are kept.
func SalientTerms(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	seen := make(map[string]bool, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSuffix(strings.Trim(token, "'"), "'s")
		if len([]rune(token)) < 2 || stopwords[token] || seen[token] {
			continue
		}
		seen[token] = true
		terms = append(terms, token)
	}
	return terms
}

// BuildQuery joins the first maxTerms salient terms of the claim
func BuildQuery(claimText string, maxTerms int) string {
	terms := SalientTerms(claimText)
	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	if len(terms) == 0 {
		return strings.TrimSpace(claimText)
	}
	return strings.Join(terms, " ")
}

// Relevance is the share of the claim's salient terms that also appear in
// the candidate text. For a fixed claim it never decreases as the candidate
// shares more terms, and it is a pure function of its inputs.
func Relevance(claimTerms []string, candidateText string) float64 {
	if len(claimTerms) == 0 {
		return 0
	}

	candidate := make(map[string]bool)
	for _, term := range SalientTerms(candidateText) {
		candidate[term] = true
	}

	shared := 0
	for _, term := range claimTerms {
		if candidate[term] {
			shared++
		}
	}
	return float64(shared) / float64(len(claimTerms))
}
