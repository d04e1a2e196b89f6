package extract

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/ppiankov/credence/internal/model"
)

// ClaimExtractionService is the language-model capability that splits
// article text into candidate claim statements.
type ClaimExtractionService interface {
	ExtractClaims(ctx context.Context, text string) ([]string, error)
}

// ClaimExtractor turns article text into an ordered, deduplicated claim list
type ClaimExtractor struct {
	service   ClaimExtractionService
	maxClaims int
}

// NewClaimExtractor creates a claim extractor. maxClaims <= 0 means unlimited.
func NewClaimExtractor(service ClaimExtractionService, maxClaims int) *ClaimExtractor {
	return &ClaimExtractor{
		service:   service,
		maxClaims: maxClaims,
	}
}

// Extract returns the claims found in text. An empty slice is a valid
// result; an error is always an *model.ExtractionError.
func (e *ClaimExtractor) Extract(ctx context.Context, text string) ([]model.Claim, error) {
	if e.service == nil {
		return nil, &model.ExtractionError{Err: errors.New("no claim extraction service configured")}
	}

	raw, err := e.service.ExtractClaims(ctx, text)
	if err != nil {
		return nil, &model.ExtractionError{Err: err}
	}

	claims := make([]model.Claim, 0, len(raw))
	for _, claimText := range dedupeClaims(raw) {
		if e.maxClaims > 0 && len(claims) >= e.maxClaims {
			break
		}
		order := len(claims)
		claims = append(claims, model.Claim{
			ID:    model.ClaimID(order),
			Text:  claimText,
			Order: order,
		})
	}

	return claims, nil
}

// dedupeClaims trims claims, drops blank ones and removes duplicates that
// differ only in case, whitespace or punctuation. First occurrence wins.
func dedupeClaims(raw []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, claim := range raw {
		text := strings.Join(strings.Fields(claim), " ")
		if text == "" {
			continue
		}
		key := claimKey(text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, text)
	}

	return unique
}

func claimKey(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
