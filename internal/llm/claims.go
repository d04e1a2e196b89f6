package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/credence/internal/model"
)

// maxPromptChars keeps article text within a modest context window
const maxPromptChars = 12000

const claimPrompt = `You are an expert fact-checker. Identify the distinct, checkable factual claims in the article below.
A factual claim states something that could be confirmed or refuted by another news source: events, numbers, dates, quotes, attributions.
Skip opinions, predictions and rhetorical questions. Keep each claim self-contained and in the article's own words where possible.

Article:
%s

Return only a JSON array of strings, one per claim, in the order they appear. Return [] if there are none.`

// ClaimService extracts candidate claims with an LLM
type ClaimService struct {
	provider Provider
}

// NewClaimService creates a claim extraction service backed by provider
func NewClaimService(provider Provider) *ClaimService {
	return &ClaimService{provider: provider}
}

// ExtractClaims asks the model for the article's factual claims. A response
// that is not a JSON list of claims yields model.ErrMalformedResponse.
func (s *ClaimService) ExtractClaims(ctx context.Context, text string) ([]string, error) {
	resp, err := s.provider.Complete(ctx, CompletionRequest{
		Prompt:      fmt.Sprintf(claimPrompt, truncate(text, maxPromptChars)),
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	return ParseClaimList(resp.Text)
}

// ParseClaimList accepts a JSON array of strings, an array of objects with
// a "claim" or "text" field, or an object wrapping either under "claims".
// Markdown code fences around the JSON are ignored.
func ParseClaimList(raw string) ([]string, error) {
	payload := stripCodeFence(raw)

	var wrapped struct {
		Claims json.RawMessage `json:"claims"`
	}
	if strings.HasPrefix(payload, "{") {
		if err := json.Unmarshal([]byte(payload), &wrapped); err != nil || len(wrapped.Claims) == 0 {
			return nil, fmt.Errorf("%w: expected a list of claims", model.ErrMalformedResponse)
		}
		payload = string(wrapped.Claims)
	}

	var plain []string
	if err := json.Unmarshal([]byte(payload), &plain); err == nil {
		return plain, nil
	}

	var objects []struct {
		Claim string `json:"claim"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(payload), &objects); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}

	claims := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Claim != "" {
			claims = append(claims, obj.Claim)
		} else {
			claims = append(claims, obj.Text)
		}
	}
	return claims, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// truncate cuts s to at most maxLen bytes without splitting a rune
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
