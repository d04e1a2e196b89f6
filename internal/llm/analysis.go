package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

const biasPrompt = `Analyze the following news article for bias. Consider the language used, the framing of issues, which sources are quoted and what is left out.

Title: %s

Article:
%s

Return only JSON:
{"bias_score": -1.0 to 1.0 (negative = against its subject, positive = in favour, 0 = neutral),
 "bias_direction": "left" | "right" | "neutral" | "other",
 "reasoning": "one or two sentences",
 "confidence": 0.0-1.0}`

const summaryPrompt = `Write a concise, factual summary of the following news article in at most %d characters.
Keep to the main points. Do not add commentary.

Title: %s

Article:
%s

Summary:`

var biasDirections = map[string]bool{"left": true, "right": true, "neutral": true, "other": true}

// BiasService rates the slant of an article with an LLM
type BiasService struct {
	provider Provider
}

// NewBiasService creates a bias analysis service backed by provider
func NewBiasService(provider Provider) *BiasService {
	return &BiasService{provider: provider}
}

// AssessBias asks the model how the article frames its subject
func (s *BiasService) AssessBias(ctx context.Context, title, text string) (*model.BiasAssessment, error) {
	resp, err := s.provider.Complete(ctx, CompletionRequest{
		Prompt:      fmt.Sprintf(biasPrompt, title, truncate(text, maxPromptChars)),
		MaxTokens:   400,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	return ParseBiasAssessment(resp.Text)
}

// ParseBiasAssessment decodes the model's bias verdict. The score is clamped
// to [-1,1], confidence to [0,1], and unknown directions become "other".
func ParseBiasAssessment(raw string) (*model.BiasAssessment, error) {
	var parsed struct {
		Score      *float64 `json:"bias_score"`
		Direction  string   `json:"bias_direction"`
		Reasoning  string   `json:"reasoning"`
		Confidence float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	if parsed.Score == nil {
		return nil, fmt.Errorf("%w: missing bias_score", model.ErrMalformedResponse)
	}

	direction := strings.ToLower(strings.TrimSpace(parsed.Direction))
	switch {
	case direction == "":
		direction = "neutral"
	case !biasDirections[direction]:
		direction = "other"
	}

	return &model.BiasAssessment{
		Score:      min(max(*parsed.Score, -1), 1),
		Direction:  direction,
		Reasoning:  strings.TrimSpace(parsed.Reasoning),
		Confidence: min(max(parsed.Confidence, 0), 1),
	}, nil
}

// SummaryService writes short article summaries with an LLM
type SummaryService struct {
	provider Provider
}

// NewSummaryService creates a summary service backed by provider
func NewSummaryService(provider Provider) *SummaryService {
	return &SummaryService{provider: provider}
}

// Summarize returns a summary of at most maxLen bytes
func (s *SummaryService) Summarize(ctx context.Context, title, text string, maxLen int) (string, error) {
	resp, err := s.provider.Complete(ctx, CompletionRequest{
		Prompt:      fmt.Sprintf(summaryPrompt, maxLen, title, truncate(text, maxPromptChars)),
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(stripCodeFence(resp.Text))
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", model.ErrMalformedResponse)
	}
	return truncate(summary, maxLen), nil
}
