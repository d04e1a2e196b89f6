package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/credence/internal/model"
)

const stancePrompt = `Compare a claim with a passage from another news source.

Claim:
%s

Passage:
%s

Does the passage support the claim, contradict it, or is it unrelated (including when it does not address the claim directly)?
Return only JSON: {"stance": "supports" | "contradicts" | "unrelated", "confidence": 0.0-1.0}`

// StanceService judges whether a passage supports or contradicts a claim
type StanceService struct {
	provider Provider
}

// NewStanceService creates a stance comparison service backed by provider
func NewStanceService(provider Provider) *StanceService {
	return &StanceService{provider: provider}
}

// CompareStance returns the model's verdict on evidenceText versus claimText
func (s *StanceService) CompareStance(ctx context.Context, claimText, evidenceText string) (model.StanceJudgment, error) {
	resp, err := s.provider.Complete(ctx, CompletionRequest{
		Prompt:      fmt.Sprintf(stancePrompt, claimText, truncate(evidenceText, 4000)),
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		return model.StanceJudgment{}, err
	}
	return ParseStanceJudgment(resp.Text)
}

// ParseStanceJudgment decodes {"stance": ..., "confidence": ...}. Unknown
// stance labels become unrelated and confidence is clamped to [0,1].
func ParseStanceJudgment(raw string) (model.StanceJudgment, error) {
	var parsed struct {
		Stance     string   `json:"stance"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return model.StanceJudgment{}, fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}

	judgment := model.StanceJudgment{Stance: model.ParseStance(parsed.Stance)}
	if parsed.Confidence != nil {
		confidence := min(max(*parsed.Confidence, 0), 1)
		judgment.Confidence = &confidence
	}
	return judgment, nil
}
