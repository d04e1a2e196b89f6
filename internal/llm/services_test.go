package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/credence/internal/model"
)

func TestParseClaimList(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"plain array", `["A happened.", "B happened."]`, []string{"A happened.", "B happened."}},
		{"code fence", "```json\n[\"A happened.\"]\n```", []string{"A happened."}},
		{"objects", `[{"claim": "A happened."}, {"text": "B happened."}]`, []string{"A happened.", "B happened."}},
		{"wrapped", `{"claims": [{"claim": "A happened.", "verdict": "true"}]}`, []string{"A happened."}},
		{"empty", `[]`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseClaimList(tt.raw)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(claims) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, claims)
			}
			for i := range claims {
				if claims[i] != tt.expected[i] {
					t.Errorf("Expected %q, got %q", tt.expected[i], claims[i])
				}
			}
		})
	}
}

func TestParseClaimList_Malformed(t *testing.T) {
	for _, raw := range []string{"I found three claims.", `{"summary": "none"}`, `[1, 2]`} {
		if _, err := ParseClaimList(raw); !errors.Is(err, model.ErrMalformedResponse) {
			t.Errorf("Expected ErrMalformedResponse for %q, got %v", raw, err)
		}
	}
}

func TestParseStanceJudgment(t *testing.T) {
	judgment, err := ParseStanceJudgment(`{"stance": "Contradicts", "confidence": 1.7}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if judgment.Stance != model.StanceContradicts {
		t.Errorf("Expected contradicts, got %s", judgment.Stance)
	}
	if judgment.Confidence == nil || *judgment.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", judgment.Confidence)
	}

	judgment, err = ParseStanceJudgment(`{"stance": "maybe"}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if judgment.Stance != model.StanceUnrelated || judgment.Confidence != nil {
		t.Errorf("Expected unrelated without confidence, got %+v", judgment)
	}

	if _, err := ParseStanceJudgment("supports"); !errors.Is(err, model.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

type stubProvider struct {
	text   string
	err    error
	prompt string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.prompt = req.Prompt
	if p.err != nil {
		return nil, p.err
	}
	return &CompletionResponse{Text: p.text}, nil
}

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func TestParseBiasAssessment(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		score      float64
		direction  string
		confidence float64
	}{
		{"neutral", `{"bias_score": 0, "bias_direction": "neutral", "confidence": 0.9}`, 0, "neutral", 0.9},
		{"clamped", "```json\n{\"bias_score\": -3, \"bias_direction\": \"Left\", \"confidence\": 2}\n```", -1, "left", 1},
		{"unknown direction", `{"bias_score": 0.4, "bias_direction": "corporate", "confidence": 0.5}`, 0.4, "other", 0.5},
		{"missing direction", `{"bias_score": 0.1}`, 0.1, "neutral", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bias, err := ParseBiasAssessment(tt.raw)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if bias.Score != tt.score || bias.Direction != tt.direction || bias.Confidence != tt.confidence {
				t.Errorf("Expected %.1f/%s/%.1f, got %+v", tt.score, tt.direction, tt.confidence, bias)
			}
		})
	}

	for _, raw := range []string{"slightly left", `{"bias_direction": "left"}`} {
		if _, err := ParseBiasAssessment(raw); !errors.Is(err, model.ErrMalformedResponse) {
			t.Errorf("Expected ErrMalformedResponse for %q, got %v", raw, err)
		}
	}
}

func TestBiasService_AssessBias(t *testing.T) {
	provider := &stubProvider{text: `{"bias_score": 0.6, "bias_direction": "right", "reasoning": "One-sided quotes.", "confidence": 0.7}`}

	bias, err := NewBiasService(provider).AssessBias(context.Background(), "Council vote", "The council voted.")
	if err != nil {
		t.Fatalf("AssessBias failed: %v", err)
	}
	if bias.Direction != "right" || bias.Reasoning != "One-sided quotes." {
		t.Errorf("Unexpected assessment: %+v", bias)
	}
	if !strings.Contains(provider.prompt, "Council vote") {
		t.Error("Expected title in prompt")
	}

	provider.err = errors.New("quota exceeded")
	if _, err := NewBiasService(provider).AssessBias(context.Background(), "", "text"); err == nil {
		t.Error("Expected provider error")
	}
}

func TestSummaryService_Summarize(t *testing.T) {
	provider := &stubProvider{text: "  The council approved the budget after a long debate.  "}

	summary, err := NewSummaryService(provider).Summarize(context.Background(), "Budget", "text", 20)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary != "The council approved" {
		t.Errorf("Expected summary cut to 20 bytes, got %q", summary)
	}

	provider.text = "   "
	if _, err := NewSummaryService(provider).Summarize(context.Background(), "", "text", 100); !errors.Is(err, model.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse for empty summary, got %v", err)
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := "café déjà vu"
	for maxLen := 0; maxLen <= len(s); maxLen++ {
		got := truncate(s, maxLen)
		if !utf8.ValidString(got) {
			t.Errorf("Expected valid UTF-8 at maxLen %d, got %q", maxLen, got)
		}
		if len(got) > maxLen {
			t.Errorf("Expected at most %d bytes, got %d", maxLen, len(got))
		}
	}
	if got := truncate("café", 4); got != "caf" {
		t.Errorf("Expected %q, got %q", "caf", got)
	}
}
