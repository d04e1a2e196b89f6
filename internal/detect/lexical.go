package detect

import (
	"context"
	"strings"
	"unicode"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/retrieve"
)

// Cues that a passage disputes what it reports
var negationCues = map[string]bool{
	"not": true, "no": true, "never": true, "false": true, "denied": true, "denies": true,
	"deny": true, "debunked": true, "hoax": true, "fake": true, "refuted": true,
	"refutes": true, "untrue": true, "misleading": true, "retracted": true, "isn't": true,
	"wasn't": true, "didn't": true, "doesn't": true, "won't": true,
}

// LexicalStance is an offline comparator based on term overlap. It is used
// when no language model is configured.
type LexicalStance struct {
	SupportThreshold float64 // Overlap needed to count as support
	RelatedThreshold float64 // Overlap needed before a negation counts as contradiction
}

// NewLexicalStance returns a comparator with default thresholds
func NewLexicalStance() *LexicalStance {
	return &LexicalStance{SupportThreshold: 0.5, RelatedThreshold: 0.3}
}

// CompareStance labels the passage by how many of the claim's salient terms
// it repeats and whether it negates them when the claim does not.
func (l *LexicalStance) CompareStance(ctx context.Context, claimText, evidenceText string) (model.StanceJudgment, error) {
	if err := ctx.Err(); err != nil {
		return model.StanceJudgment{}, err
	}

	overlap := retrieve.Relevance(retrieve.SalientTerms(claimText), evidenceText)
	confidence := overlap

	switch {
	case overlap >= l.RelatedThreshold && hasNegation(evidenceText) != hasNegation(claimText):
		return model.StanceJudgment{Stance: model.StanceContradicts, Confidence: &confidence}, nil
	case overlap >= l.SupportThreshold:
		return model.StanceJudgment{Stance: model.StanceSupports, Confidence: &confidence}, nil
	default:
		return model.StanceJudgment{Stance: model.StanceUnrelated, Confidence: &confidence}, nil
	}
}

func hasNegation(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, word := range words {
		if negationCues[word] {
			return true
		}
	}
	return false
}
