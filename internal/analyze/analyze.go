// Package analyze adds article-level diagnostics to a validation result:
// a bias assessment and a short summary. Neither affects the credibility
// score.
package analyze

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/credence/internal/extract"
	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
)

// DefaultSummaryLength is the summary cap in bytes
const DefaultSummaryLength = 250

// BiasAssessor rates how an article frames its subject
type BiasAssessor interface {
	AssessBias(ctx context.Context, title, text string) (*model.BiasAssessment, error)
}

// Summarizer writes a summary of at most maxLen bytes
type Summarizer interface {
	Summarize(ctx context.Context, title, text string, maxLen int) (string, error)
}

// Analyst runs the article-level analyses. A nil bias assessor disables
// bias analysis; summaries always have the lead-sentence fallback.
type Analyst struct {
	bias       BiasAssessor
	summarizer Summarizer
	summaryLen int
	log        logrus.FieldLogger
}

// NewAnalyst creates an analyst. A nil summarizer uses LeadSummarizer.
func NewAnalyst(bias BiasAssessor, summarizer Summarizer, log logrus.FieldLogger) *Analyst {
	if summarizer == nil {
		summarizer = LeadSummarizer{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyst{
		bias:       bias,
		summarizer: summarizer,
		summaryLen: DefaultSummaryLength,
		log:        log,
	}
}

// AssessBias sets result.Bias and appends a bias signal. Failures are
// logged and leave the result without a bias assessment.
func (a *Analyst) AssessBias(ctx context.Context, article model.Article, result *model.ValidationResult) {
	log := a.log.WithField("validation_id", result.ID)
	if a.bias == nil {
		log.Debug("Bias analysis skipped, no language model configured")
		result.Signals = append(result.Signals, model.Signal{
			Type:        model.SignalBias,
			Severity:    model.SeverityInfo,
			Description: "Bias analysis needs a language model provider",
		})
		return
	}

	bias, err := a.bias.AssessBias(ctx, article.Title, article.RawText)
	if err != nil {
		log.WithError(err).Warn("Bias analysis failed")
		return
	}
	result.Bias = bias
	result.Signals = append(result.Signals, BiasSignal(bias))
}

// Summarize sets result.Summary, falling back to the article's lead
// sentences when the summarizer fails.
func (a *Analyst) Summarize(ctx context.Context, article model.Article, result *model.ValidationResult) {
	summary, err := a.summarizer.Summarize(ctx, article.Title, article.RawText, a.summaryLen)
	if err != nil {
		a.log.WithError(err).WithField("validation_id", result.ID).Warn("Summary generation failed, using lead sentences")
		summary, _ = LeadSummarizer{}.Summarize(ctx, article.Title, article.RawText, a.summaryLen)
	}
	result.Summary = summary
}

// BiasSignal reports the assessment. A strong slant the model is fairly
// sure about is a warning.
func BiasSignal(bias *model.BiasAssessment) model.Signal {
	severity := model.SeverityInfo
	if math.Abs(bias.Score) >= 0.5 && bias.Confidence >= 0.5 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalBias,
		Severity:    severity,
		Description: fmt.Sprintf("Framing leans %s (score %.2f, confidence %.2f)", bias.Direction, bias.Score, bias.Confidence),
		Data: map[string]interface{}{
			"bias_score":     bias.Score,
			"bias_direction": bias.Direction,
			"confidence":     bias.Confidence,
		},
	}
}

// LeadSummarizer summarizes with the article's opening sentences
type LeadSummarizer struct{}

// Summarize implements Summarizer. The first sentence is cut on a word
// boundary when it alone exceeds maxLen.
func (LeadSummarizer) Summarize(ctx context.Context, title, text string, maxLen int) (string, error) {
	var b strings.Builder
	for _, sentence := range extract.SplitSentences(text) {
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if b.Len()+sep+len(sentence) > maxLen {
			if b.Len() == 0 {
				return cutWords(sentence, maxLen), nil
			}
			break
		}
		if sep > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
	}
	if b.Len() == 0 {
		return cutWords(strings.TrimSpace(title), maxLen), nil
	}
	return b.String(), nil
}

func cutWords(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	var b strings.Builder
	for _, word := range strings.Fields(s) {
		if b.Len()+len(word)+4 > maxLen {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	return b.String() + "..."
}
