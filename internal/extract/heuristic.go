package extract

import (
	"context"
	"strings"
	"unicode"
)

// HeuristicService extracts claims without a language model by keeping
// sentences that carry factual cues (numbers, reporting verbs, dates).
type HeuristicService struct {
	keywords []string
}

// NewHeuristicService creates the offline claim extraction service
func NewHeuristicService() *HeuristicService {
	return &HeuristicService{
		keywords: []string{
			"according to", "said", "says", "reported", "announced", "confirmed",
			"killed", "injured", "died", "collapsed", "arrested", "elected",
			"percent", "million", "billion", "increased", "decreased", "rose", "fell",
			"founded", "established", "introduced", "launched", "signed", "approved",
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"january", "february", "march", "april", "june", "july", "august",
			"september", "october", "november", "december",
		},
	}
}

// ExtractClaims implements ClaimExtractionService
func (h *HeuristicService) ExtractClaims(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var claims []string
	for _, sentence := range SplitSentences(text) {
		if h.isFactual(sentence) {
			claims = append(claims, sentence)
		}
	}
	return claims, nil
}

func (h *HeuristicService) isFactual(sentence string) bool {
	if strings.HasSuffix(sentence, "?") {
		return false
	}
	if strings.IndexFunc(sentence, unicode.IsDigit) >= 0 {
		return true
	}
	lower := " " + strings.ToLower(sentence) + " "
	for _, keyword := range h.keywords {
		if strings.Contains(lower, " "+keyword) {
			return true
		}
	}
	return false
}

// SplitSentences splits plain text into sentences (simple heuristic).
// Fragments shorter than 20 or longer than 500 bytes are dropped.
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= 20 && len(sentence) <= 500 {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead to avoid splitting on decimals and abbreviations
			if i+1 == len(text) || (text[i+1] == ' ' && !isAbbreviation(current.String())) {
				flush()
			}
		}
	}

	if current.Len() > 0 {
		flush()
	}

	return sentences
}

func isAbbreviation(s string) bool {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, " ")
	last := strings.ToLower(s[idx+1:])
	switch last {
	case "mr.", "mrs.", "ms.", "dr.", "st.", "jr.", "sr.", "u.s.", "u.k.", "e.g.", "i.e.", "vs.", "no.":
		return true
	}
	return false
}
