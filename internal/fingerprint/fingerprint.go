// Package fingerprint derives the content key used to coalesce and cache validations.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/ppiankov/credence/internal/model"
)

// Normalize lower-cases text and collapses every whitespace run to a single space
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Compute returns the hex SHA-256 of the normalized text
func Compute(text string) string {
	hash := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(hash[:])
}

// KeyPrefix namespaces cache keys so shared stores can hold other data
const KeyPrefix = "credence:v1:"

// CacheKey namespaces a fingerprint for shared caches
func CacheKey(fp string) string {
	return KeyPrefix + fp
}

// CheckInput fails when neither a URL nor content was supplied
func CheckInput(articleURL, content string) error {
	if strings.TrimSpace(articleURL) == "" && strings.TrimSpace(content) == "" {
		return &model.InputError{Message: "either article_url or article_content is required"}
	}
	return nil
}

// NewArticle builds an immutable Article from text that is already available
// (pasted content, or the body fetched for sourceURL).
func NewArticle(sourceURL, title, rawText string) (model.Article, error) {
	if strings.TrimSpace(rawText) == "" {
		field := "article_content"
		if sourceURL != "" {
			field = "article_url"
		}
		return model.Article{}, &model.InputError{Field: field, Message: "no usable article text"}
	}
	return model.Article{
		SourceURL:   strings.TrimSpace(sourceURL),
		Title:       title,
		RawText:     rawText,
		Fingerprint: Compute(rawText),
	}, nil
}
