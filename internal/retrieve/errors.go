package retrieve

import (
	"errors"
	"net/url"
	"strings"
)

var errNoSearchService = errors.New("no search service configured")

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
