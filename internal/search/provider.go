package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

// Provider is a news search backend
type Provider interface {
	// Name returns the provider name
	Name() string

	// Search returns up to limit candidate articles for the query
	Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error)
}

// NewProvider creates a search provider from config
func NewProvider(config model.SearchConfig, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	switch strings.ToLower(config.Provider) {
	case "newsapi":
		if config.APIKey == "" {
			return nil, &model.InputError{Field: "search.api_key", Message: "newsapi requires an API key (NEWS_API_KEY)"}
		}
		return NewNewsAPI(config.APIKey, config.BaseURL, config.Language, client), nil
	case "", "googlenews", "google":
		return NewGoogleNews(config.BaseURL, config.Language, config.Region, client), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", config.Provider)
	}
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > 100:
		return 100
	default:
		return limit
	}
}
