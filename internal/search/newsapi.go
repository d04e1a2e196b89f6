package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

const defaultNewsAPIURL = "https://newsapi.org/v2"

// NewsAPI searches newsapi.org's everything endpoint
type NewsAPI struct {
	apiKey   string
	baseURL  string
	language string
	client   *http.Client
}

// NewNewsAPI creates a NewsAPI provider
func NewNewsAPI(apiKey, baseURL, language string, client *http.Client) *NewsAPI {
	if baseURL == "" {
		baseURL = defaultNewsAPIURL
	}
	if language == "" {
		language = "en"
	}
	return &NewsAPI{
		apiKey:   apiKey,
		baseURL:  baseURL,
		language: language,
		client:   client,
	}
}

// Name returns the provider name
func (n *NewsAPI) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search queries /everything sorted by relevancy
func (n *NewsAPI) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", n.language)
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", strconv.Itoa(clampLimit(limit)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed newsAPIResponse
	if resp.StatusCode != http.StatusOK {
		message := string(body)
		if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
			message = parsed.Message
		}
		return nil, &model.CollaboratorError{Service: "newsapi", StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: newsapi: %v", model.ErrMalformedResponse, err)
	}
	if parsed.Status != "" && parsed.Status != "ok" {
		return nil, &model.CollaboratorError{Service: "newsapi", StatusCode: resp.StatusCode, Message: parsed.Message}
	}

	hits := make([]model.SearchHit, 0, len(parsed.Articles))
	for _, article := range parsed.Articles {
		if article.URL == "" || article.Title == "[Removed]" {
			continue
		}
		hit := model.SearchHit{
			Title:      article.Title,
			URL:        article.URL,
			SourceName: article.Source.Name,
			Snippet:    article.Description,
		}
		if published, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			hit.PublishedAt = &published
		}
		hits = append(hits, hit)
	}

	return hits, nil
}
