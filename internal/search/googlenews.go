package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/ppiankov/credence/internal/model"
	"golang.org/x/net/html"
)

const defaultGoogleNewsURL = "https://news.google.com/rss/search"

// GoogleNews searches the Google News RSS feed. It needs no API key.
type GoogleNews struct {
	baseURL  string
	language string
	region   string
	parser   *gofeed.Parser
}

// NewGoogleNews creates a Google News RSS provider
func NewGoogleNews(baseURL, language, region string, client *http.Client) *GoogleNews {
	if baseURL == "" {
		baseURL = defaultGoogleNewsURL
	}
	if language == "" {
		language = "en"
	}
	if region == "" {
		region = "US"
	}

	parser := gofeed.NewParser()
	parser.Client = client

	return &GoogleNews{
		baseURL:  baseURL,
		language: language,
		region:   strings.ToUpper(region),
		parser:   parser,
	}
}

// Name returns the provider name
func (g *GoogleNews) Name() string {
	return "googlenews"
}

// Search fetches the RSS search feed and maps its items to hits
func (g *GoogleNews) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", g.language+"-"+g.region)
	params.Set("gl", g.region)
	params.Set("ceid", g.region+":"+g.language)

	feed, err := g.parser.ParseURLWithContext(g.baseURL+"?"+params.Encode(), ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &model.CollaboratorError{Service: "googlenews", StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, fmt.Errorf("googlenews feed failed: %w", err)
	}

	limit = clampLimit(limit)
	hits := make([]model.SearchHit, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(hits) >= limit {
			break
		}
		if item.Link == "" {
			continue
		}

		title, source := splitTitle(item.Title)
		hits = append(hits, model.SearchHit{
			Title:       title,
			URL:         item.Link,
			SourceName:  source,
			PublishedAt: item.PublishedParsed,
			Snippet:     plainText(item.Description),
		})
	}

	return hits, nil
}

// splitTitle separates "Headline - Publisher" into its parts
func splitTitle(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}

// plainText drops markup from an RSS description
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(html.UnescapeString(fragment))
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
}
