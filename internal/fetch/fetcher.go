package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
	"github.com/sirupsen/logrus"
)

// minArticleChars is the shortest readability output accepted before
// falling back to the page's visible text
const minArticleChars = 200

// Page is the readable content of an article URL
type Page struct {
	URL      string
	FinalURL string
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// Fetcher downloads article pages and extracts their main text
type Fetcher struct {
	httpClient *http.Client
	robots     *util.RobotsChecker
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a fetcher from HTTP config
func NewFetcher(config model.HTTPConfig) *Fetcher {
	client := &http.Client{
		Timeout:   config.Timeout,
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  config.UserAgent,
		maxBytes:   config.MaxBodyBytes,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}
	if config.RespectRobots {
		f.robots = util.NewRobotsChecker(config.UserAgent, 10*time.Second, client)
	}
	return f
}

// Fetch downloads rawURL and returns its article text. Problems with the
// URL or the page are reported as *model.InputError on article_url.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, inputError("must be an absolute http(s) URL")
	}

	if f.robots != nil {
		allowed, _, err := f.robots.CanFetch(ctx, parsed.String())
		if err == nil && !allowed {
			return nil, inputError("fetching is disallowed by robots.txt")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, inputError(err.Error())
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, inputError(fmt.Sprintf("fetch failed: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, inputError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, inputError(fmt.Sprintf("read body: %v", err))
	}

	finalURL := resp.Request.URL
	page := &Page{URL: rawURL, FinalURL: finalURL.String()}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/plain") {
		page.Text = normalizeSpace(string(body))
	} else {
		f.extract(page, body, finalURL)
	}

	if page.Text == "" {
		return nil, inputError("no readable text found at URL")
	}
	return page, nil
}

func (f *Fetcher) extract(page *Page, body []byte, pageURL *url.URL) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Byline = strings.TrimSpace(article.Byline)
		page.SiteName = strings.TrimSpace(article.SiteName)
		page.Text = normalizeSpace(article.TextContent)
	} else {
		logrus.WithError(err).WithField("url", pageURL.String()).Debug("readability failed, using visible text")
	}

	if len(page.Text) >= minArticleChars {
		return
	}

	title, text := VisibleText(body)
	if len(text) > len(page.Text) {
		page.Text = text
	}
	if page.Title == "" {
		page.Title = title
	}
}

func inputError(message string) error {
	return &model.InputError{Field: "article_url", Message: message}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
