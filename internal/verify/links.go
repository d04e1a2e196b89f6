// Package verify checks that the sources behind a validation still resolve.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
	"github.com/ppiankov/credence/internal/worker"
)

const (
	linkAttempts = 3
	linkBackoff  = time.Second
)

// LinkChecker checks evidence URLs concurrently with HEAD requests
type LinkChecker struct {
	httpClient *http.Client
	userAgent  string
	maxWorkers int
	backoff    time.Duration
}

// NewLinkChecker creates a link checker
func NewLinkChecker(config model.HTTPConfig, maxWorkers int) *LinkChecker {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	timeout := config.Timeout
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}

	return &LinkChecker{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  config.UserAgent,
		maxWorkers: maxWorkers,
		backoff:    linkBackoff,
	}
}

// Check annotates every evidence item with its link status. Items are
// updated in place; duplicate URLs are requested once.
func (c *LinkChecker) Check(ctx context.Context, evidence []model.Evidence) {
	statuses := make(map[string]*model.LinkStatus)
	for _, ev := range evidence {
		statuses[ev.SourceURL] = nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.maxWorkers)

	for url := range statuses {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case <-ctx.Done():
				mu.Lock()
				statuses[url] = &model.LinkStatus{Error: "context cancelled"}
				mu.Unlock()
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			status := c.checkWithRetry(ctx, url)
			mu.Lock()
			statuses[url] = status
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i := range evidence {
		evidence[i].Link = statuses[evidence[i].SourceURL]
	}
}

// checkWithRetry retries 429, 5xx and transient network failures
func (c *LinkChecker) checkWithRetry(ctx context.Context, url string) *model.LinkStatus {
	var last *model.LinkStatus
	_, _ = worker.Retry(ctx, linkAttempts, c.backoff, func(ctx context.Context) (struct{}, error) {
		status, err := c.checkOne(ctx, url)
		last = status
		return struct{}{}, err
	})
	return last
}

// checkOne issues one HEAD request. The error is non-nil only for
// failures worth retrying.
func (c *LinkChecker) checkOne(ctx context.Context, url string) (*model.LinkStatus, error) {
	status := &model.LinkStatus{}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		status.Error = fmt.Sprintf("create request: %v", err)
		status.Dead = true
		return status, nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		status.Dead = true
		return status, err
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		status.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		status.Dead = true
	}

	if final := resp.Request.URL.String(); final != url {
		status.RedirectURL = final
	}

	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := http.ParseTime(lastModified); err == nil {
			status.LastModified = &t
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return status, &model.CollaboratorError{Service: "source", StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return status, nil
}

// LivenessSignal summarizes link statuses. It is diagnostic and never
// affects the credibility score.
func LivenessSignal(evidence []model.Evidence) model.Signal {
	checked, accessible, dead := 0, 0, 0
	for _, ev := range evidence {
		if ev.Link == nil {
			continue
		}
		checked++
		if ev.Link.Accessible {
			accessible++
		}
		if ev.Link.Dead {
			dead++
		}
	}

	severity := model.SeverityInfo
	if checked > 0 && dead*2 >= checked {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalSourceLiveness,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d source links resolve, %d are dead", accessible, checked, dead),
		Data: map[string]interface{}{
			"checked":    checked,
			"accessible": accessible,
			"dead":       dead,
		},
	}
}
