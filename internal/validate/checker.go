// Package validate checks that the URLs an analysis reports are reachable.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/util"
	"github.com/ppiankov/latool/internal/worker"
)

const checkMaxRetries = 3

// checkSleepFunc waits between retries (injectable for tests); it stops early
// when ctx is done
var checkSleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LinkFields are the result fields whose values are checked
var LinkFields = []string{"Web Pages", "IIIF Manifest", "All Images"}

// Link is one URL to check and the result field it came from
type Link struct {
	URL   string
	Field string
}

// LinksFromResults collects the distinct URLs of LinkFields, in field order
func LinksFromResults(results *model.Results) []Link {
	var links []Link
	seen := make(map[string]bool)
	for _, field := range LinkFields {
		if !results.Found(field) {
			continue
		}
		values, _ := results.Get(field)
		for _, v := range values {
			if seen[v] || !strings.HasPrefix(v, "http") {
				continue
			}
			seen[v] = true
			links = append(links, Link{URL: v, Field: field})
		}
	}
	return links
}

// Options configures a Checker
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	MaxWorkers int
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	Limiter    *worker.Limiter // nil disables rate limiting
	Logger     *slog.Logger
}

// Checker checks links concurrently
type Checker struct {
	httpClient *http.Client
	userAgent  string
	maxWorkers int
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// NewChecker creates a new link checker
func NewChecker(opts Options) *Checker {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = model.DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Checker{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  opts.UserAgent,
		maxWorkers: opts.MaxWorkers,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// NewCheckerFromConfig builds a checker sharing the fetch settings of cfg
func NewCheckerFromConfig(cfg *model.Config, limiter *worker.Limiter, logger *slog.Logger) *Checker {
	return NewChecker(Options{
		Timeout:    cfg.HTTP.Timeout,
		UserAgent:  cfg.HTTP.UserAgent,
		MaxWorkers: cfg.Concurrency.LinkWorkers,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
		Limiter:    limiter,
		Logger:     logger,
	})
}

// Check checks all links concurrently. The statuses are in input order.
func (c *Checker) Check(ctx context.Context, links []Link) []model.LinkStatus {
	statuses := make([]model.LinkStatus, len(links))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, c.maxWorkers)

	for i, link := range links {
		wg.Add(1)
		go func(idx int, l Link) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				statuses[idx] = model.LinkStatus{URL: l.URL, Field: l.Field, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			statuses[idx] = c.checkWithRetry(ctx, l)
		}(i, link)
	}

	wg.Wait()
	return statuses
}

// checkOne issues a HEAD request, falling back to GET for servers that
// refuse HEAD.
func (c *Checker) checkOne(ctx context.Context, link Link) model.LinkStatus {
	status := c.request(ctx, http.MethodHead, link)
	if status.StatusCode == http.StatusMethodNotAllowed || status.StatusCode == http.StatusNotImplemented {
		status = c.request(ctx, http.MethodGet, link)
	}
	return status
}

func (c *Checker) request(ctx context.Context, method string, link Link) model.LinkStatus {
	status := model.LinkStatus{URL: link.URL, Field: link.Field}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, link.URL); err != nil {
			status.Error = fmt.Sprintf("rate limit: %v", err)
			return status
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, link.URL, nil)
	if err != nil {
		status.Error = fmt.Sprintf("create request: %v", err)
		return status
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode
	status.Accessible = resp.StatusCode >= 200 && resp.StatusCode < 400
	if final := resp.Request.URL.String(); final != link.URL {
		status.RedirectURL = final
	}
	return status
}

// checkWithRetry retries transient failures with exponential backoff
func (c *Checker) checkWithRetry(ctx context.Context, link Link) model.LinkStatus {
	var status model.LinkStatus
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		status = c.checkOne(ctx, link)
		if ctx.Err() != nil || !isRetryableStatus(status) {
			break
		}
		if attempt < checkMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("retrying link check", slog.String("url", link.URL), slog.Int("attempt", attempt+1))
			if checkSleepFunc(ctx, backoff) != nil {
				break
			}
		}
	}
	c.logger.Debug("link checked", slog.String("url", link.URL), slog.Bool("accessible", status.Accessible), slog.Int("status", status.StatusCode))
	return status
}

// isRetryableStatus returns true for statuses that indicate transient failures
func isRetryableStatus(status model.LinkStatus) bool {
	if status.StatusCode >= 500 && status.StatusCode < 600 {
		return true
	}
	if status.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return status.Error != "" && isRetryableNetworkError(status.Error)
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
