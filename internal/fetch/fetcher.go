package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/latool/internal/cache"
	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/util"
	"github.com/ppiankov/latool/internal/worker"
)

const fetchMaxRetries = 3

// fetchSleepFunc waits between retries (injectable for tests). It returns
// early with the context error when ctx is done.
var fetchSleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrNotJSON is returned by Response.JSON when the body is not a JSON document
var ErrNotJSON = errors.New("response is not JSON")

// Fetcher is the network collaborator: GET url with optional extra headers.
// A non-2xx answer is a Response with OK() false, not an error; errors are
// transport failures, robots refusals and cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string, headers map[string]string) (*Response, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return f(ctx, url, headers)
}

// Response is a fetched HTTP response with its body fully read
type Response struct {
	URL         string
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
	FromCache   bool
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body as a Linked Art document
func (r *Response) JSON() (any, error) {
	v, err := model.DecodeJSON(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.URL, ErrNotJSON)
	}
	return v, nil
}

// LooksLikeHTML reports whether the body is an HTML page
func (r *Response) LooksLikeHTML() bool {
	if strings.Contains(strings.ToLower(r.ContentType), "html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(string(r.Body[:min(len(r.Body), 512)])))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

// Options configures an HTTPFetcher
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	InsecureTLS  bool
	HTTPProxy    string
	HTTPSProxy   string
	NoProxy      string

	Limiter  *worker.Limiter     // nil disables rate limiting
	Robots   *util.RobotsChecker // nil disables the robots.txt gate
	Cache    cache.Cache         // nil disables response caching
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// OptionsFromConfig builds fetcher options from the configuration, wiring
// the limiter, robots gate and cache the configuration asks for.
func OptionsFromConfig(cfg *model.Config, logger *slog.Logger) Options {
	opts := Options{
		Timeout:      cfg.HTTP.Timeout,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		InsecureTLS:  cfg.HTTP.InsecureTLS,
		HTTPProxy:    cfg.HTTP.HTTPProxy,
		HTTPSProxy:   cfg.HTTP.HTTPSProxy,
		NoProxy:      cfg.HTTP.NoProxy,
		CacheTTL:     cfg.Cache.MemoryTTL,
		Logger:       logger,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		opts.Limiter = worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
	}
	if cfg.HTTP.RespectRobots {
		opts.Robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	if cfg.Cache.Enabled {
		opts.Cache = cache.New(cfg.Cache)
	}
	return opts
}

// HTTPFetcher fetches documents over HTTP(S)
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher with the given options
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = model.DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10_000_000
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBodyBytes,
		limiter:   opts.Limiter,
		robots:    opts.Robots,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		logger:    opts.Logger,
	}
}

// Fetch retrieves url, consulting the cache, robots.txt and the rate limiter
// first and retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	key := cache.CacheKey(rawURL + "|" + headers["Accept"])
	if f.cache != nil {
		if body, ok := f.cache.Get(key); ok {
			f.logger.Debug("cache hit", slog.String("url", rawURL))
			return &Response{URL: rawURL, StatusCode: http.StatusOK, Status: "200 OK", Body: body, FromCache: true}, nil
		}
	}

	if f.robots != nil {
		allowed, delay, _ := f.robots.CanFetch(ctx, rawURL)
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, util.ErrDisallowedByRobots)
		}
		if delay > 0 && f.limiter != nil {
			if err := f.limiter.SetCrawlDelay(rawURL, delay); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
	}

	resp, err := f.fetchWithRetry(ctx, rawURL, headers)
	if err != nil {
		return nil, err
	}

	if f.cache != nil && resp.OK() {
		if err := f.cache.Set(key, resp.Body, f.cacheTTL); err != nil {
			f.logger.Warn("cache write failed", slog.String("url", rawURL), slog.String("error", err.Error()))
		}
	}
	return resp, nil
}

// fetchWithRetry retries transport errors and 5xx/429 answers with exponential backoff
func (f *HTTPFetcher) fetchWithRetry(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	var (
		resp *Response
		err  error
	)
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		if f.limiter != nil {
			if werr := f.limiter.Wait(ctx, rawURL); werr != nil {
				return nil, fmt.Errorf("rate limit: %w", werr)
			}
		}

		resp, err = f.fetchOnce(ctx, rawURL, headers)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(resp, err) {
			return resp, err
		}
		if attempt < fetchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			f.logger.Debug("retrying fetch", slog.String("url", rawURL), slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))
			if serr := fetchSleepFunc(ctx, backoff); serr != nil {
				return nil, serr
			}
		}
	}
	return resp, err
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	f.logger.Debug("fetched", slog.String("url", rawURL), slog.Int("status", resp.StatusCode), slog.String("accept", headers["Accept"]))

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// isRetryable returns true for transient failures
func isRetryable(resp *Response, err error) bool {
	if err != nil {
		return isRetryableFetchError(err)
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

// isRetryableFetchError checks error strings for transient network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
