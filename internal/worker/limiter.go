package worker

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound requests per host. One analysis touches a few
// hosts with very different loads: the publishing collection, the
// vocabulary server for every term and the IIIF servers for manifests. Each
// host gets its own token bucket so a slow vocabulary host never holds back
// manifest fetches.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host with the
// given burst. A non-positive rate means unlimited; a non-positive burst
// means 5.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

// Wait blocks until the host of rawURL may be requested again
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return fmt.Errorf("rate limit %q: %w", rawURL, err)
	}
	return l.bucket(host).Wait(ctx)
}

// Allow reports whether the host of rawURL may be requested now, consuming
// a token if so
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.bucket(host).Allow()
}

// SetCrawlDelay makes delay the minimum spacing between requests to the host
// of rawURL, as asked by its robots.txt. A delay slower than the configured
// rate replaces it; a faster one is ignored.
func (l *Limiter) SetCrawlDelay(rawURL string, delay time.Duration) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return fmt.Errorf("crawl delay %q: %w", rawURL, err)
	}
	if delay <= 0 {
		return nil
	}

	every := rate.Every(delay)
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[host]; ok && every >= b.Limit() {
		return nil
	}
	if every >= l.limit {
		return nil
	}
	l.buckets[host] = rate.NewLimiter(every, 1)
	return nil
}

// Hosts lists the hosts seen so far, sorted
func (l *Limiter) Hosts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	hosts := make([]string, 0, len(l.buckets))
	for h := range l.buckets {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func (l *Limiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[host]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[host] = b
	}
	return b
}

// hostOf keys buckets by lower-cased host name; the port and scheme do not
// split a host's budget
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("no host in URL")
	}
	return host, nil
}
