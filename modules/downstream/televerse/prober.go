package televerse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Prober reports whether the downstream AI service is up, caching one probe
// result for a TTL so a burst of /start commands costs at most one probe.
// Failures are cached the same as successes: a downed service must not be
// re-probed on every update.
type Prober struct {
	url     string
	timeout time.Duration
	ttl     time.Duration
	http    *http.Client
	logger  *slog.Logger

	mu        sync.Mutex
	ok        bool
	expiresAt time.Time

	// now is injectable for testing.
	now func() time.Time
}

// NewProber creates a Prober. An empty url yields a prober that always
// reports unavailable without touching the network.
func NewProber(url string, timeout, ttl time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		url:     url,
		timeout: timeout,
		ttl:     ttl,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

// Configured reports whether a health URL is set.
func (p *Prober) Configured() bool { return p.url != "" }

// IsAvailable returns the cached availability, probing when the cache has
// expired. It never returns an error: any probe failure reads as unavailable.
func (p *Prober) IsAvailable(ctx context.Context) bool {
	if p.url == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.expiresAt.After(now) {
		return p.ok
	}

	p.ok = p.probe(ctx)
	p.expiresAt = now.Add(p.ttl)
	return p.ok
}

func (p *Prober) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Warn("ai_health_probe_failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
