package televerse

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHealthTimeout = 1200 * time.Millisecond
	minHealthTimeout     = 200 * time.Millisecond
	maxHealthTimeout     = 1500 * time.Millisecond
	defaultHealthTTL     = 30 * time.Second

	defaultForwardTimeout = 10 * time.Second
)

// Config holds downstream processing service configuration. Like the channel
// config, every field falls back to the environment.
type Config struct {
	// BaseURL is the downstream service root. Env fallback:
	// TELEVERSE_BASE_URL. Empty disables forwarding.
	BaseURL string `yaml:"base_url"`

	// InternalKey authenticates forwards via the x-internal-key header.
	// Env fallback: TELEVERSE_INTERNAL_KEY. Forwarding requires both the
	// base URL and the key.
	InternalKey string `yaml:"internal_key"`

	// HealthURL is the AI health probe target. Env fallback:
	// AI_HEALTH_URL. Empty means availability is always reported false.
	HealthURL string `yaml:"health_url"`

	// HealthTimeout is the probe deadline, clamped to [200ms, 1500ms].
	// Env fallback: AI_HEALTH_TIMEOUT_MS.
	HealthTimeout time.Duration `yaml:"health_timeout"`

	// HealthCacheTTL is how long one probe result (success or failure) is
	// reused. Env fallback: AI_HEALTH_CACHE_TTL_MS.
	HealthCacheTTL time.Duration `yaml:"health_cache_ttl"`

	// ForwardTimeout bounds one envelope delivery.
	ForwardTimeout time.Duration `yaml:"forward_timeout"`
}

func envString(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func envMillis(name string) time.Duration {
	raw := envString(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = envString("TELEVERSE_BASE_URL")
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.InternalKey == "" {
		c.InternalKey = envString("TELEVERSE_INTERNAL_KEY")
	}
	if c.HealthURL == "" {
		c.HealthURL = envString("AI_HEALTH_URL")
	}

	if c.HealthTimeout <= 0 {
		c.HealthTimeout = envMillis("AI_HEALTH_TIMEOUT_MS")
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = defaultHealthTimeout
	}
	// Clamp rather than reject: a probe that outlives the webhook response
	// budget is worse than a slightly shorter probe.
	if c.HealthTimeout < minHealthTimeout {
		c.HealthTimeout = minHealthTimeout
	}
	if c.HealthTimeout > maxHealthTimeout {
		c.HealthTimeout = maxHealthTimeout
	}

	if c.HealthCacheTTL <= 0 {
		c.HealthCacheTTL = envMillis("AI_HEALTH_CACHE_TTL_MS")
	}
	if c.HealthCacheTTL <= 0 {
		c.HealthCacheTTL = defaultHealthTTL
	}

	if c.ForwardTimeout <= 0 {
		c.ForwardTimeout = defaultForwardTimeout
	}
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{
		"base_url":   c.BaseURL,
		"health_url": c.HealthURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("televerse: invalid %s: %q", name, raw)
		}
	}
	return nil
}
