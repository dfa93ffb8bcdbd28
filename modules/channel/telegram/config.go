package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL         = "https://api.telegram.org"
	defaultBodyLimitBytes = 262144
	defaultWebhookPath    = "/api/bot"
)

// Config holds Telegram channel configuration. Every field falls back to the
// environment so a config file with an empty telegram block still works in
// the usual env-driven deployment.
type Config struct {
	// Token is the bot token. Env fallback: BOT_TOKEN, then
	// TELEGRAM_BOT_TOKEN.
	Token string `yaml:"token"`

	// WebhookSecret is the shared secret Telegram echoes back in the
	// X-Telegram-Bot-Api-Secret-Token header. Env fallback:
	// TELEGRAM_WEBHOOK_SECRET. Empty disables the check.
	WebhookSecret string `yaml:"webhook_secret"`

	// WebhookURL is the public URL registered with setWebhook. Env
	// fallback: TELEGRAM_WEBHOOK_URL, then SELF_URL or VERCEL_URL with
	// "/api/bot" appended. Empty skips webhook registration.
	WebhookURL string `yaml:"webhook_url"`

	// AppURL is the web app opened by the /start keyboard button. Env
	// fallback: APP_URL. Empty omits the keyboard.
	AppURL string `yaml:"app_url"`

	// APIURL overrides the Bot API base URL, mainly for tests.
	APIURL string `yaml:"api_url"`

	AllowedUpdates []string `yaml:"allowed_updates"`

	// BodyLimitBytes caps accepted webhook payloads. Env fallback:
	// TELEGRAM_BODY_LIMIT_BYTES.
	BodyLimitBytes int64 `yaml:"body_limit_bytes"`

	// Dedupe window settings for the in-memory store. Ignored when a
	// persistent dedupe module is loaded.
	DedupeTTL        time.Duration `yaml:"dedupe_ttl"`
	DedupeMaxEntries int           `yaml:"dedupe_max_entries"`

	// Cron expressions for the maintenance jobs. Empty uses the job
	// defaults; "off" disables the job.
	SweepSchedule     string `yaml:"sweep_schedule"`
	KeepaliveSchedule string `yaml:"keepalive_schedule"`
}

func envString(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// webhookURLFromEnv derives the webhook target from the deployment
// environment: an explicit TELEGRAM_WEBHOOK_URL wins, otherwise the platform
// base URL (SELF_URL or VERCEL_URL, scheme optional) gets the webhook path
// appended.
func webhookURLFromEnv() string {
	if explicit := envString("TELEGRAM_WEBHOOK_URL"); explicit != "" {
		return explicit
	}

	base := envString("SELF_URL", "VERCEL_URL")
	if base == "" {
		return ""
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + defaultWebhookPath
}

func (c *Config) defaults() {
	if c.Token == "" {
		c.Token = envString("BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookSecret == "" {
		c.WebhookSecret = envString("TELEGRAM_WEBHOOK_SECRET")
	}
	if c.WebhookURL == "" {
		c.WebhookURL = webhookURLFromEnv()
	}
	if c.AppURL == "" {
		c.AppURL = envString("APP_URL")
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.APIURL = strings.TrimSuffix(c.APIURL, "/")

	if c.BodyLimitBytes <= 0 {
		if raw := envString("TELEGRAM_BODY_LIMIT_BYTES"); raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
				c.BodyLimitBytes = n
			}
		}
	}
	if c.BodyLimitBytes <= 0 {
		c.BodyLimitBytes = defaultBodyLimitBytes
	}

	if len(c.AllowedUpdates) == 0 {
		c.AllowedUpdates = []string{"message", "edited_message", "callback_query", "inline_query", "channel_post"}
	}
}

// tokenPattern is the Bot API token shape: numeric bot id, colon, secret.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{30,}$`)

func (c *Config) validate() error {
	if c.Token == "" {
		return errors.New("telegram: bot token is required (set token or BOT_TOKEN)")
	}
	if !tokenPattern.MatchString(c.Token) {
		return errors.New("telegram: bot token does not look like a Bot API token")
	}

	for name, raw := range map[string]string{
		"api_url":     c.APIURL,
		"webhook_url": c.WebhookURL,
		"app_url":     c.AppURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("telegram: invalid %s: %q", name, raw)
		}
	}

	if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("telegram: webhook_url must be https: %q", c.WebhookURL)
	}
	return nil
}
