package telegram

import (
	"strings"
	"testing"
)

const testToken = "123456:AABBccddeeffgghhiijjkkllmmnnooppqqrrss"

func TestConfigTokenFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", testToken)
	t.Setenv("TELEGRAM_BOT_TOKEN", "999:should-not-win")

	var c Config
	c.defaults()
	if c.Token != testToken {
		t.Errorf("Token = %q, want BOT_TOKEN value", c.Token)
	}
}

func TestConfigTokenFallbackEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", testToken)

	var c Config
	c.defaults()
	if c.Token != testToken {
		t.Errorf("Token = %q, want TELEGRAM_BOT_TOKEN value", c.Token)
	}
}

func TestConfigExplicitTokenWins(t *testing.T) {
	t.Setenv("BOT_TOKEN", "111:env-token-that-should-lose-ooooooooooooo")

	c := Config{Token: testToken}
	c.defaults()
	if c.Token != testToken {
		t.Errorf("Token = %q, want explicit value", c.Token)
	}
}

func TestConfigWebhookURLFromPlatformEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			"explicit url",
			map[string]string{"TELEGRAM_WEBHOOK_URL": "https://bot.example.com/hook"},
			"https://bot.example.com/hook",
		},
		{
			"self url with scheme",
			map[string]string{"SELF_URL": "https://gate.example.com/"},
			"https://gate.example.com/api/bot",
		},
		{
			"vercel url without scheme",
			map[string]string{"VERCEL_URL": "my-app.vercel.app"},
			"https://my-app.vercel.app/api/bot",
		},
		{
			"nothing set",
			map[string]string{},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range []string{"TELEGRAM_WEBHOOK_URL", "SELF_URL", "VERCEL_URL"} {
				t.Setenv(name, tt.env[name])
			}
			var c Config
			c.defaults()
			if c.WebhookURL != tt.want {
				t.Errorf("WebhookURL = %q, want %q", c.WebhookURL, tt.want)
			}
		})
	}
}

func TestConfigBodyLimitDefaultAndEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BODY_LIMIT_BYTES", "")
	var c Config
	c.defaults()
	if c.BodyLimitBytes != 262144 {
		t.Errorf("BodyLimitBytes = %d, want 262144", c.BodyLimitBytes)
	}

	t.Setenv("TELEGRAM_BODY_LIMIT_BYTES", "1024")
	var c2 Config
	c2.defaults()
	if c2.BodyLimitBytes != 1024 {
		t.Errorf("BodyLimitBytes = %d, want env value 1024", c2.BodyLimitBytes)
	}

	t.Setenv("TELEGRAM_BODY_LIMIT_BYTES", "-5")
	var c3 Config
	c3.defaults()
	if c3.BodyLimitBytes != 262144 {
		t.Errorf("BodyLimitBytes = %d, want default for invalid env", c3.BodyLimitBytes)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(_ *Config) {}, ""},
		{"missing token", func(c *Config) { c.Token = "" }, "token is required"},
		{"malformed token", func(c *Config) { c.Token = "garbage" }, "does not look like"},
		{"bad webhook url", func(c *Config) { c.WebhookURL = "::::" }, "invalid webhook_url"},
		{"http webhook url", func(c *Config) { c.WebhookURL = "http://insecure.example.com/bot" }, "must be https"},
		{"bad app url", func(c *Config) { c.AppURL = "not a url" }, "invalid app_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{
				Token:      testToken,
				APIURL:     "https://api.telegram.org",
				WebhookURL: "https://gate.example.com/api/bot",
			}
			tt.mutate(&c)

			err := c.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
