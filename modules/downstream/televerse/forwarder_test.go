package televerse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperlinkspace/telegate/pkg/envelope"
)

func testEnvelope() envelope.Envelope {
	return envelope.Envelope{
		UpdateID:  100,
		ChatID:    10,
		UserID:    7,
		Text:      "hello",
		MessageID: 3,
		Timestamp: 1717243200,
	}
}

func TestForwarderUnconfigured(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		baseURL string
		key     string
	}{
		{"no base url", "", "key"},
		{"no key", "https://tv.example.com", ""},
		{"neither", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := NewForwarder(tt.baseURL, tt.key, time.Second, discardLogger())
			if f.Configured() {
				t.Error("Configured() = true")
			}
			forwarded, err := f.Forward(context.Background(), testEnvelope())
			if err != nil {
				t.Errorf("Forward() error: %v", err)
			}
			if forwarded {
				t.Error("Forward() = true without configuration")
			}
		})
	}
}

func TestForwarderDelivers(t *testing.T) {
	t.Parallel()
	var gotKey string
	var gotEnv envelope.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/internal/process-update" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("x-internal-key")
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotEnv); err != nil {
			t.Errorf("decode envelope: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewForwarder(srv.URL, "internal-key", time.Second, discardLogger())
	forwarded, err := f.Forward(context.Background(), testEnvelope())
	if err != nil {
		t.Fatalf("Forward() error: %v", err)
	}
	if !forwarded {
		t.Error("Forward() = false, want true")
	}
	if gotKey != "internal-key" {
		t.Errorf("x-internal-key = %q", gotKey)
	}
	if gotEnv.UpdateID != 100 || gotEnv.Text != "hello" {
		t.Errorf("envelope = %+v", gotEnv)
	}
}

func TestForwarderRejection(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewForwarder(srv.URL, "wrong-key", time.Second, discardLogger())
	forwarded, err := f.Forward(context.Background(), testEnvelope())
	if err != nil {
		t.Fatalf("a non-2xx response is a rejection, not an error: %v", err)
	}
	if forwarded {
		t.Error("Forward() = true for 403")
	}
}

func TestForwarderNetworkError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewForwarder(url, "key", time.Second, discardLogger())
	forwarded, err := f.Forward(context.Background(), testEnvelope())
	if err == nil {
		t.Fatal("Forward() should error for unreachable downstream")
	}
	if forwarded {
		t.Error("Forward() = true alongside an error")
	}
}

func TestForwarderTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewForwarder(srv.URL, "key", 50*time.Millisecond, discardLogger())
	if _, err := f.Forward(context.Background(), testEnvelope()); err == nil {
		t.Fatal("Forward() should error on timeout")
	}
}

func TestConfigClamps(t *testing.T) {
	t.Setenv("AI_HEALTH_TIMEOUT_MS", "")
	t.Setenv("AI_HEALTH_CACHE_TTL_MS", "")

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default", 0, 1200 * time.Millisecond},
		{"below minimum", 50 * time.Millisecond, 200 * time.Millisecond},
		{"above maximum", 10 * time.Second, 1500 * time.Millisecond},
		{"in range", 800 * time.Millisecond, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{HealthTimeout: tt.timeout}
			c.defaults()
			if c.HealthTimeout != tt.want {
				t.Errorf("HealthTimeout = %s, want %s", c.HealthTimeout, tt.want)
			}
		})
	}
}

func TestConfigEnvFallbacks(t *testing.T) {
	t.Setenv("TELEVERSE_BASE_URL", "https://tv.example.com/")
	t.Setenv("TELEVERSE_INTERNAL_KEY", "k")
	t.Setenv("AI_HEALTH_URL", "https://ai.example.com/health")
	t.Setenv("AI_HEALTH_TIMEOUT_MS", "900")
	t.Setenv("AI_HEALTH_CACHE_TTL_MS", "45000")

	var c Config
	c.defaults()

	if c.BaseURL != "https://tv.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL)
	}
	if c.InternalKey != "k" {
		t.Errorf("InternalKey = %q", c.InternalKey)
	}
	if c.HealthURL != "https://ai.example.com/health" {
		t.Errorf("HealthURL = %q", c.HealthURL)
	}
	if c.HealthTimeout != 900*time.Millisecond {
		t.Errorf("HealthTimeout = %s, want 900ms", c.HealthTimeout)
	}
	if c.HealthCacheTTL != 45*time.Second {
		t.Errorf("HealthCacheTTL = %s, want 45s", c.HealthCacheTTL)
	}
}
