package televerse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hyperlinkspace/telegate/pkg/envelope"
)

// processPath is the downstream ingestion endpoint, relative to the base URL.
const processPath = "/internal/process-update"

// Forwarder ships update envelopes to the downstream processing service,
// authenticated with a shared internal key.
type Forwarder struct {
	baseURL     string
	internalKey string
	timeout     time.Duration
	http        *http.Client
	logger      *slog.Logger
}

// NewForwarder creates a Forwarder. It is usable even when unconfigured;
// Forward then reports not-forwarded without touching the network.
func NewForwarder(baseURL, internalKey string, timeout time.Duration, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		baseURL:     baseURL,
		internalKey: internalKey,
		timeout:     timeout,
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Configured reports whether both the base URL and the internal key are set.
func (f *Forwarder) Configured() bool {
	return f.baseURL != "" && f.internalKey != ""
}

// Forward delivers the envelope. The bool reports whether the downstream
// accepted it (2xx); a non-2xx response is a rejection, not an error. Errors
// are reserved for failed attempts: marshalling, network, timeout.
func (f *Forwarder) Forward(ctx context.Context, env envelope.Envelope) (bool, error) {
	if !f.Configured() {
		return false, nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return false, fmt.Errorf("televerse: marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+processPath, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("televerse: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-key", f.internalKey)

	resp, err := f.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("televerse: forward failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	accepted := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !accepted {
		f.logger.Warn("televerse_forward_rejected",
			"status", resp.StatusCode,
			"update_id", env.UpdateID)
	}
	return accepted, nil
}
