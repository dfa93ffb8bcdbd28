package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hyperlinkspace/telegate/internal/observability"
)

// secretHeader carries Telegram's webhook shared secret.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateSink consumes validated webhook payloads after the HTTP response has
// been written. Consume must never panic through to the caller's goroutine
// and must not return errors — dispatch failures are the sink's to log.
type UpdateSink interface {
	Consume(ctx context.Context, body []byte)
	Status(ctx context.Context) SinkStatus
}

// SinkStatus is the channel-provided portion of the GET status payload.
type SinkStatus struct {
	Service            string `json:"service"`
	Mode               string `json:"mode"`
	AIHealthConfigured bool   `json:"aiHealthConfigured"`
	Forwarding         string `json:"forwarding"`
	WebhookURL         string `json:"webhook_url,omitempty"`
}

// BindOptions carries per-sink validation settings.
type BindOptions struct {
	// Secret, when non-empty, must match the X-Telegram-Bot-Api-Secret-Token
	// header on every POST.
	Secret string

	// BodyLimit is the maximum accepted payload size in bytes.
	BodyLimit int64
}

// Ingestor is the webhook ingestion endpoint. It validates deliveries
// (method, shared secret, size, JSON shape), acknowledges them, and hands
// the body to worker goroutines that invoke the bound sink — so Telegram's
// delivery latency budget never includes handler execution time.
type Ingestor struct {
	mu        sync.RWMutex
	sink      UpdateSink
	secret    string
	bodyLimit int64

	queue           chan []byte
	workers         int
	dispatchTimeout time.Duration
	cancel          context.CancelFunc
	wg              sync.WaitGroup

	logger  *slog.Logger
	metrics *observability.Metrics
	events  *EventStream
}

// NewIngestor creates an Ingestor with an empty (unbound) sink.
func NewIngestor(logger *slog.Logger, events *EventStream, queueSize, workers int, dispatchTimeout time.Duration) *Ingestor {
	return &Ingestor{
		queue:           make(chan []byte, queueSize),
		workers:         workers,
		dispatchTimeout: dispatchTimeout,
		logger:          logger,
		events:          events,
	}
}

// Bind attaches the sink that receives validated updates. Until a sink is
// bound, POSTed updates are acknowledged and dropped with a warning — the
// gateway's availability never depends on channel startup order.
func (in *Ingestor) Bind(sink UpdateSink, opts BindOptions) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.sink = sink
	in.secret = opts.Secret
	in.bodyLimit = opts.BodyLimit
}

// SetMetrics wires the metric instruments. Safe to leave nil.
func (in *Ingestor) SetMetrics(m *observability.Metrics) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.metrics = m
}

// start launches the dispatch workers.
func (in *Ingestor) start() {
	ctx, cancel := context.WithCancel(context.Background())
	in.cancel = cancel
	for range in.workers {
		in.wg.Add(1)
		go in.worker(ctx)
	}
}

// stop cancels the workers and waits for in-flight dispatches. Updates still
// queued are lost — acknowledged-but-undelivered loss on shutdown is an
// accepted property of the ack-then-process contract.
func (in *Ingestor) stop() {
	if in.cancel == nil {
		return
	}
	in.cancel()
	in.wg.Wait()
}

func (in *Ingestor) worker(ctx context.Context) {
	defer in.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case body := <-in.queue:
			in.mu.RLock()
			sink, metrics := in.sink, in.metrics
			in.mu.RUnlock()
			if sink == nil {
				continue
			}

			dctx, cancel := context.WithTimeout(ctx, in.dispatchTimeout)
			start := time.Now()
			sink.Consume(dctx, body)
			metrics.RecordDispatch(dctx, float64(time.Since(start).Microseconds())/1000.0)
			cancel()
		}
	}
}

// ServeHTTP implements http.Handler for the ingestion path.
func (in *Ingestor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+secretHeader)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		in.handleStatus(w, r)
	case http.MethodPost:
		in.handlePost(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	}
}

// statusResponse is the GET payload. Fields beyond ok come from the sink.
type statusResponse struct {
	OK bool `json:"ok"`
	SinkStatus
}

func (in *Ingestor) handleStatus(w http.ResponseWriter, r *http.Request) {
	in.mu.RLock()
	sink := in.sink
	in.mu.RUnlock()

	resp := statusResponse{OK: true, SinkStatus: SinkStatus{Service: "telegram-gateway"}}
	if sink != nil {
		resp.SinkStatus = sink.Status(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (in *Ingestor) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in.mu.RLock()
	sink, secret, limit, metrics := in.sink, in.secret, in.bodyLimit, in.metrics
	in.mu.RUnlock()

	if secret != "" {
		provided := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) != 1 {
			metrics.RecordReceived(ctx, "unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	// Prefer the declared length so oversized bodies are rejected without
	// reading them; re-check after the bounded read for liars.
	if r.ContentLength > limit {
		metrics.RecordReceived(ctx, "payload_too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		metrics.RecordReceived(ctx, "invalid_body")
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if int64(len(body)) > limit {
		metrics.RecordReceived(ctx, "payload_too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return
	}

	// Updates are always JSON objects; reject arrays, scalars, and garbage
	// before acknowledging.
	var probe map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &probe) != nil {
		metrics.RecordReceived(ctx, "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	// Acknowledge before dispatch. Telegram retries deliveries that do not
	// get a prompt response, so the 200 must not wait for handler work.
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	metrics.RecordReceived(ctx, "ok")

	updateID := rawUpdateID(probe)
	if secret == "" {
		in.logger.Warn("telegram_webhook_secret_not_set", "update_id", updateID)
	}

	if sink == nil {
		in.logger.Warn("update received before channel bind", "update_id", updateID)
		return
	}

	select {
	case in.queue <- body:
	default:
		metrics.RecordQueueDropped(ctx)
		in.events.Publish(Event{Type: EventDropped, UpdateID: updateID})
		in.logger.Error("dispatch queue full, update dropped", "update_id", updateID)
	}
}

// rawUpdateID extracts update_id from a probed body for log context.
// Returns 0 when absent or malformed.
func rawUpdateID(probe map[string]json.RawMessage) int64 {
	raw, ok := probe["update_id"]
	if !ok {
		return 0
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": code})
}
