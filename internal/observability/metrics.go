package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments used across the gateway and the
// Telegram channel. A nil *Metrics is valid: every record method is a no-op,
// so callers never need to guard for the observability module being absent.
type Metrics struct {
	// Ingestion metrics
	UpdatesReceived  otelmetric.Int64Counter
	QueueDropped     otelmetric.Int64Counter
	DispatchDuration otelmetric.Float64Histogram

	// Dispatch metrics
	DuplicatesDropped otelmetric.Int64Counter
	Forwards          otelmetric.Int64Counter
	Sends             otelmetric.Int64Counter
}

// NewMetrics creates all metric instruments from the given Meter.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	m.UpdatesReceived, err = meter.Int64Counter(
		"telegate.updates.received",
		otelmetric.WithDescription("Webhook deliveries by validation result"),
	)
	if err != nil {
		return nil, err
	}

	m.QueueDropped, err = meter.Int64Counter(
		"telegate.queue.dropped",
		otelmetric.WithDescription("Updates dropped because the dispatch queue was full"),
	)
	if err != nil {
		return nil, err
	}

	m.DispatchDuration, err = meter.Float64Histogram(
		"telegate.dispatch.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("Update dispatch duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.DuplicatesDropped, err = meter.Int64Counter(
		"telegate.dedupe.dropped",
		otelmetric.WithDescription("Updates skipped as duplicates within the dedupe window"),
	)
	if err != nil {
		return nil, err
	}

	m.Forwards, err = meter.Int64Counter(
		"telegate.forwards",
		otelmetric.WithDescription("Downstream forward attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	m.Sends, err = meter.Int64Counter(
		"telegate.sends",
		otelmetric.WithDescription("Telegram sendMessage calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordReceived counts one webhook delivery with the given validation result
// (e.g. "ok", "unauthorized", "payload_too_large", "invalid_json").
func (m *Metrics) RecordReceived(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.UpdatesReceived.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
}

// RecordQueueDropped counts one update lost to a full dispatch queue.
func (m *Metrics) RecordQueueDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.QueueDropped.Add(ctx, 1)
}

// RecordDispatch records the duration of one dispatched update.
func (m *Metrics) RecordDispatch(ctx context.Context, millis float64) {
	if m == nil {
		return
	}
	m.DispatchDuration.Record(ctx, millis)
}

// RecordDuplicate counts one update suppressed by deduplication.
func (m *Metrics) RecordDuplicate(ctx context.Context) {
	if m == nil {
		return
	}
	m.DuplicatesDropped.Add(ctx, 1)
}

// RecordForward counts one downstream forward attempt by outcome
// ("ok", "rejected", "error", "unconfigured").
func (m *Metrics) RecordForward(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Forwards.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSend counts one sendMessage call by outcome ("ok", "error").
func (m *Metrics) RecordSend(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Sends.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}
