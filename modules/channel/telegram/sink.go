package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hyperlinkspace/telegate/internal/dedupe"
	"github.com/hyperlinkspace/telegate/internal/gateway"
	"github.com/hyperlinkspace/telegate/internal/observability"
)

// webhookInfoTimeout bounds the Bot API lookup made for GET status requests.
const webhookInfoTimeout = 2 * time.Second

// Sink receives acknowledged webhook bodies from the gateway and runs the
// decode → dedupe → dispatch pipeline.
type Sink struct {
	dispatcher *Dispatcher
	dedupe     dedupe.Store
	client     *Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	events     *gateway.EventStream

	aiHealthConfigured bool
	forwardingEnabled  bool
}

var _ gateway.UpdateSink = (*Sink)(nil)

// Consume implements gateway.UpdateSink. The body has already passed the
// gateway's shape check, so a decode failure here means a structurally valid
// JSON object that is not an Update; it is logged and dropped. A handler
// panic is contained here so one poisonous update cannot take down a worker.
func (s *Sink) Consume(ctx context.Context, body []byte) {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		s.logger.Warn("telegram_update_undecodable", "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("telegram_dispatch_panic",
				"panic", r,
				"update_id", u.UpdateID,
				"chat_id", ChatID(&u),
				"update_kind", Kind(&u))
			s.events.Publish(gateway.Event{
				Type:     gateway.EventError,
				UpdateID: u.UpdateID,
				ChatID:   ChatID(&u),
				Kind:     Kind(&u),
				Detail:   "panic",
			})
		}
	}()

	if !s.dedupe.ShouldProcess(u.UpdateID) {
		s.logger.Warn("telegram_update_duplicate", "update_id", u.UpdateID)
		s.metrics.RecordDuplicate(ctx)
		s.events.Publish(gateway.Event{
			Type:     gateway.EventDuplicate,
			UpdateID: u.UpdateID,
			ChatID:   ChatID(&u),
			Kind:     Kind(&u),
		})
		return
	}

	s.dispatcher.Dispatch(ctx, &u)
	s.events.Publish(gateway.Event{
		Type:     gateway.EventDispatched,
		UpdateID: u.UpdateID,
		ChatID:   ChatID(&u),
		Kind:     Kind(&u),
	})
}

// Status implements gateway.UpdateSink. The webhook URL comes from a live
// getWebhookInfo call with a short deadline; lookup failure leaves the field
// empty rather than failing the status request.
func (s *Sink) Status(ctx context.Context) gateway.SinkStatus {
	st := gateway.SinkStatus{
		Service:            "telegram-gateway",
		Mode:               "webhook",
		AIHealthConfigured: s.aiHealthConfigured,
		Forwarding:         "disabled",
	}
	if s.forwardingEnabled {
		st.Forwarding = "enabled"
	}

	wctx, cancel := context.WithTimeout(ctx, webhookInfoTimeout)
	defer cancel()
	if info, err := s.client.GetWebhookInfo(wctx); err == nil {
		st.WebhookURL = info.URL
	} else {
		s.logger.Warn("telegram_webhook_info_failed", "error", err)
	}
	return st
}
