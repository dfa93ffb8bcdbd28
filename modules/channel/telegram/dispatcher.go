package telegram

import (
	"context"
	"log/slog"

	"github.com/hyperlinkspace/telegate/internal/observability"
	"github.com/hyperlinkspace/telegate/pkg/envelope"
)

// MessageSender is the outbound half of the Telegram client used by the
// dispatcher. Satisfied by *Client; narrowed for tests.
type MessageSender interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error)
}

// HealthProber reports downstream AI availability for the /start greeting.
type HealthProber interface {
	// IsAvailable never errors; unknown means unavailable.
	IsAvailable(ctx context.Context) bool
}

// Forwarder ships envelopes to the downstream processing service.
type Forwarder interface {
	// Configured reports whether a downstream target is set up at all.
	Configured() bool

	// Forward returns whether the downstream accepted the envelope. An
	// error means the attempt itself failed (network, timeout).
	Forward(ctx context.Context, env envelope.Envelope) (bool, error)
}

// Dispatcher routes one decoded update: built-in commands are answered
// directly, other text is forwarded downstream with a local fallback reply,
// and everything else is ignored with a log line.
type Dispatcher struct {
	sender    MessageSender
	prober    HealthProber  // nil = availability always false
	forwarder Forwarder     // nil = forwarding unconfigured
	appURL    string        // non-empty adds the web app keyboard to /start
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewDispatcher creates a Dispatcher. prober and forwarder may be nil.
func NewDispatcher(sender MessageSender, prober HealthProber, forwarder Forwarder, appURL string, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		prober:    prober,
		forwarder: forwarder,
		appURL:    appURL,
		logger:    logger,
		metrics:   metrics,
	}
}

// Dispatch handles one update end to end. It never returns an error: every
// failure mode ends in a log line and, where a chat is known, a best-effort
// reply.
func (d *Dispatcher) Dispatch(ctx context.Context, u *Update) {
	if cmd := Command(u); cmd != "" {
		if d.handleCommand(ctx, u, cmd) {
			return
		}
	}

	if Text(u) != "" {
		d.forwardOrFallback(ctx, u)
		return
	}

	d.logger.Warn("telegram_update_ignored",
		"update_id", u.UpdateID,
		"reason", "no_supported_message")

	// Photos, stickers, and other unsupported content still get pointed at
	// /help when there is a chat to answer.
	d.send(ctx, ChatID(u), fallbackText, nil)
}

// handleCommand answers built-in commands. It reports false for unknown
// commands and for commands without a reply target, letting the update fall
// through to the text path.
func (d *Dispatcher) handleCommand(ctx context.Context, u *Update, cmd string) bool {
	chatID := ChatID(u)
	if chatID == 0 {
		return false
	}

	switch cmd {
	case "/start":
		available := d.prober != nil && d.prober.IsAvailable(ctx)
		d.send(ctx, chatID, welcomeText(available), d.appKeyboard())
		return true
	case "/help":
		d.send(ctx, chatID, helpText, nil)
		return true
	case "/ping":
		d.send(ctx, chatID, "pong", nil)
		return true
	}
	return false
}

// forwardOrFallback ships the update downstream; when forwarding is
// unconfigured, rejected, or fails, the user gets the fallback reply instead
// of silence.
func (d *Dispatcher) forwardOrFallback(ctx context.Context, u *Update) {
	chatID := ChatID(u)

	if d.forwarder == nil || !d.forwarder.Configured() {
		d.metrics.RecordForward(ctx, "unconfigured")
		d.send(ctx, chatID, fallbackText, nil)
		return
	}

	forwarded, err := d.forwarder.Forward(ctx, BuildEnvelope(u))
	if err != nil {
		d.logger.Error("televerse_forward_error",
			"error", err,
			"update_id", u.UpdateID,
			"chat_id", chatID,
			"message_id", MessageID(u))
		d.metrics.RecordForward(ctx, "error")
		d.send(ctx, chatID, fallbackText, nil)
		return
	}
	if !forwarded {
		d.metrics.RecordForward(ctx, "rejected")
		d.send(ctx, chatID, fallbackText, nil)
		return
	}
	d.metrics.RecordForward(ctx, "ok")
}

// send delivers a reply. A zero chat id is a silent no-op: there is nowhere
// to answer. Send failures are logged, never propagated.
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) {
	if chatID == 0 {
		return
	}

	_, err := d.sender.SendMessage(ctx, SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		d.metrics.RecordSend(ctx, "error")
		d.logger.Error("telegram_send_error", "error", err, "chat_id", chatID)
		return
	}
	d.metrics.RecordSend(ctx, "ok")
}

// appKeyboard returns the inline keyboard opening the web app, or nil when
// no app URL is configured.
func (d *Dispatcher) appKeyboard() *InlineKeyboardMarkup {
	if d.appURL == "" {
		return nil
	}
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Open app", WebApp: &WebAppInfo{URL: d.appURL}}},
		},
	}
}
