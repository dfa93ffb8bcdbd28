package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperlinkspace/telegate/internal/core"
	"github.com/hyperlinkspace/telegate/internal/cron"
	"github.com/hyperlinkspace/telegate/internal/dedupe"
	"github.com/hyperlinkspace/telegate/internal/gateway"
	"github.com/hyperlinkspace/telegate/internal/observability"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Channel{})
}

// Compile-time interface guards.
var (
	_ core.Configurable   = (*Channel)(nil)
	_ core.Provisioner    = (*Channel)(nil)
	_ core.Validator      = (*Channel)(nil)
	_ core.Starter        = (*Channel)(nil)
	_ core.Stopper        = (*Channel)(nil)
	_ cron.WebhookEnsurer = (*Channel)(nil)
)

// startTimeout bounds the Bot API calls made during Start.
const startTimeout = 10 * time.Second

// Channel is the Telegram channel module. During Start it verifies the token,
// binds its update sink to the gateway, registers the webhook, and schedules
// the maintenance jobs.
type Channel struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger

	client *Client
	store  dedupe.Store
	sink   *Sink
}

// ModuleInfo implements core.Module.
func (c *Channel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Channel{} },
	}
}

// Configure implements core.Configurable.
func (c *Channel) Configure(node *yaml.Node) error {
	return node.Decode(&c.config)
}

// Provision implements core.Provisioner.
func (c *Channel) Provision(ctx *core.AppContext) error {
	c.appCtx = ctx
	c.logger = ctx.Logger
	c.config.defaults()

	c.client = NewClient(c.config.Token, c.config.APIURL)
	c.store = dedupe.NewMemoryStore(c.config.DedupeTTL, c.config.DedupeMaxEntries)
	return nil
}

// Validate implements core.Validator. A missing or malformed token is fatal:
// a gateway that cannot reply is misconfigured, not degraded.
func (c *Channel) Validate() error {
	return c.config.validate()
}

// Start implements core.Starter.
func (c *Channel) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	me, err := c.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed: %w", err)
	}
	c.logger.Info("telegram bot authorized", "username", me.Username, "bot_id", me.ID)

	// A persistent dedupe module, when loaded, replaces the in-memory store.
	if svc, ok := c.appCtx.Service("dedupe.store"); ok {
		if store, ok := svc.(dedupe.Store); ok {
			c.store = store
			c.logger.Info("using persistent dedupe store")
		}
	}

	var prober HealthProber
	var forwarder Forwarder
	if svc, ok := c.appCtx.Service("downstream.prober"); ok {
		prober, _ = svc.(HealthProber)
	}
	if svc, ok := c.appCtx.Service("downstream.forwarder"); ok {
		forwarder, _ = svc.(Forwarder)
	}

	var metrics *observability.Metrics
	if svc, ok := c.appCtx.Service("observability.metrics"); ok {
		metrics, _ = svc.(*observability.Metrics)
	}

	var events *gateway.EventStream
	if svc, ok := c.appCtx.Service("gateway.events"); ok {
		events, _ = svc.(*gateway.EventStream)
	}

	dispatcher := NewDispatcher(c.client, prober, forwarder, c.config.AppURL, c.logger, metrics)

	aiConfigured := false
	if p, ok := prober.(interface{ Configured() bool }); ok {
		aiConfigured = p.Configured()
	}

	c.sink = &Sink{
		dispatcher:         dispatcher,
		dedupe:             c.store,
		client:             c.client,
		logger:             c.logger,
		metrics:            metrics,
		events:             events,
		aiHealthConfigured: aiConfigured,
		forwardingEnabled:  forwarder != nil && forwarder.Configured(),
	}

	svc, ok := c.appCtx.Service("gateway.ingest")
	if !ok {
		return fmt.Errorf("telegram: gateway.ingest service not available")
	}
	ingestor, ok := svc.(*gateway.Ingestor)
	if !ok {
		return fmt.Errorf("telegram: gateway.ingest has unexpected type %T", svc)
	}
	ingestor.Bind(c.sink, gateway.BindOptions{
		Secret:    c.config.WebhookSecret,
		BodyLimit: c.config.BodyLimitBytes,
	})

	if c.config.WebhookSecret == "" {
		c.logger.Warn("telegram_webhook_secret_not_set")
	}

	if err := c.EnsureWebhook(ctx); err != nil {
		return err
	}

	c.registerJobs()
	return nil
}

// EnsureWebhook implements cron.WebhookEnsurer. Registering the same URL
// again is idempotent on Telegram's side, so the keepalive job calls this
// unconditionally.
func (c *Channel) EnsureWebhook(ctx context.Context) error {
	if c.config.WebhookURL == "" {
		c.logger.Info("webhook url not configured, skipping registration")
		return nil
	}

	err := c.client.SetWebhook(ctx, SetWebhookRequest{
		URL:            c.config.WebhookURL,
		SecretToken:    c.config.WebhookSecret,
		AllowedUpdates: c.config.AllowedUpdates,
	})
	if err != nil {
		return fmt.Errorf("telegram: setWebhook failed: %w", err)
	}
	c.logger.Info("webhook registered", "url", c.config.WebhookURL)
	return nil
}

// registerJobs adds the maintenance jobs to the scheduler. Missing scheduler
// module means no periodic maintenance, which only costs unswept expired
// dedupe entries under low traffic.
func (c *Channel) registerJobs() {
	svc, ok := c.appCtx.Service("cron.scheduler")
	if !ok {
		c.logger.Warn("cron scheduler not loaded, maintenance jobs disabled")
		return
	}
	scheduler, ok := svc.(*cron.Scheduler)
	if !ok {
		return
	}

	if c.config.SweepSchedule != "off" {
		err := scheduler.RegisterJob(&cron.DedupeSweepJob{
			Store:        c.store,
			Logger:       c.logger,
			ScheduleExpr: c.config.SweepSchedule,
		})
		if err != nil {
			c.logger.Error("failed to register dedupe sweep job", "error", err)
		}
	}

	if c.config.WebhookURL != "" && c.config.KeepaliveSchedule != "off" {
		err := scheduler.RegisterJob(&cron.WebhookKeepaliveJob{
			Ensurer:      c,
			Logger:       c.logger,
			ScheduleExpr: c.config.KeepaliveSchedule,
		})
		if err != nil {
			c.logger.Error("failed to register webhook keepalive job", "error", err)
		}
	}
}

// Stop implements core.Stopper. The webhook is removed so Telegram stops
// delivering to an endpoint that is going away.
func (c *Channel) Stop(ctx context.Context) error {
	if c.client == nil || c.config.WebhookURL == "" {
		return nil
	}
	if err := c.client.DeleteWebhook(ctx); err != nil {
		c.logger.Warn("deleteWebhook failed", "error", err)
	}
	return nil
}
