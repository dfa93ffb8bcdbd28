package cron

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the subset of the dedupe store needed by the sweep job.
// Defined here to avoid a dependency on the dedupe package.
type Sweeper interface {
	Sweep() int
}

// DedupeSweepJob periodically evicts expired dedupe entries so memory stays
// bounded even when traffic never crosses the size threshold that triggers
// the opportunistic in-band sweep.
type DedupeSweepJob struct {
	Store        Sweeper
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "@every 5m"
}

var _ Job = (*DedupeSweepJob)(nil)

// Name implements Job.
func (j *DedupeSweepJob) Name() string { return "dedupe_sweep" }

// Schedule implements Job.
func (j *DedupeSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@every 5m"
}

// Run implements Job.
func (j *DedupeSweepJob) Run(_ context.Context) error {
	if removed := j.Store.Sweep(); removed > 0 {
		j.Logger.Info("cron: swept expired dedupe entries", "count", removed)
	}
	return nil
}

// WebhookEnsurer re-registers the webhook with Telegram. Implemented by the
// Telegram channel module.
type WebhookEnsurer interface {
	EnsureWebhook(ctx context.Context) error
}

// WebhookKeepaliveJob periodically re-registers the webhook so a target
// dropped by Telegram (or clobbered by a concurrent deployment) heals
// without operator action.
type WebhookKeepaliveJob struct {
	Ensurer      WebhookEnsurer
	Logger       *slog.Logger
	Timeout      time.Duration // per-run bound, default 10s
	ScheduleExpr string        // empty = default "@every 1h"
}

var _ Job = (*WebhookKeepaliveJob)(nil)

// Name implements Job.
func (j *WebhookKeepaliveJob) Name() string { return "webhook_keepalive" }

// Schedule implements Job.
func (j *WebhookKeepaliveJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@every 1h"
}

// Run implements Job.
func (j *WebhookKeepaliveJob) Run(ctx context.Context) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Ensurer.EnsureWebhook(ctx)
}
