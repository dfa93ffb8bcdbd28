// Package televerse integrates the downstream processing service: a cached
// health prober consulted by /start, and a forwarder that ships normalized
// update envelopes for AI handling.
package televerse

import (
	"log/slog"

	"github.com/hyperlinkspace/telegate/internal/core"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Downstream{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Downstream)(nil)
	_ core.Provisioner  = (*Downstream)(nil)
	_ core.Validator    = (*Downstream)(nil)
)

// Downstream is the downstream integration module. It has no Start/Stop of
// its own: the prober and forwarder are passive services consumed by the
// Telegram channel.
type Downstream struct {
	config Config
	logger *slog.Logger

	prober    *Prober
	forwarder *Forwarder
}

// ModuleInfo implements core.Module.
func (d *Downstream) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "downstream.televerse",
		New: func() core.Module { return &Downstream{} },
	}
}

// Configure implements core.Configurable.
func (d *Downstream) Configure(node *yaml.Node) error {
	return node.Decode(&d.config)
}

// Provision implements core.Provisioner.
func (d *Downstream) Provision(ctx *core.AppContext) error {
	d.logger = ctx.Logger
	d.config.defaults()

	d.prober = NewProber(d.config.HealthURL, d.config.HealthTimeout, d.config.HealthCacheTTL, d.logger)
	d.forwarder = NewForwarder(d.config.BaseURL, d.config.InternalKey, d.config.ForwardTimeout, d.logger)

	ctx.RegisterService("downstream.prober", d.prober)
	ctx.RegisterService("downstream.forwarder", d.forwarder)

	if !d.forwarder.Configured() {
		d.logger.Warn("downstream forwarding not configured, text updates get the fallback reply")
	}
	return nil
}

// Validate implements core.Validator. Unlike the bot token, downstream
// settings are optional: the gateway degrades to fallback replies.
func (d *Downstream) Validate() error {
	return d.config.validate()
}
