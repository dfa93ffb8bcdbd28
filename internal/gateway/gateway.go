// Package gateway implements the HTTP-facing entry point: the Telegram
// webhook ingestion endpoint, a health probe, the Prometheus exposition
// endpoint, and a WebSocket stream of dispatch events.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperlinkspace/telegate/internal/core"
	"github.com/hyperlinkspace/telegate/internal/observability"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It is a leaf module — nothing imports
// it; channels reach it through the "gateway.ingest" service.
type Gateway struct {
	config   Config
	appCtx   *core.AppContext
	logger   *slog.Logger
	server   *http.Server
	ingestor *Ingestor
	events   *EventStream
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	return nil
}

// Provision implements core.Provisioner. The ingestor and event stream are
// registered as services here so the channel module can bind during Start().
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.config.defaults()

	g.events = NewEventStream(g.logger)
	g.ingestor = NewIngestor(g.logger, g.events, g.config.QueueSize, g.config.Workers, g.config.DispatchTimeout)

	ctx.RegisterService("gateway.ingest", g.ingestor)
	ctx.RegisterService("gateway.events", g.events)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// Ingestion path handles OPTIONS/GET/POST itself and answers 405 for
	// the rest, so it is mounted for every method.
	r.Handle(g.config.Path, g.ingestor)
	r.Get("/ws/events", g.events.ServeHTTP)

	if svc, ok := g.appCtx.Service("observability.handler"); ok {
		if handler, ok := svc.(http.Handler); ok {
			r.Handle("/metrics", handler)
		}
	}

	return r
}

// Start implements core.Starter.
func (g *Gateway) Start() error {
	if svc, ok := g.appCtx.Service("observability.metrics"); ok {
		if metrics, ok := svc.(*observability.Metrics); ok {
			g.ingestor.SetMetrics(metrics)
		}
	}

	g.ingestor.start()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind, "path", g.config.Path)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	err := g.server.Shutdown(shutdownCtx)
	g.ingestor.stop()
	return err
}
