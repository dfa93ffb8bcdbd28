// Package observability provides OpenTelemetry-based metrics with a
// Prometheus exporter. The gateway mounts the exposition handler at
// /metrics; other modules resolve the Metrics instruments via the service
// registry.
package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hyperlinkspace/telegate/internal/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Provisioner = (*Module)(nil)
	_ core.Stopper     = (*Module)(nil)
)

// Module owns the OTel MeterProvider and the metric instruments.
type Module struct {
	provider *sdkmetric.MeterProvider
	metrics  *Metrics
	logger   *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "observability.metrics",
		New: func() core.Module { return &Module{} },
	}
}

// Provision implements core.Provisioner. It configures a Prometheus exporter
// as the metric reader, installs the MeterProvider globally, creates the
// instruments, and registers them for cross-module discovery.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	exporter, err := prometheus.New()
	if err != nil {
		return err
	}

	m.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(m.provider)

	m.metrics, err = NewMetrics(m.provider.Meter("telegate"))
	if err != nil {
		return err
	}

	ctx.RegisterService("observability.metrics", m.metrics)
	ctx.RegisterService("observability.handler", http.Handler(promhttp.Handler()))
	return nil
}

// Stop implements core.Stopper, flushing any remaining metric data.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
