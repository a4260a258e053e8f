// Package telemetry wires OpenTelemetry tracing, metrics and logs, GORM
// tracing and Pyroscope profiling.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/crm/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported as service.version on every signal.
var ServiceVersion = "1.0.0"

// Telemetry owns every provider started by Setup.
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
}

// Setup starts the providers described by cfg. With telemetry disabled every
// provider is a no-op and Shutdown does nothing.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{}
	var err error

	if t.Tracer, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if t.Meter, err = NewMeterProvider(ctx, cfg, 0, logger); err != nil {
		return nil, errors.Join(err, t.Tracer.Shutdown(ctx))
	}
	if t.Logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		return nil, errors.Join(err, t.Meter.Shutdown(ctx), t.Tracer.Shutdown(ctx))
	}
	if t.Profiler, err = NewProfiler(cfg, logger); err != nil {
		return nil, errors.Join(err, t.Logs.Shutdown(ctx), t.Meter.Shutdown(ctx), t.Tracer.Shutdown(ctx))
	}
	if t.Profiler.IsEnabled() {
		if err := t.Tracer.EnableSpanProfiles(); err != nil {
			logger.Warn("failed to link spans to profiles", zap.Error(err))
		}
	}
	return t, nil
}

// Shutdown flushes and stops every provider, in reverse start order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.Profiler.Stop(),
		t.Logs.Shutdown(ctx),
		t.Meter.Shutdown(ctx),
		t.Tracer.Shutdown(ctx),
	)
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
