// Package telemetry wires OpenTelemetry tracing, metrics and log export.
// Every provider is optional: when disabled the global no-op provider stays
// in place and instrumentation calls cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// shutdownTimeout bounds the final flush of each provider
const shutdownTimeout = 10 * time.Second

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdown flushes a provider within shutdownTimeout
func shutdown(ctx context.Context, what string, fn func(context.Context) error) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := fn(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown %s provider: %w", what, err)
	}
	return nil
}
