// Package telemetry sets up OpenTelemetry tracing for the client.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Options configures the tracer provider.
type Options struct {
	ServiceName    string
	ServiceVersion string
	// Writer receives exported spans. Defaults to stdout.
	Writer io.Writer
	// Sync exports each span as it ends instead of batching.
	Sync bool
}

// NewTracerProvider builds a provider that exports spans as JSON to
// opts.Writer. The caller owns it and must call Shutdown.
func NewTracerProvider(opts Options) (*sdktrace.TracerProvider, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	exporterOpts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if opts.Writer == nil {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(opts.ServiceVersion))
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attrs...),
	)
	if err != nil {
		return nil, err
	}

	export := sdktrace.WithBatcher(exporter)
	if opts.Sync {
		export = sdktrace.WithSyncer(exporter)
	}
	return sdktrace.NewTracerProvider(export, sdktrace.WithResource(res)), nil
}

// InitTracer installs a stdout tracer provider as the global provider and
// returns its shutdown function.
func InitTracer(serviceName string, logger *slog.Logger) (func(context.Context) error, error) {
	tp, err := NewTracerProvider(Options{ServiceName: serviceName})
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry initialized", slog.String("service", serviceName))

	return tp.Shutdown, nil
}
