package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gpukit/gpuprof/pkg/xlog"
)

// Initialize wires a tracer provider around the given exporter and installs
// it globally. The returned shutdown drains and releases the provider and
// the exporter.
func Initialize(
	ctx context.Context,
	log xlog.Logger,
	exporter sdktrace.SpanExporter,
	serviceName string,
) (
	shutdown func(context.Context) error,
	tracer trace.TracerProvider,
	err error,
) {
	shutdownFuncs := []func(context.Context) error{
		exporter.Shutdown,
	}

	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(handlerErr error) {
		log.Warn(ctx, "opentelemetry error", zap.Error(handlerErr))
	}))

	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		))
	if err != nil {
		err = errors.Join(err, shutdown(ctx))
		return nil, nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	return shutdown, tp, nil
}
