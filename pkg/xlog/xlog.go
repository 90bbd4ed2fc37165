// Package xlog is a thin context-aware facade over zap. Loggers are
// explicit dependencies: components receive one at construction and there
// is no process-global logger state.
package xlog

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

////////////////////////////////////////////////////////////////////////////////

type Logger interface {
	With(fields ...zap.Field) Logger
	WithName(name string) Logger

	// Zap exposes the underlying logger for libraries that want one.
	Zap() *zap.Logger

	Debug(ctx context.Context, msg string, fields ...zap.Field)
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Warn(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
	Fatal(ctx context.Context, msg string, fields ...zap.Field)
}

////////////////////////////////////////////////////////////////////////////////

type logger struct {
	l *zap.Logger
}

var _ Logger = (*logger)(nil)

func New(l *zap.Logger) Logger {
	return &logger{l: l.WithOptions(zap.AddCallerSkip(1))}
}

func NewNop() Logger {
	return &logger{l: zap.NewNop()}
}

func (l *logger) With(fields ...zap.Field) Logger {
	return &logger{l: l.l.With(fields...)}
}

func (l *logger) WithName(name string) Logger {
	return &logger{l: l.l.Named(name)}
}

func (l *logger) Zap() *zap.Logger {
	return l.l
}

// contextFields decorates records with the active trace, if any.
func contextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return fields
	}
	return append(fields,
		zap.String("trace.id", span.TraceID().String()),
		zap.String("span.id", span.SpanID().String()),
	)
}

func (l *logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.l.Debug(msg, contextFields(ctx, fields)...)
}

func (l *logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.l.Info(msg, contextFields(ctx, fields)...)
}

func (l *logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.l.Warn(msg, contextFields(ctx, fields)...)
}

func (l *logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.l.Error(msg, contextFields(ctx, fields)...)
}

func (l *logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.l.Fatal(msg, contextFields(ctx, fields)...)
}
