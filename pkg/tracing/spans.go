package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gpukit/gpuprof/pkg/profiler"
)

// EmitSnapshotSpans renders one profiler snapshot as a span tree ending at
// the given instant. Snapshots only carry durations, so every span is laid
// out backwards from end; the result approximates the real schedule but
// preserves nesting and per-timer cost, which is what trace viewers need.
func EmitSnapshotSpans(ctx context.Context, tracer trace.Tracer, snap profiler.Snapshot, end time.Time) {
	type openSpan struct {
		level int32
		ctx   context.Context
		span  trace.Span
	}
	var stack []openSpan

	closeDownTo := func(level int32) {
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack[len(stack)-1].span.End(trace.WithTimestamp(end))
			stack = stack[:len(stack)-1]
		}
	}

	for i, info := range snap.TimerInfos {
		level := info.Level
		if info.Async {
			// Async timers have no nesting; root at 0, timers below it.
			if i > 0 {
				level = 1
			} else {
				level = 0
			}
		}
		closeDownTo(level)

		parent := ctx
		if len(stack) > 0 {
			parent = stack[len(stack)-1].ctx
		}

		start := end.Add(-time.Duration(info.CPU.Last * float64(time.Microsecond)))
		spanCtx, span := tracer.Start(parent, snap.TimerNames[i],
			trace.WithTimestamp(start),
			trace.WithAttributes(
				attribute.String("profiler.timeline", snap.Name),
				attribute.String("profiler.api", snap.TimerAPINames[i]),
				attribute.Float64("profiler.cpu_avg_us", info.CPU.Average),
				attribute.Float64("profiler.gpu_last_us", info.GPU.Last),
				attribute.Int("profiler.samples", info.NumAveraged),
				attribute.Bool("profiler.accumulated", info.Accumulated),
				attribute.Bool("profiler.async", info.Async),
			),
		)
		stack = append(stack, openSpan{level: level, ctx: spanCtx, span: span})
	}
	closeDownTo(-1 << 30)
}
