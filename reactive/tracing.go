package reactive

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer emits one span per outermost queue drain. With no SDK installed
// the global provider is a no-op, so the cost is negligible; hosts that
// want real spans install a provider via otel.SetTracerProvider before
// driving the graph.
var tracer = otel.Tracer("github.com/RxAI-dev/rxwp/reactive")

func startDrainSpan(startTick uint64) trace.Span {
	_, span := tracer.Start(context.Background(), "reactive.scheduler.drain",
		trace.WithAttributes(attribute.Int64("reactive.tick.start", int64(startTick))))
	return span
}

func endDrainSpan(span trace.Span, endTick uint64, rounds int) {
	span.SetAttributes(
		attribute.Int64("reactive.tick.end", int64(endTick)),
		attribute.Int("reactive.drain.rounds", rounds),
	)
	span.End()
}
