package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("OrderPlaced")}})
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := HeaderValue(headers, TraceparentHeader); got != want {
		t.Fatalf("expected traceparent %s, got %s", want, got)
	}
	if got := Traceparent(ctx); got != want {
		t.Fatalf("expected Traceparent %s, got %s", want, got)
	}

	out := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))
	if out.TraceID() != traceID {
		t.Fatalf("expected trace id %s, got %s", traceID, out.TraceID())
	}
	if !out.IsRemote() {
		t.Fatalf("expected extracted span context to be remote")
	}
}

func TestHeaderValue_Missing(t *testing.T) {
	t.Parallel()

	if got := HeaderValue(nil, "x"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
