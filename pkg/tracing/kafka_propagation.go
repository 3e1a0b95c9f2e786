package tracing

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const TraceparentHeader = "traceparent"

func InjectKafkaHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

func ExtractKafkaHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}

	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}

	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// Traceparent renders the span context of ctx as a W3C traceparent value so it
// can be stored next to an outbox row and replayed as a header later.
func Traceparent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.Get(TraceparentHeader)
}

// HeaderValue returns the first header named key, or "".
func HeaderValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
