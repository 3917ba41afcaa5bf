package pubsub

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestPublishWithoutPublisher(t *testing.T) {
	t.Parallel()

	var nilPub *Publisher
	if _, err := nilPub.Publish(context.Background(), nil, "payload"); err == nil {
		t.Fatal("expected error from nil publisher")
	}
	if _, err := New(nil).Publish(context.Background(), nil, "payload"); err == nil {
		t.Fatal("expected error from unconfigured publisher")
	}
	// Stop on an unconfigured publisher is a no-op.
	New(nil).Stop()
}

func TestCarrierCarriesTraceContext(t *testing.T) {
	t.Parallel()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	carrier := &pubsubCarrier{attrs: map[string]string{"run_id": "run-1"}}
	prop := propagation.TraceContext{}
	prop.Inject(ctx, carrier)

	if carrier.Get("traceparent") == "" {
		t.Fatal("expected traceparent attribute")
	}
	if got := carrier.Get("run_id"); got != "run-1" {
		t.Fatalf("run_id = %q, want run-1", got)
	}
	if len(carrier.Keys()) != 2 {
		t.Fatalf("keys = %v, want run_id and traceparent", carrier.Keys())
	}

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), carrier))
	if extracted.TraceID() != sc.TraceID() {
		t.Fatalf("trace id = %s, want %s", extracted.TraceID(), sc.TraceID())
	}
}
