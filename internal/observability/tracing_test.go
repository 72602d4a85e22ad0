package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	for _, addr := range []string{"", "none", " NONE "} {
		before := otel.GetTracerProvider()

		shutdown, err := InitTracer(context.Background(), "sponte-test", addr)
		if err != nil {
			t.Fatalf("InitTracer(%q) failed: %v", addr, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("no-op shutdown returned %v", err)
		}
		if otel.GetTracerProvider() != before {
			t.Errorf("InitTracer(%q) replaced the global provider", addr)
		}
	}
}

func TestInitTracer_InstallsProvider(t *testing.T) {
	// The gRPC connection is lazy, so an unreachable collector is fine.
	shutdown, err := InitTracer(context.Background(), "sponte-test", "localhost:4317")
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected sdk tracer provider, got %T", otel.GetTracerProvider())
	}

	_, span := otel.Tracer("test").Start(context.Background(), "smoke")
	if !span.SpanContext().IsValid() {
		t.Error("expected a sampled span with a valid context")
	}
	span.End()

	fields := otel.GetTextMapPropagator().Fields()
	if len(fields) == 0 || fields[0] != "traceparent" {
		t.Errorf("expected W3C trace context propagation, got %v", fields)
	}
}
