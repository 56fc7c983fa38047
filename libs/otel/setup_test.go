package otelx

import (
	"context"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_SAMPLING_RATIO", "3")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := ConfigFromEnv("booking-service")
	if cfg.Enabled {
		t.Fatal("expected tracing disabled")
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("expected out of range ratio to fall back to 1, got %v", cfg.SampleRatio)
	}
	if cfg.OTLPEndpoint != "collector:4317" || cfg.ServiceName != "booking-service" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTraceContextRoundTripWithoutSpan(t *testing.T) {
	tp, ts := TraceContextStrings(context.Background())
	if tp != "" || ts != "" {
		t.Fatalf("expected empty trace context, got %q %q", tp, ts)
	}
	ctx := context.Background()
	if got := ContextWithTraceContext(ctx, "", ""); got != ctx {
		t.Fatal("expected same context for empty carrier")
	}
}
