package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/JaimeStill/rancoqc/pkg/telemetry"
)

func TestInitDisabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := telemetry.Init(&telemetry.Config{}, "0.1.0", &buf)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("disabled tracer wrote %d bytes", buf.Len())
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_TRACE_ENABLED", "true")

	cfg := &telemetry.Config{}
	if err := cfg.Finalize(&telemetry.Env{Enabled: "TEST_TRACE_ENABLED"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !cfg.Enabled {
		t.Error("enabled = false, want true")
	}
	if cfg.ServiceName != "rancoqc" {
		t.Errorf("service name = %s, want rancoqc", cfg.ServiceName)
	}
}
