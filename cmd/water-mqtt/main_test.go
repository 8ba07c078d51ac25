package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/buffer"
	"github.com/Lalufu/water-mqtt/internal/counter"
	"github.com/Lalufu/water-mqtt/internal/gpio"
	"github.com/Lalufu/water-mqtt/internal/meter"
)

func parse(t *testing.T, args ...string) *cliFlags {
	t.Helper()
	fs := flag.NewFlagSet("water-mqtt", flag.ContinueOnError)
	fl := newFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fl
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "water-mqtt.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildConfigFlagsOnly(t *testing.T) {
	fl := parse(t,
		"--mqtt-host", "broker.local",
		"--gpiochip", "gpiochip0",
		"--line", "17",
		"--serial", "ABC123",
	)

	cfg, err := buildConfig(fl)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}

	if cfg.MQTTHost != "broker.local" {
		t.Errorf("MQTTHost: got %q", cfg.MQTTHost)
	}
	if cfg.Line != 17 {
		t.Errorf("Line: got %d", cfg.Line)
	}
	// Unset options fall through to defaults.
	if cfg.MQTTPort != 1883 {
		t.Errorf("MQTTPort: got %d, want default 1883", cfg.MQTTPort)
	}
	if cfg.BufferSize != 100000 {
		t.Errorf("BufferSize: got %d, want default 100000", cfg.BufferSize)
	}
}

func TestBuildConfigFlagOverridesFile(t *testing.T) {
	path := writeConfig(t, `[general]
mqtt-host = from-file
mqtt-port = 9999
gpiochip = gpiochip0
line = 17
serial = ABC123
`)

	fl := parse(t,
		"--config", path,
		"--mqtt-host", "from-flag",
	)

	cfg, err := buildConfig(fl)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}

	if cfg.MQTTHost != "from-flag" {
		t.Errorf("MQTTHost: got %q, want flag to win over file", cfg.MQTTHost)
	}
	if cfg.MQTTPort != 9999 {
		t.Errorf("MQTTPort: got %d, want file to win over default", cfg.MQTTPort)
	}
}

func TestBuildConfigZeroValuedFlagWins(t *testing.T) {
	path := writeConfig(t, `[general]
mqtt-host = broker
gpiochip = gpiochip0
line = 17
serial = ABC123
http-port = 8080
`)

	// An explicitly passed zero/empty-ish flag must override the file;
	// presence decides, not the value.
	fl := parse(t,
		"--config", path,
		"--line", "0",
	)

	cfg, err := buildConfig(fl)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}

	if cfg.Line != 0 {
		t.Errorf("Line: got %d, want 0 from the flag", cfg.Line)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort: got %d, want 8080 from the file", cfg.HTTPPort)
	}
}

func TestBuildConfigValidation(t *testing.T) {
	fl := parse(t, "--mqtt-host", "broker")

	if _, err := buildConfig(fl); err == nil {
		t.Error("expected a validation error with gpiochip/line/serial missing")
	}
}

func TestBuildConfigBadFile(t *testing.T) {
	fl := parse(t, "--config", filepath.Join(t.TempDir(), "missing.conf"))

	if _, err := buildConfig(fl); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestMeterLoopClosesReader(t *testing.T) {
	reader := gpio.NewFakeReader([]meter.EdgeEvent{
		{Type: meter.FallingEdge, Timestamp: time.Second},
	})
	cnt := counter.New()
	buf := buffer.New(10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- meterLoop(ctx, reader, "TEST", cnt, buf, zap.NewNop()) }()

	dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dcancel()
	if _, ok := buf.Dequeue(dctx); !ok {
		t.Fatal("no snapshot produced in time")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("meterLoop: %v", err)
	}
	if cnt.Get() != 1 {
		t.Errorf("counter: got %d, want 1", cnt.Get())
	}
	if !reader.Closed {
		t.Error("reader was not closed on exit")
	}
}
