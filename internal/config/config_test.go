package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "water-mqtt.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.MQTTPort != 1883 {
		t.Errorf("MQTTPort: got %d, want 1883", cfg.MQTTPort)
	}
	if cfg.MQTTClientID != "water-mqtt-gateway" {
		t.Errorf("MQTTClientID: got %q", cfg.MQTTClientID)
	}
	if cfg.MQTTTopic != "water-mqtt/tele/{serial}/SENSOR" {
		t.Errorf("MQTTTopic: got %q", cfg.MQTTTopic)
	}
	if cfg.BufferSize != 100000 {
		t.Errorf("BufferSize: got %d, want 100000", cfg.BufferSize)
	}
	if cfg.Line != -1 {
		t.Errorf("Line: got %d, want -1 (not set)", cfg.Line)
	}
	if cfg.HTTPHost != "localhost" || cfg.HTTPPort != 5000 {
		t.Errorf("HTTP defaults: got %s:%d", cfg.HTTPHost, cfg.HTTPPort)
	}
	if cfg.CounterFile != "/var/lib/water_mqtt/counter" {
		t.Errorf("CounterFile: got %q", cfg.CounterFile)
	}
}

func TestApplyFile(t *testing.T) {
	path := writeConfig(t, `[general]
mqtt-host = broker.local
mqtt-port = 8883
serial = ABC123
gpiochip = gpiochip0
line = 0
buffer-size = 500
counter-file = /tmp/counter
`)

	cfg := Default()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}

	if cfg.MQTTHost != "broker.local" {
		t.Errorf("MQTTHost: got %q", cfg.MQTTHost)
	}
	if cfg.MQTTPort != 8883 {
		t.Errorf("MQTTPort: got %d", cfg.MQTTPort)
	}
	if cfg.Serial != "ABC123" {
		t.Errorf("Serial: got %q", cfg.Serial)
	}
	if cfg.Line != 0 {
		t.Errorf("Line: got %d, want 0 (line 0 is valid)", cfg.Line)
	}
	if cfg.BufferSize != 500 {
		t.Errorf("BufferSize: got %d", cfg.BufferSize)
	}
	if cfg.CounterFile != "/tmp/counter" {
		t.Errorf("CounterFile: got %q", cfg.CounterFile)
	}
	// Untouched options keep their defaults.
	if cfg.HTTPPort != 5000 {
		t.Errorf("HTTPPort: got %d, want default 5000", cfg.HTTPPort)
	}
}

func TestApplyFileMissing(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyFile(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Error("missing config file should be an error")
	}
}

func TestApplyFileBadInteger(t *testing.T) {
	path := writeConfig(t, `[general]
mqtt-port = not-a-number
`)

	cfg := Default()
	err := cfg.ApplyFile(path)
	if err == nil {
		t.Fatal("bad mqtt-port should be an error")
	}
	if !strings.Contains(err.Error(), "mqtt-port") {
		t.Errorf("error should name the option: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no mqtt host", func(c *Config) { c.MQTTHost = "" }, "MQTT host"},
		{"no gpiochip", func(c *Config) { c.GPIOChip = "" }, "GPIO chip"},
		{"no line", func(c *Config) { c.Line = -1 }, "GPIO line"},
		{"no serial", func(c *Config) { c.Serial = "" }, "serial"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.MQTTHost = "broker"
			cfg.GPIOChip = "gpiochip0"
			cfg.Line = 17
			cfg.Serial = "ABC123"

			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q should mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateLineZero(t *testing.T) {
	cfg := Default()
	cfg.MQTTHost = "broker"
	cfg.GPIOChip = "gpiochip0"
	cfg.Line = 0
	cfg.Serial = "ABC123"

	if err := cfg.Validate(); err != nil {
		t.Errorf("line 0 should be valid: %v", err)
	}
}

func TestHTTPAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.HTTPAddr(); got != "localhost:5000" {
		t.Errorf("HTTPAddr: got %q", got)
	}
}
