// Package config holds the gateway configuration.
//
// Options come from three sources with per-option precedence:
// command line flag > config file > built-in default. The struct is treated
// as immutable once the merge in cmd/water-mqtt is done.
package config

import (
	"errors"
	"fmt"

	"gopkg.in/ini.v1"
)

// Config is the merged configuration handed to every component.
type Config struct {
	MQTTHost     string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
	BufferSize   int
	GPIOChip     string
	Line         int
	Serial       string
	HTTPHost     string
	HTTPPort     int
	CounterFile  string
	Debug        bool
}

// Default returns the built-in defaults. Line is -1, meaning "not set";
// 0 is a valid GPIO line.
func Default() Config {
	return Config{
		MQTTPort:     1883,
		MQTTClientID: "water-mqtt-gateway",
		MQTTTopic:    "water-mqtt/tele/{serial}/SENSOR",
		BufferSize:   100000,
		Line:         -1,
		HTTPHost:     "localhost",
		HTTPPort:     5000,
		CounterFile:  "/var/lib/water_mqtt/counter",
	}
}

// ApplyFile overlays options from an INI config file. Only keys present in
// the [general] section are applied.
func (c *Config) ApplyFile(filename string) error {
	f, err := ini.Load(filename)
	if err != nil {
		return fmt.Errorf("could not read config file %s: %w", filename, err)
	}

	sec := f.Section("general")

	if k := sec.Key("mqtt-host"); k.String() != "" {
		c.MQTTHost = k.String()
	}
	if sec.HasKey("mqtt-port") {
		v, err := sec.Key("mqtt-port").Int()
		if err != nil {
			return fmt.Errorf("%s: %q is not a valid value for mqtt-port",
				filename, sec.Key("mqtt-port").String())
		}
		c.MQTTPort = v
	}
	if k := sec.Key("mqtt-client-id"); k.String() != "" {
		c.MQTTClientID = k.String()
	}
	if k := sec.Key("mqtt-topic"); k.String() != "" {
		c.MQTTTopic = k.String()
	}
	if sec.HasKey("buffer-size") {
		v, err := sec.Key("buffer-size").Int()
		if err != nil {
			return fmt.Errorf("%s: %q is not a valid value for buffer-size",
				filename, sec.Key("buffer-size").String())
		}
		c.BufferSize = v
	}
	if k := sec.Key("gpiochip"); k.String() != "" {
		c.GPIOChip = k.String()
	}
	if sec.HasKey("line") {
		v, err := sec.Key("line").Int()
		if err != nil {
			return fmt.Errorf("%s: %q is not a valid value for line",
				filename, sec.Key("line").String())
		}
		c.Line = v
	}
	if k := sec.Key("serial"); k.String() != "" {
		c.Serial = k.String()
	}
	if k := sec.Key("http-host"); k.String() != "" {
		c.HTTPHost = k.String()
	}
	if sec.HasKey("http-port") {
		v, err := sec.Key("http-port").Int()
		if err != nil {
			return fmt.Errorf("%s: %q is not a valid value for http-port",
				filename, sec.Key("http-port").String())
		}
		c.HTTPPort = v
	}
	if k := sec.Key("counter-file"); k.String() != "" {
		c.CounterFile = k.String()
	}

	return nil
}

// Validate checks that the options without defaults were provided.
func (c *Config) Validate() error {
	if c.MQTTHost == "" {
		return errors.New("no MQTT host given")
	}
	if c.GPIOChip == "" {
		return errors.New("no GPIO chip given")
	}
	if c.Line < 0 {
		return errors.New("no GPIO line given")
	}
	if c.Serial == "" {
		return errors.New("no serial number given")
	}
	return nil
}

// HTTPAddr returns the listen address for the override endpoint.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
