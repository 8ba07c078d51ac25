// Command water-mqtt bridges a water meter's impulse line to MQTT.
//
// The supervisor starts three components: the HTTP override endpoint, the
// GPIO meter, and the MQTT publisher. If any one dies the whole program
// terminates after a final counter flush; components are never restarted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/buffer"
	"github.com/Lalufu/water-mqtt/internal/config"
	"github.com/Lalufu/water-mqtt/internal/counter"
	"github.com/Lalufu/water-mqtt/internal/gpio"
	"github.com/Lalufu/water-mqtt/internal/logger"
	"github.com/Lalufu/water-mqtt/internal/meter"
	"github.com/Lalufu/water-mqtt/internal/mqtt"
	"github.com/Lalufu/water-mqtt/internal/supervise"
	"github.com/Lalufu/water-mqtt/internal/web"
)

// cliFlags holds the registered command line flags. Defaults here are zero
// values on purpose: whether a flag was actually set decides precedence over
// the config file, so the real defaults live in config.Default.
type cliFlags struct {
	fs *flag.FlagSet

	configFile   *string
	mqttHost     *string
	mqttPort     *int
	mqttClientID *string
	mqttTopic    *string
	bufferSize   *int
	gpiochip     *string
	line         *int
	serial       *string
	httpHost     *string
	httpPort     *int
	counterFile  *string
	debug        *bool
}

func newFlags(fs *flag.FlagSet) *cliFlags {
	return &cliFlags{
		fs:         fs,
		configFile: fs.String("config", "", "Configuration file to load"),
		mqttHost:   fs.String("mqtt-host", "", "MQTT server to connect to"),
		mqttPort:   fs.Int("mqtt-port", 0, "MQTT port to connect to"),
		mqttClientID: fs.String("mqtt-client-id", "",
			"MQTT client ID. Needs to be unique between all clients connecting to the same broker"),
		mqttTopic: fs.String("mqtt-topic", "",
			"MQTT topic to publish to. {serial} is replaced with the serial number of the meter"),
		bufferSize: fs.Int("buffer-size", 0,
			"How many measurements to buffer if the MQTT server should be unavailable. "+
				"This buffer is not persistent across program restarts"),
		gpiochip: fs.String("gpiochip", "", "Name of the GPIO chip to use"),
		line:     fs.Int("line", -1, "GPIO line to use"),
		serial:   fs.String("serial", "", "Serial number of the meter"),
		httpHost: fs.String("http-host", "", "Hostname/IP to listen on for HTTP server"),
		httpPort: fs.Int("http-port", 0, "HTTP port to listen on"),
		counterFile: fs.String("counter-file", "",
			"File to use to store counter value"),
		debug: fs.Bool("debug", false, "Enable debug logging"),
	}
}

// apply overlays the flags that were explicitly set onto cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "mqtt-host":
			cfg.MQTTHost = *f.mqttHost
		case "mqtt-port":
			cfg.MQTTPort = *f.mqttPort
		case "mqtt-client-id":
			cfg.MQTTClientID = *f.mqttClientID
		case "mqtt-topic":
			cfg.MQTTTopic = *f.mqttTopic
		case "buffer-size":
			cfg.BufferSize = *f.bufferSize
		case "gpiochip":
			cfg.GPIOChip = *f.gpiochip
		case "line":
			cfg.Line = *f.line
		case "serial":
			cfg.Serial = *f.serial
		case "http-host":
			cfg.HTTPHost = *f.httpHost
		case "http-port":
			cfg.HTTPPort = *f.httpPort
		case "counter-file":
			cfg.CounterFile = *f.counterFile
		case "debug":
			cfg.Debug = *f.debug
		}
	})
}

// buildConfig merges defaults, the config file, and the set flags, then
// validates the result.
func buildConfig(f *cliFlags) (config.Config, error) {
	cfg := config.Default()
	if *f.configFile != "" {
		if err := cfg.ApplyFile(*f.configFile); err != nil {
			return cfg, err
		}
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	fl := newFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := buildConfig(fl)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	zl, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Error("terminating", zap.Error(err))
		zl.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cnt := counter.New()
	store := counter.NewStore(cfg.CounterFile)
	buf := buffer.New(cfg.BufferSize)

	sup := &supervise.Supervisor{
		Counter: cnt,
		Store:   store,
		Log:     zl,
		StartHTTP: func(ctx context.Context) *supervise.Component {
			return supervise.Start(ctx, "http", func(ctx context.Context) error {
				return serveHTTP(ctx, cfg, cnt, zl)
			})
		},
		StartMeter: func(ctx context.Context) *supervise.Component {
			return supervise.Start(ctx, "water", func(ctx context.Context) error {
				return runMeter(ctx, cfg, cnt, buf, zl)
			})
		},
		StartPublisher: func(ctx context.Context) *supervise.Component {
			return supervise.Start(ctx, "mqtt", func(ctx context.Context) error {
				return runPublisher(ctx, cfg, buf, zl)
			})
		},
	}

	return sup.Run(ctx)
}

// serveHTTP runs the override endpoint until the context is cancelled.
func serveHTTP(ctx context.Context, cfg config.Config, cnt *counter.Counter, zl *zap.Logger) error {
	srv := web.New(cfg.HTTPAddr(), cnt, zl)
	zl.Info("http server listening", zap.String("addr", cfg.HTTPAddr()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return errors.New("http server stopped unexpectedly")
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// runMeter opens the hardware line and runs the pulse counting loop.
// Failure to open or configure the line is fatal for the component, which the
// supervisor escalates to a full shutdown.
func runMeter(ctx context.Context, cfg config.Config, cnt *counter.Counter, buf *buffer.Buffer, zl *zap.Logger) error {
	reader, err := gpio.NewRealReader(cfg.GPIOChip, cfg.Line, meter.DebounceThreshold)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	return meterLoop(ctx, reader, cfg.Serial, cnt, buf, zl)
}

// meterLoop runs the pulse counting loop over any reader, closing it on exit.
func meterLoop(ctx context.Context, reader gpio.Reader, serial string, cnt *counter.Counter, buf *buffer.Buffer, zl *zap.Logger) error {
	defer reader.Close()

	m := &meter.Meter{
		Source:  reader,
		Counter: cnt,
		Sink:    buf,
		Serial:  serial,
		Log:     zl,
	}
	return m.Run(ctx)
}

// runPublisher connects to the broker and drains the telemetry buffer.
func runPublisher(ctx context.Context, cfg config.Config, buf *buffer.Buffer, zl *zap.Logger) error {
	pub, err := mqtt.NewRealPublisher(
		mqtt.BrokerURL(cfg.MQTTHost, cfg.MQTTPort),
		cfg.MQTTClientID,
		mqtt.Topic(cfg.MQTTTopic, cfg.Serial))
	if err != nil {
		return fmt.Errorf("connect to mqtt: %w", err)
	}
	defer pub.Close()

	d := &mqtt.Drainer{Buffer: buf, Pub: pub, Log: zl}
	return d.Run(ctx)
}
