package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ItsSilva/lumilink/internal/ble"
	"github.com/ItsSilva/lumilink/internal/ble/sim"
	"github.com/ItsSilva/lumilink/internal/config"
)

// Persistent flags shared by every command.
var (
	flagConfig   string
	flagLogLevel string
	flagSimulate bool
)

// loadConfig resolves the effective configuration: the --config path
// when given, the default path when a file exists there, built-in
// defaults otherwise.
func loadConfig() (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// commandSetup is the preamble shared by all commands: load the
// configuration and wire up logging.
func commandSetup() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newAdapter picks the platform Bluetooth stack, or the simulator
// when --simulate is set. The simulated device echoes every payload
// back and reports its battery every couple of seconds, which gives
// the other commands something to show.
func newAdapter() ble.Adapter {
	if flagSimulate {
		return sim.New(sim.Options{Echo: true, Tick: 2 * time.Second})
	}
	return ble.NewNativeAdapter()
}

// clientOptions maps the configuration onto the BLE client.
func clientOptions(cfg *config.Config) ble.ClientOptions {
	return ble.ClientOptions{
		NamePrefixes:       cfg.Device.NamePrefixes,
		ServiceUUID:        cfg.Device.ServiceUUID,
		CharacteristicUUID: cfg.Device.CharacteristicUUID,
		ScanTimeout:        cfg.ScanTimeout.Duration,
		ConnectTimeout:     cfg.ConnectTimeout.Duration,
	}
}

// signalContext derives a context that is cancelled on Ctrl+C or
// SIGTERM so commands can unwind cleanly.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
