package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/config"
	"github.com/solarshed/solar-controller/internal/datadog"
	"github.com/solarshed/solar-controller/internal/dispatcher"
	"github.com/solarshed/solar-controller/internal/env"
	"github.com/solarshed/solar-controller/internal/gpio"
	"github.com/solarshed/solar-controller/internal/i2c"
	"github.com/solarshed/solar-controller/internal/logging"
	"github.com/solarshed/solar-controller/internal/loop"
	"github.com/solarshed/solar-controller/internal/model"
	"github.com/solarshed/solar-controller/internal/onewire"
	"github.com/solarshed/solar-controller/internal/powermeter"
	"github.com/solarshed/solar-controller/internal/relay"
	"github.com/solarshed/solar-controller/system/shutdown"
)

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("i2c_bus", cfg.I2CBus).
		Int("relay_pin", cfg.RelayPinNumber).
		Msg("Starting solar controller")

	gpio.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED - GPIO writes are disabled system-wide")
	} else if err := gpio.ValidateRelayPin(cfg.RelayPin()); err != nil {
		log.Fatal().Err(err).Msg("Refusing to start with the relay pin in an unsafe state")
	}

	datadog.InitMetrics()

	// Everything below resets to compiled defaults on every restart:
	// mode AUTO, relay OFF, configured thresholds.
	state := model.NewControlState(cfg.VoltageOnThreshold, cfg.VoltageOffThreshold)

	var bus powermeter.Bus
	if dev, err := i2c.Open(cfg.I2CBus, uint8(cfg.MeterAddr)); err != nil {
		log.Error().Err(err).Str("bus", cfg.I2CBus).Msg("Could not open I2C bus")
	} else {
		bus = dev
		defer dev.Close()
	}
	meter := powermeter.New(bus, time.Duration(cfg.SettleMillis)*time.Millisecond)

	temps := onewire.New(cfg.OneWireDir, cfg.OutdoorProbe, cfg.IndoorProbe)
	temps.CheckProbes()

	in, out := openChannel(cfg)

	emit := func(line string) { fmt.Fprintln(out, line) }
	ctrl := relay.New(state, meter, gpio.RelayActuator{Pin: cfg.RelayPin()}, emit)

	relayState := func() model.RelayState {
		if gpio.CurrentlyActive(cfg.RelayPin()) {
			return model.RelayOn
		}
		return model.RelayOff
	}
	disp := dispatcher.New(state, ctrl, meter, temps, relayState)

	ctx, cancel := context.WithCancel(context.Background())
	shutdown.Notify(cancel)

	loop.New(ctrl, disp, in, out, time.Duration(cfg.PollIntervalSeconds)*time.Second).Run(ctx)

	shutdown.LoadShed()
}

func openChannel(cfg config.Config) (io.Reader, io.Writer) {
	if cfg.SerialDevice == "" {
		return os.Stdin, os.Stdout
	}
	f, err := os.OpenFile(cfg.SerialDevice, os.O_RDWR, 0)
	if err != nil {
		log.Fatal().Err(err).Str("device", cfg.SerialDevice).Msg("Could not open serial device")
	}
	return f, f
}
