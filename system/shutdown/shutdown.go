package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/env"
	"github.com/solarshed/solar-controller/internal/gpio"
)

// Notify cancels the given context on SIGINT or SIGTERM.
func Notify(cancel context.CancelFunc) {
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sig := <-ch
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()
}

// LoadShed drops the load relay on exit when configured to. With the
// controller gone nothing watches the battery voltage, so some
// installs prefer to disconnect rather than trust the last state.
func LoadShed() {
	if !env.Cfg.RelayOffOnExit {
		return
	}
	gpio.Deactivate(env.Cfg.RelayPin())
	log.Info().Msg("Load relay deactivated on exit")
}
