package gpio

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/model"
	"github.com/solarshed/solar-controller/internal/pinctrl"
)

var safeMode bool

// Overridable for tests.
var (
	setPin    = pinctrl.SetPin
	readLevel = pinctrl.ReadLevel
)

func SetSafeMode(enabled bool) {
	safeMode = enabled
}

// Activate drives the pin to its active level. Pin errors are logged,
// never fatal; the relay simply stays where it was.
var Activate = func(pin model.GPIOPin) {
	if safeMode {
		return
	}

	drive := "dh"
	if !pin.ActiveHigh {
		drive = "dl"
	}
	if err := setPin(pin.Number, "op", "pn", drive); err != nil {
		log.Error().Err(err).Int("pin", pin.Number).Msg("Failed to activate pin")
	}
}

var Deactivate = func(pin model.GPIOPin) {
	if safeMode {
		return
	}

	drive := "dl"
	if !pin.ActiveHigh {
		drive = "dh"
	}
	if err := setPin(pin.Number, "op", "pn", drive); err != nil {
		log.Error().Err(err).Int("pin", pin.Number).Msg("Failed to deactivate pin")
	}
}

var CurrentlyActive = func(pin model.GPIOPin) bool {
	level, err := readLevel(pin.Number)
	if err != nil {
		log.Error().Err(err).Int("pin", pin.Number).Msg("Failed to read pin level")
		return false
	}
	return pin.ActiveHigh == level
}

// ValidateRelayPin refuses startup when the relay pin already reads
// active: boot state is relay OFF, and a driven pin at startup means
// something else owns it.
func ValidateRelayPin(pin model.GPIOPin) error {
	level, err := readLevel(pin.Number)
	if err != nil {
		return fmt.Errorf("failed to read relay pin %d: %w", pin.Number, err)
	}
	if pin.ActiveHigh == level {
		return fmt.Errorf("relay pin %d reads active at startup", pin.Number)
	}
	return nil
}

// RelayActuator adapts the relay pin to the controller's actuator
// interface.
type RelayActuator struct {
	Pin model.GPIOPin
}

func (r RelayActuator) On()  { Activate(r.Pin) }
func (r RelayActuator) Off() { Deactivate(r.Pin) }
