// Package relay holds the hysteresis state machine that drives the
// load-disconnect relay from the solar bus voltage.
package relay

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/datadog"
	"github.com/solarshed/solar-controller/internal/model"
	"github.com/solarshed/solar-controller/internal/telemetry"
)

// Meter is the gated power sensor. Sample wakes the device, reads,
// and always powers it back down.
type Meter interface {
	Available() bool
	Sample() (model.PowerReading, error)
}

// Actuator drives the physical relay pin.
type Actuator interface {
	On()
	Off()
}

type ThresholdKind int

const (
	ThresholdOn ThresholdKind = iota
	ThresholdOff
)

type Controller struct {
	state    *model.ControlState
	meter    Meter
	actuator Actuator
	emit     func(line string)
}

func New(state *model.ControlState, meter Meter, actuator Actuator, emit func(line string)) *Controller {
	return &Controller{
		state:    state,
		meter:    meter,
		actuator: actuator,
		emit:     emit,
	}
}

// Tick runs one autonomous control cycle. In MANUAL mode, or with the
// meter gone since boot, it does nothing. Otherwise it takes one gated
// voltage sample and applies the hysteresis rule:
//
//	OFF and v >= on-threshold  -> ON  (auto_on event)
//	ON  and v <= off-threshold -> OFF (auto_off event)
//
// Anything between the thresholds is the dead band: no transition, so
// the relay cannot chatter around a single setpoint. An inverted band
// (on <= off) is a configuration hazard the controller tolerates; it
// just transitions on every sample that satisfies a rule.
func (c *Controller) Tick() {
	if c.state.Mode != model.ModeAuto {
		return
	}
	if !c.meter.Available() {
		return
	}

	reading, err := c.meter.Sample()
	if err != nil {
		log.Warn().Err(err).Msg("Skipping control cycle: voltage sample failed")
		return
	}

	v := reading.VoltageV
	datadog.Gauge("solar.voltage", v, "component:controller")

	switch {
	case c.state.Relay == model.RelayOff && v >= c.state.OnThreshold:
		c.actuator.On()
		c.state.Relay = model.RelayOn
		log.Info().Float64("voltage", v).Float64("threshold", c.state.OnThreshold).Msg("Auto relay ON")
		datadog.Count("relay.transitions", 1, "direction:on", "trigger:auto")
		c.emit(telemetry.RelayEvent("auto_on", v))

	case c.state.Relay == model.RelayOn && v <= c.state.OffThreshold:
		c.actuator.Off()
		c.state.Relay = model.RelayOff
		log.Info().Float64("voltage", v).Float64("threshold", c.state.OffThreshold).Msg("Auto relay OFF")
		datadog.Count("relay.transitions", 1, "direction:off", "trigger:auto")
		c.emit(telemetry.RelayEvent("auto_off", v))
	}
}

// SetMode switches between automatic and manual control. No
// validation: any mode change is legal at any time.
func (c *Controller) SetMode(mode model.ControlMode) {
	c.state.Mode = mode
	log.Info().Str("mode", string(mode)).Msg("Control mode changed")
}

// ManualSet forces the relay and suspends automatic control until a
// mode command re-enables it.
func (c *Controller) ManualSet(target model.RelayState) {
	if target == model.RelayOn {
		c.actuator.On()
	} else {
		c.actuator.Off()
	}
	c.state.Relay = target
	c.state.Mode = model.ModeManual
	log.Info().Str("relay", string(target)).Msg("Manual relay override; mode forced to manual")
	datadog.Count("relay.transitions", 1, "direction:"+string(target), "trigger:manual")
}

// SetThreshold stores a validated threshold. Rejected values leave the
// prior threshold untouched and never change the mode.
func (c *Controller) SetThreshold(kind ThresholdKind, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return model.ErrInvalidValue
	}
	if kind == ThresholdOn {
		c.state.OnThreshold = v
	} else {
		c.state.OffThreshold = v
	}
	if c.state.OnThreshold <= c.state.OffThreshold {
		log.Warn().
			Float64("on", c.state.OnThreshold).
			Float64("off", c.state.OffThreshold).
			Msg("Dead band collapsed or inverted; relay may chatter")
	}
	return nil
}
