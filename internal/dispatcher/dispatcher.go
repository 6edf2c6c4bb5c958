// Package dispatcher turns one input line into one reply line.
package dispatcher

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/datadog"
	"github.com/solarshed/solar-controller/internal/model"
	"github.com/solarshed/solar-controller/internal/onewire"
	"github.com/solarshed/solar-controller/internal/relay"
	"github.com/solarshed/solar-controller/internal/telemetry"
)

type TempGateway interface {
	RequestConversion()
	Temperature(probe onewire.ProbeID) (float64, error)
}

type Dispatcher struct {
	state      *model.ControlState
	ctrl       *relay.Controller
	meter      relay.Meter
	temps      TempGateway
	relayState func() model.RelayState
}

func New(state *model.ControlState, ctrl *relay.Controller, meter relay.Meter, temps TempGateway, relayState func() model.RelayState) *Dispatcher {
	return &Dispatcher{
		state:      state,
		ctrl:       ctrl,
		meter:      meter,
		temps:      temps,
		relayState: relayState,
	}
}

type command struct {
	run      func(d *Dispatcher, arg string) string
	wantsArg bool
}

var commands = map[string]command{
	"o":            {run: (*Dispatcher).outdoorTemp},
	"i":            {run: (*Dispatcher).indoorTemp},
	"t":            {run: (*Dispatcher).bothTemps},
	"s":            {run: (*Dispatcher).solarPower},
	"r":            {run: (*Dispatcher).relayStatus},
	"r1":           {run: (*Dispatcher).relayForceOn},
	"r0":           {run: (*Dispatcher).relayForceOff},
	"auto":         {run: (*Dispatcher).autoMode},
	"manual":       {run: (*Dispatcher).manualMode},
	"set_on_V":     {run: (*Dispatcher).setOnThreshold, wantsArg: true},
	"set_off_V":    {run: (*Dispatcher).setOffThreshold, wantsArg: true},
	"get_settings": {run: (*Dispatcher).settings},
}

// Dispatch executes exactly one command and returns exactly one reply
// line, empty only for a blank input line. Verbs are matched exactly;
// nothing is coerced.
func (d *Dispatcher) Dispatch(line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return ""
	}

	verb := fields[0]
	cmd, ok := commands[verb]
	if !ok {
		log.Debug().Str("verb", verb).Msg("Unrecognized command")
		datadog.Count("commands", 1, "verb:unknown")
		return telemetry.ErrorReply("invalid command")
	}
	datadog.Count("commands", 1, "verb:"+verb)

	if cmd.wantsArg {
		if len(fields) != 2 {
			return telemetry.ErrorReply("invalid value for " + verb)
		}
		return cmd.run(d, fields[1])
	}
	if len(fields) != 1 {
		return telemetry.ErrorReply("invalid command")
	}
	return cmd.run(d, "")
}

func (d *Dispatcher) outdoorTemp(string) string {
	v, err := d.temps.Temperature(onewire.ProbeOutdoor)
	if err == nil {
		datadog.Gauge("temperature.outdoor", v, "component:sensor")
	}
	return telemetry.TempReply("o_temp", v, err)
}

func (d *Dispatcher) indoorTemp(string) string {
	v, err := d.temps.Temperature(onewire.ProbeIndoor)
	if err == nil {
		datadog.Gauge("temperature.indoor", v, "component:sensor")
	}
	return telemetry.TempReply("i_temp", v, err)
}

func (d *Dispatcher) bothTemps(string) string {
	// One conversion cycle serves both probes.
	d.temps.RequestConversion()
	outdoor, outdoorErr := d.temps.Temperature(onewire.ProbeOutdoor)
	indoor, indoorErr := d.temps.Temperature(onewire.ProbeIndoor)
	return telemetry.BothTempsReply(outdoor, outdoorErr, indoor, indoorErr)
}

func (d *Dispatcher) solarPower(string) string {
	reading, err := d.meter.Sample()
	if err == nil {
		datadog.Gauge("solar.voltage", reading.VoltageV, "component:sensor")
		datadog.Gauge("solar.current", reading.CurrentMA, "component:sensor")
		datadog.Gauge("solar.power", reading.PowerMW, "component:sensor")
	}
	return telemetry.PowerReply(reading, err)
}

func (d *Dispatcher) relayStatus(string) string {
	return telemetry.RelayReply(d.relayState())
}

func (d *Dispatcher) relayForceOn(string) string {
	d.ctrl.ManualSet(model.RelayOn)
	return telemetry.RelayReply(d.relayState())
}

func (d *Dispatcher) relayForceOff(string) string {
	d.ctrl.ManualSet(model.RelayOff)
	return telemetry.RelayReply(d.relayState())
}

func (d *Dispatcher) autoMode(string) string {
	d.ctrl.SetMode(model.ModeAuto)
	return telemetry.ModeReply(model.ModeAuto)
}

func (d *Dispatcher) manualMode(string) string {
	d.ctrl.SetMode(model.ModeManual)
	return telemetry.ModeReply(model.ModeManual)
}

func (d *Dispatcher) setOnThreshold(arg string) string {
	return d.setThreshold(relay.ThresholdOn, "set_on_V", arg)
}

func (d *Dispatcher) setOffThreshold(arg string) string {
	return d.setThreshold(relay.ThresholdOff, "set_off_V", arg)
}

func (d *Dispatcher) setThreshold(kind relay.ThresholdKind, verb, arg string) string {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return telemetry.ErrorReply("invalid value for " + verb)
	}
	if err := d.ctrl.SetThreshold(kind, v); err != nil {
		return telemetry.ErrorReply("invalid value for " + verb)
	}
	log.Info().Str("command", verb).Float64("value", v).Msg("Threshold updated")
	return telemetry.ThresholdReply(verb, v)
}

func (d *Dispatcher) settings(string) string {
	return telemetry.SettingsReply(d.state)
}
