package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solarshed/solar-controller/internal/model"
	"github.com/solarshed/solar-controller/internal/telemetry"
)

func TestTempReplyFormatsTwoDecimals(t *testing.T) {
	assert.Equal(t, `{"sensor":"o_temp","value":18.50}`, telemetry.TempReply("o_temp", 18.5, nil))
	assert.Equal(t, `{"sensor":"i_temp","value":-3.13}`, telemetry.TempReply("i_temp", -3.134, nil))
}

func TestTempReplyErrorSentinel(t *testing.T) {
	assert.Equal(t,
		`{"sensor":"o_temp","value":"error"}`,
		telemetry.TempReply("o_temp", 0, model.ErrProbeDisconnected))
}

func TestBothTempsReplyIndependentFaults(t *testing.T) {
	assert.Equal(t,
		`{"o_temp":"error","i_temp":21.00}`,
		telemetry.BothTempsReply(0, model.ErrProbeDisconnected, 21, nil))
}

func TestPowerReply(t *testing.T) {
	r := model.PowerReading{VoltageV: 13.04, CurrentMA: 250.5, PowerMW: 3266.52}
	assert.Equal(t,
		`{"sensor":"solar_pwr","voltage_V":13.04,"current_mA":250.50,"power_mW":3266.52}`,
		telemetry.PowerReply(r, nil))
	assert.Equal(t,
		`{"sensor":"solar_pwr","status":"error"}`,
		telemetry.PowerReply(model.PowerReading{}, model.ErrSensorUnavailable))
}

func TestRelayAndModeReplies(t *testing.T) {
	assert.Equal(t, `{"sensor":"relay","value":"ON"}`, telemetry.RelayReply(model.RelayOn))
	assert.Equal(t, `{"mode":"manual","status":"enabled"}`, telemetry.ModeReply(model.ModeManual))
}

func TestThresholdAndSettingsReplies(t *testing.T) {
	assert.Equal(t, `{"command":"set_on_V","value":13.00}`, telemetry.ThresholdReply("set_on_V", 13))

	st := model.NewControlState(12.6, 12.4)
	assert.Equal(t,
		`{"relay_settings":{"mode":"auto","voltage_on_threshold":12.60,"voltage_off_threshold":12.40}}`,
		telemetry.SettingsReply(st))
}

func TestRelayEvent(t *testing.T) {
	assert.Equal(t, `{"relay_event":"auto_on","voltage":12.61}`, telemetry.RelayEvent("auto_on", 12.61))
	assert.Equal(t, `{"relay_event":"auto_off","voltage":12.40}`, telemetry.RelayEvent("auto_off", 12.4))
}
