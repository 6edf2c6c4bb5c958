// Package telemetry renders readings, replies and relay events into
// the wire format: one JSON object per line, floats fixed to two
// decimals, the string "error" standing in for a failed reading.
package telemetry

import (
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/model"
)

// Float marshals with two decimal places, matching the precision the
// sensors actually deliver.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', 2, 64)), nil
}

var errorValue = json.RawMessage(`"error"`)

func value(v float64, err error) json.RawMessage {
	if err != nil {
		return errorValue
	}
	b, _ := Float(v).MarshalJSON()
	return json.RawMessage(b)
}

func render(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode reply")
		return `{"status":"error","message":"internal encoding failure"}`
	}
	return string(b)
}

func TempReply(sensor string, v float64, err error) string {
	return render(struct {
		Sensor string          `json:"sensor"`
		Value  json.RawMessage `json:"value"`
	}{sensor, value(v, err)})
}

func BothTempsReply(outdoor float64, outdoorErr error, indoor float64, indoorErr error) string {
	return render(struct {
		Outdoor json.RawMessage `json:"o_temp"`
		Indoor  json.RawMessage `json:"i_temp"`
	}{value(outdoor, outdoorErr), value(indoor, indoorErr)})
}

func PowerReply(r model.PowerReading, err error) string {
	if err != nil {
		return render(struct {
			Sensor string `json:"sensor"`
			Status string `json:"status"`
		}{"solar_pwr", "error"})
	}
	return render(struct {
		Sensor    string `json:"sensor"`
		VoltageV  Float  `json:"voltage_V"`
		CurrentMA Float  `json:"current_mA"`
		PowerMW   Float  `json:"power_mW"`
	}{"solar_pwr", Float(r.VoltageV), Float(r.CurrentMA), Float(r.PowerMW)})
}

func RelayReply(state model.RelayState) string {
	return render(struct {
		Sensor string `json:"sensor"`
		Value  string `json:"value"`
	}{"relay", string(state)})
}

func ModeReply(mode model.ControlMode) string {
	return render(struct {
		Mode   string `json:"mode"`
		Status string `json:"status"`
	}{string(mode), "enabled"})
}

func ThresholdReply(verb string, v float64) string {
	return render(struct {
		Command string `json:"command"`
		Value   Float  `json:"value"`
	}{verb, Float(v)})
}

func SettingsReply(st *model.ControlState) string {
	type settings struct {
		Mode         string `json:"mode"`
		OnThreshold  Float  `json:"voltage_on_threshold"`
		OffThreshold Float  `json:"voltage_off_threshold"`
	}
	return render(struct {
		RelaySettings settings `json:"relay_settings"`
	}{settings{string(st.Mode), Float(st.OnThreshold), Float(st.OffThreshold)}})
}

func ErrorReply(msg string) string {
	return render(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{"error", msg})
}

// RelayEvent is the asynchronous line emitted when automatic control
// switches the relay.
func RelayEvent(kind string, voltage float64) string {
	return render(struct {
		RelayEvent string `json:"relay_event"`
		Voltage    Float  `json:"voltage"`
	}{kind, Float(voltage)})
}
