package model

import "errors"

type RelayState string

const (
	RelayOn  RelayState = "ON"
	RelayOff RelayState = "OFF"
)

type ControlMode string

const (
	ModeAuto   ControlMode = "auto"
	ModeManual ControlMode = "manual"
)

// ControlState is the single shared aggregate for relay control. It is
// owned by the control loop and handed by pointer to the relay
// controller and the command dispatcher; nothing keeps a private copy.
type ControlState struct {
	Mode         ControlMode
	Relay        RelayState
	OnThreshold  float64
	OffThreshold float64
}

func NewControlState(onThreshold, offThreshold float64) *ControlState {
	return &ControlState{
		Mode:         ModeAuto,
		Relay:        RelayOff,
		OnThreshold:  onThreshold,
		OffThreshold: offThreshold,
	}
}

// PowerReading is one sample from the solar power meter.
type PowerReading struct {
	VoltageV  float64
	CurrentMA float64
	PowerMW   float64
}

type GPIOPin struct {
	Number     int
	ActiveHigh bool
}

var (
	// ErrSensorUnavailable means the power meter was not found at boot.
	// Sticky for the process lifetime; reads are never retried.
	ErrSensorUnavailable = errors.New("power sensor unavailable")

	// ErrProbeDisconnected is a transient per-probe wiring fault,
	// re-evaluated on every poll.
	ErrProbeDisconnected = errors.New("temperature probe disconnected")

	ErrInvalidValue        = errors.New("invalid value")
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)
