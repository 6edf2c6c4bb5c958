package powermeter

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/model"
)

// INA219 register map.
const (
	regConfig      uint8 = 0x00
	regBusVoltage  uint8 = 0x02
	regPower       uint8 = 0x03
	regCurrent     uint8 = 0x04
	regCalibration uint8 = 0x05
)

const (
	// 32V bus range, ±320mV shunt PGA, 12-bit conversions, continuous.
	configActive uint16 = 0x399F
	// Clearing the mode bits selects power-down.
	configPowerDown uint16 = configActive &^ 0x0007

	// 0.1 ohm shunt with a 100 µA/bit current LSB gives 3.2 A full
	// scale: cal = 0.04096 / (current_lsb * r_shunt).
	calibration uint16 = 4096

	currentLSBmA = 0.1
	powerLSBmW   = 2.0
	busVoltLSBV  = 0.004
)

type Bus interface {
	WriteWordBE(reg uint8, val uint16) error
	ReadWordBE(reg uint8) (uint16, error)
}

// Meter power-gates the INA219: the device sleeps between readings
// and is woken only for the duration of one sample.
type Meter struct {
	bus       Bus
	settle    time.Duration
	available bool
}

// New probes the meter, writes its calibration, and leaves it powered
// down. A probe failure is sticky: the meter reports unavailable for
// the rest of the run and is never retried.
func New(bus Bus, settle time.Duration) *Meter {
	m := &Meter{bus: bus, settle: settle}

	if bus == nil {
		log.Error().Msg("Power meter bus not present; solar readings disabled")
		return m
	}
	if err := m.initDevice(); err != nil {
		log.Error().Err(err).Msg("Power meter not found at boot; solar readings disabled")
		return m
	}

	m.available = true
	log.Info().Dur("settle", m.settle).Msg("Power meter initialized")
	return m
}

func (m *Meter) initDevice() error {
	if err := m.bus.WriteWordBE(regCalibration, calibration); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := m.bus.WriteWordBE(regConfig, configActive); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	got, err := m.bus.ReadWordBE(regConfig)
	if err != nil {
		return fmt.Errorf("read back config: %w", err)
	}
	if got != configActive {
		return fmt.Errorf("config readback mismatch: got 0x%04x", got)
	}
	return m.bus.WriteWordBE(regConfig, configPowerDown)
}

func (m *Meter) Available() bool {
	return m.available
}

// Acquire wakes the device and waits out the conversion settle time.
// No read is valid before the settle delay has elapsed.
func (m *Meter) Acquire() error {
	if !m.available {
		return model.ErrSensorUnavailable
	}
	if err := m.bus.WriteWordBE(regConfig, configActive); err != nil {
		return fmt.Errorf("wake power meter: %w", err)
	}
	time.Sleep(m.settle)
	return nil
}

// Release returns the device to its lowest-power mode. Safe on any
// exit path; a failed power-down is logged and swallowed.
func (m *Meter) Release() {
	if !m.available {
		return
	}
	if err := m.bus.WriteWordBE(regConfig, configPowerDown); err != nil {
		log.Warn().Err(err).Msg("Failed to power down meter")
	}
}

// Read converts the raw registers of an already-acquired meter.
func (m *Meter) Read() (model.PowerReading, error) {
	if !m.available {
		return model.PowerReading{}, model.ErrSensorUnavailable
	}

	rawV, err := m.bus.ReadWordBE(regBusVoltage)
	if err != nil {
		return model.PowerReading{}, fmt.Errorf("bus voltage: %w", err)
	}
	rawI, err := m.bus.ReadWordBE(regCurrent)
	if err != nil {
		return model.PowerReading{}, fmt.Errorf("current: %w", err)
	}
	rawP, err := m.bus.ReadWordBE(regPower)
	if err != nil {
		return model.PowerReading{}, fmt.Errorf("power: %w", err)
	}

	return model.PowerReading{
		VoltageV:  float64(rawV>>3) * busVoltLSBV,
		CurrentMA: float64(int16(rawI)) * currentLSBmA,
		PowerMW:   float64(rawP) * powerLSBmW,
	}, nil
}

// Sample is the gated read path: acquire, read, guaranteed release.
func (m *Meter) Sample() (model.PowerReading, error) {
	if err := m.Acquire(); err != nil {
		return model.PowerReading{}, err
	}
	defer m.Release()
	return m.Read()
}
