package powermeter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarshed/solar-controller/internal/model"
	"github.com/solarshed/solar-controller/internal/powermeter"
)

const (
	regConfig      uint8 = 0x00
	regBusVoltage  uint8 = 0x02
	regPower       uint8 = 0x03
	regCurrent     uint8 = 0x04
	regCalibration uint8 = 0x05

	configActive    uint16 = 0x399F
	configPowerDown uint16 = 0x3998
)

type write struct {
	reg uint8
	val uint16
}

type fakeBus struct {
	regs     map[uint8]uint16
	writes   []write
	readErr  map[uint8]error
	writeErr map[uint8]error
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:     map[uint8]uint16{},
		readErr:  map[uint8]error{},
		writeErr: map[uint8]error{},
	}
}

func (b *fakeBus) WriteWordBE(reg uint8, val uint16) error {
	if err := b.writeErr[reg]; err != nil {
		return err
	}
	b.writes = append(b.writes, write{reg, val})
	b.regs[reg] = val
	return nil
}

func (b *fakeBus) ReadWordBE(reg uint8) (uint16, error) {
	if err := b.readErr[reg]; err != nil {
		return 0, err
	}
	return b.regs[reg], nil
}

func (b *fakeBus) lastWrite() write {
	return b.writes[len(b.writes)-1]
}

func TestNewCalibratesAndPowersDown(t *testing.T) {
	bus := newFakeBus()

	m := powermeter.New(bus, 0)

	assert.True(t, m.Available())
	require.Len(t, bus.writes, 3)
	assert.Equal(t, write{regCalibration, 4096}, bus.writes[0])
	assert.Equal(t, write{regConfig, configActive}, bus.writes[1])
	assert.Equal(t, write{regConfig, configPowerDown}, bus.writes[2], "meter must sleep between readings")
}

func TestNewWithoutBusIsStickyUnavailable(t *testing.T) {
	m := powermeter.New(nil, 0)

	assert.False(t, m.Available())
	for i := 0; i < 3; i++ {
		_, err := m.Sample()
		assert.ErrorIs(t, err, model.ErrSensorUnavailable)
	}
}

func TestBootProbeFailureIsSticky(t *testing.T) {
	bus := newFakeBus()
	bus.writeErr[regCalibration] = errors.New("no ack")

	m := powermeter.New(bus, 0)

	assert.False(t, m.Available())
	_, err := m.Sample()
	assert.ErrorIs(t, err, model.ErrSensorUnavailable)
}

func TestSampleGatesAndScales(t *testing.T) {
	bus := newFakeBus()
	m := powermeter.New(bus, 0)
	bus.writes = nil

	bus.regs[regBusVoltage] = 3150 << 3 // 12.6 V at 4 mV/LSB
	bus.regs[regCurrent] = 1234         // 123.4 mA at 0.1 mA/LSB
	bus.regs[regPower] = 800            // 1600 mW at 2 mW/LSB

	r, err := m.Sample()
	require.NoError(t, err)
	assert.InDelta(t, 12.6, r.VoltageV, 0.0001)
	assert.InDelta(t, 123.4, r.CurrentMA, 0.0001)
	assert.InDelta(t, 1600.0, r.PowerMW, 0.0001)

	require.Len(t, bus.writes, 2)
	assert.Equal(t, write{regConfig, configActive}, bus.writes[0], "sample must wake the device first")
	assert.Equal(t, write{regConfig, configPowerDown}, bus.writes[1], "sample must power the device back down")
}

func TestNegativeCurrentReads(t *testing.T) {
	bus := newFakeBus()
	m := powermeter.New(bus, 0)

	bus.regs[regCurrent] = 0xFFFF // -1 raw, battery discharging

	r, err := m.Sample()
	require.NoError(t, err)
	assert.InDelta(t, -0.1, r.CurrentMA, 0.0001)
}

func TestReleaseRunsOnReadFailure(t *testing.T) {
	bus := newFakeBus()
	m := powermeter.New(bus, 0)
	bus.readErr[regBusVoltage] = errors.New("bus glitch")
	bus.writes = nil

	_, err := m.Sample()

	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrSensorUnavailable, "a transient read fault is not the boot-absence sentinel")
	require.NotEmpty(t, bus.writes)
	assert.Equal(t, write{regConfig, configPowerDown}, bus.lastWrite(), "failed reads must still power down")
}
