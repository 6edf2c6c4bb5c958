package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solarshed/solar-controller/internal/model"
)

type fakePinctrl struct {
	setCalls [][]string
	levels   map[int]bool
	readErr  error
}

func (f *fakePinctrl) install(t *testing.T) {
	t.Helper()
	origSet, origRead := setPin, readLevel
	setPin = func(pin int, opts ...string) error {
		f.setCalls = append(f.setCalls, append([]string{}, opts...))
		return nil
	}
	readLevel = func(pin int) (bool, error) {
		if f.readErr != nil {
			return false, f.readErr
		}
		return f.levels[pin], nil
	}
	t.Cleanup(func() {
		setPin, readLevel = origSet, origRead
		SetSafeMode(false)
	})
}

func TestActivateDrivesConfiguredLevel(t *testing.T) {
	f := &fakePinctrl{}
	f.install(t)

	Activate(model.GPIOPin{Number: 17, ActiveHigh: true})
	Activate(model.GPIOPin{Number: 17, ActiveHigh: false})
	Deactivate(model.GPIOPin{Number: 17, ActiveHigh: true})
	Deactivate(model.GPIOPin{Number: 17, ActiveHigh: false})

	assert.Equal(t, [][]string{
		{"op", "pn", "dh"},
		{"op", "pn", "dl"},
		{"op", "pn", "dl"},
		{"op", "pn", "dh"},
	}, f.setCalls)
}

func TestSafeModeDisablesWrites(t *testing.T) {
	f := &fakePinctrl{}
	f.install(t)
	SetSafeMode(true)

	Activate(model.GPIOPin{Number: 17, ActiveHigh: true})
	Deactivate(model.GPIOPin{Number: 17, ActiveHigh: true})

	assert.Empty(t, f.setCalls)
}

func TestCurrentlyActiveHonorsPolarity(t *testing.T) {
	f := &fakePinctrl{levels: map[int]bool{17: true}}
	f.install(t)

	assert.True(t, CurrentlyActive(model.GPIOPin{Number: 17, ActiveHigh: true}))
	assert.False(t, CurrentlyActive(model.GPIOPin{Number: 17, ActiveHigh: false}))
	assert.False(t, CurrentlyActive(model.GPIOPin{Number: 23, ActiveHigh: true}))
}

func TestValidateRelayPin(t *testing.T) {
	f := &fakePinctrl{levels: map[int]bool{17: false}}
	f.install(t)

	assert.NoError(t, ValidateRelayPin(model.GPIOPin{Number: 17, ActiveHigh: true}))

	f.levels[17] = true
	assert.Error(t, ValidateRelayPin(model.GPIOPin{Number: 17, ActiveHigh: true}))

	f.readErr = errors.New("pinctrl missing")
	assert.Error(t, ValidateRelayPin(model.GPIOPin{Number: 17, ActiveHigh: true}))
}

func TestRelayActuator(t *testing.T) {
	f := &fakePinctrl{}
	f.install(t)

	a := RelayActuator{Pin: model.GPIOPin{Number: 17, ActiveHigh: true}}
	a.On()
	a.Off()

	assert.Equal(t, [][]string{
		{"op", "pn", "dh"},
		{"op", "pn", "dl"},
	}, f.setCalls)
}
