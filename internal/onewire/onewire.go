package onewire

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/solarshed/solar-controller/internal/model"
)

type ProbeID int

const (
	ProbeOutdoor ProbeID = iota
	ProbeIndoor
)

func (p ProbeID) String() string {
	if p == ProbeIndoor {
		return "indoor"
	}
	return "outdoor"
}

// The DS18B20 reports -127°C when the wire to the die is gone.
const disconnectedMilliC = -127000

// Gateway wraps the two fixed-identity DS18B20 probes on the one-wire
// bus. Probe faults are transient and local: a bad outdoor read says
// nothing about the indoor probe.
type Gateway struct {
	dir     string
	outdoor string
	indoor  string
}

func New(dir, outdoorID, indoorID string) *Gateway {
	return &Gateway{dir: dir, outdoor: outdoorID, indoor: indoorID}
}

// CheckProbes logs which probes are visible on the bus at boot.
// Missing probes are not fatal; every poll re-evaluates them.
func (g *Gateway) CheckProbes() {
	for _, id := range []string{g.outdoor, g.indoor} {
		if _, err := os.Stat(filepath.Join(g.dir, id)); err != nil {
			log.Warn().Str("probe", id).Msg("Temperature probe not found on one-wire bus")
		}
	}
}

// RequestConversion triggers one simultaneous conversion cycle for
// every probe on the bus, so a paired read does not convert twice.
// Buses without bulk-read support fall back to converting per read.
func (g *Gateway) RequestConversion() {
	trigger := filepath.Join(g.dir, "w1_bus_master1", "therm_bulk_read")
	if err := os.WriteFile(trigger, []byte("trigger"), 0644); err != nil {
		log.Debug().Err(err).Msg("Bulk conversion trigger unsupported; probes convert individually")
	}
}

// Temperature reads one probe in °C.
func (g *Gateway) Temperature(probe ProbeID) (float64, error) {
	id := g.outdoor
	if probe == ProbeIndoor {
		id = g.indoor
	}

	milliC, err := readSlave(filepath.Join(g.dir, id, "w1_slave"))
	if err != nil {
		log.Warn().Err(err).Str("probe", probe.String()).Msg("Temperature read failed")
		return 0, model.ErrProbeDisconnected
	}
	return float64(milliC) / 1000.0, nil
}

func readSlave(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("malformed sensor data in %s", path)
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("CRC failure reported in %s", path)
	}

	parts := strings.Split(lines[1], "t=")
	if len(parts) != 2 {
		return 0, fmt.Errorf("temperature value missing in %s", path)
	}

	milliC, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("could not parse temperature: %w", err)
	}
	if milliC == disconnectedMilliC {
		return 0, fmt.Errorf("probe reports disconnected sentinel")
	}
	return milliC, nil
}
