package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solarshed/solar-controller/internal/model"
)

type Config struct {
	ConfigFile string
	LogFile    string
	LogLevel   zerolog.Level
	SafeMode   bool

	// Command channel. Empty means stdin/stdout; otherwise a tty
	// device path opened read/write.
	SerialDevice string `json:"serial_device"`

	// Load relay
	RelayPinNumber  int  `json:"relay_pin"`
	RelayActiveHigh bool `json:"relay_active_high"`
	RelayOffOnExit  bool `json:"relay_off_on_exit"`

	// INA219 power meter
	I2CBus       string `json:"i2c_bus"`
	MeterAddr    int    `json:"meter_addr"`
	SettleMillis int    `json:"settle_ms"`

	// DS18B20 probes
	OneWireDir   string `json:"onewire_dir"`
	OutdoorProbe string `json:"outdoor_probe"`
	IndoorProbe  string `json:"indoor_probe"`

	// Relay control defaults
	VoltageOnThreshold  float64 `json:"voltage_on_threshold"`
	VoltageOffThreshold float64 `json:"voltage_off_threshold"`
	PollIntervalSeconds int     `json:"poll_interval_seconds"`

	// Metrics
	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`
}

// Defaults returns the compiled-in configuration. Mode, relay state
// and thresholds always reset to these on restart; nothing persists.
func Defaults() Config {
	return Config{
		LogLevel:            zerolog.InfoLevel,
		RelayPinNumber:      17,
		RelayActiveHigh:     true,
		I2CBus:              "/dev/i2c-1",
		MeterAddr:           0x40,
		SettleMillis:        50,
		OneWireDir:          "/sys/bus/w1/devices",
		OutdoorProbe:        "28-00098ac0c7",
		IndoorProbe:         "28-0007bb83f5",
		VoltageOnThreshold:  12.6,
		VoltageOffThreshold: 12.4,
		PollIntervalSeconds: 1,
		DDNamespace:         "solar_controller.",
	}
}

func Load() Config {
	cfg := Defaults()
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "", "Path to controller config file (optional)")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Log file path (empty logs to stderr)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.SafeMode, "safe-mode", false, "Disable all GPIO writes system-wide")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	if cfg.ConfigFile != "" {
		file, err := os.Open(cfg.ConfigFile)
		if err != nil {
			panic("Failed to load config file: " + err.Error())
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			panic("Failed to parse config file: " + err.Error())
		}
	}

	cfg.Validate()
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) Validate() {
	var problems []string

	if cfg.RelayPinNumber <= 0 {
		problems = append(problems, "relay_pin must be a positive GPIO number")
	}
	if cfg.MeterAddr <= 0 || cfg.MeterAddr > 0x7f {
		problems = append(problems, "meter_addr must be a 7-bit I2C address")
	}
	if cfg.SettleMillis < 0 {
		problems = append(problems, "settle_ms must not be negative")
	}
	if cfg.OutdoorProbe == "" || cfg.IndoorProbe == "" {
		problems = append(problems, "outdoor_probe and indoor_probe are required")
	}
	if cfg.OutdoorProbe == cfg.IndoorProbe {
		problems = append(problems, "outdoor_probe and indoor_probe must differ")
	}
	if cfg.VoltageOnThreshold <= 0 || cfg.VoltageOffThreshold <= 0 {
		problems = append(problems, "voltage thresholds must be positive")
	}
	if cfg.PollIntervalSeconds <= 0 {
		problems = append(problems, "poll_interval_seconds must be positive")
	}

	if len(problems) > 0 {
		panic("Invalid configuration: " + strings.Join(problems, ", "))
	}
}

func (cfg *Config) RelayPin() model.GPIOPin {
	return model.GPIOPin{Number: cfg.RelayPinNumber, ActiveHigh: cfg.RelayActiveHigh}
}
