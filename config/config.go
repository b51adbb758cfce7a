package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/sensor"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

const DefaultLogLevel = slog.LevelInfo

const (
	DEFAULT_HYSTERESIS                = 3.0
	DEFAULT_MIN_OFF_SECONDS           = 300
	DEFAULT_MIN_ON_SECONDS            = 600
	DEFAULT_MAX_ON_SECONDS            = 7200
	DEFAULT_STALE_INTERVAL_SECONDS    = 300
	DEFAULT_DECISION_INTERVAL_SECONDS = 60
	DEFAULT_DISPATCH_INTERVAL_SECONDS = 60
	DEFAULT_HISTORY_CAPACITY          = 1440
	DEFAULT_MAX_HARDWARE_FAULTS       = 5
	DEFAULT_SENSOR_TIMEOUT_SECONDS    = 5
	DEFAULT_MAX_CLOCK_SKEW_SECONDS    = 60
)

type (
	Config struct {
		Devices              []sensor.DeviceConfig `json:"devices"`
		SensorTimeoutSeconds int                   `json:"sensor_timeout_seconds"`
		OriginPatterns       []string              `json:"origin_patterns"`
		Thermostat           ThermostatConfig      `json:"thermostat"`
	}

	// ThermostatConfig holds the control loop tuning. Zero values take the defaults.
	ThermostatConfig struct {
		Hysteresis              float64 `json:"hysteresis"`
		MinOnSeconds            int     `json:"min_on_seconds"`
		MinOffSeconds           int     `json:"min_off_seconds"`
		MaxOnSeconds            int     `json:"max_on_seconds"`
		StaleIntervalSeconds    int     `json:"stale_interval_seconds"`
		DecisionIntervalSeconds int     `json:"decision_interval_seconds"`
		DispatchIntervalSeconds int     `json:"dispatch_interval_seconds"`
		HistoryCapacity         int     `json:"history_capacity"`
		MaxHardwareFaults       int     `json:"max_hardware_faults"`
		MaxClockSkewSeconds     int     `json:"max_clock_skew_seconds"`
		Fahrenheit              *bool   `json:"fahrenheit,omitempty"`
		InitialMode             string  `json:"initial_mode"`
	}
)

func LoadConfigSettings(filename string) (Config, error) {
	var config Config
	file, err := os.Open(filename)
	if err != nil {
		return config, err
	}

	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return config, err
	}

	err = json.Unmarshal(bytes, &config)
	if err != nil {
		return config, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// DefaultConfig is used when no configuration file exists.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.SensorTimeoutSeconds == 0 {
		c.SensorTimeoutSeconds = DEFAULT_SENSOR_TIMEOUT_SECONDS
	}

	t := &c.Thermostat
	if t.Hysteresis == 0 {
		t.Hysteresis = DEFAULT_HYSTERESIS
	}
	if t.MinOnSeconds == 0 {
		t.MinOnSeconds = DEFAULT_MIN_ON_SECONDS
	}
	if t.MinOffSeconds == 0 {
		t.MinOffSeconds = DEFAULT_MIN_OFF_SECONDS
	}
	if t.MaxOnSeconds == 0 {
		t.MaxOnSeconds = DEFAULT_MAX_ON_SECONDS
	}
	if t.StaleIntervalSeconds == 0 {
		t.StaleIntervalSeconds = DEFAULT_STALE_INTERVAL_SECONDS
	}
	if t.DecisionIntervalSeconds == 0 {
		t.DecisionIntervalSeconds = DEFAULT_DECISION_INTERVAL_SECONDS
	}
	if t.DispatchIntervalSeconds == 0 {
		t.DispatchIntervalSeconds = DEFAULT_DISPATCH_INTERVAL_SECONDS
	}
	if t.HistoryCapacity == 0 {
		t.HistoryCapacity = DEFAULT_HISTORY_CAPACITY
	}
	if t.MaxHardwareFaults == 0 {
		t.MaxHardwareFaults = DEFAULT_MAX_HARDWARE_FAULTS
	}
	if t.MaxClockSkewSeconds == 0 {
		t.MaxClockSkewSeconds = DEFAULT_MAX_CLOCK_SKEW_SECONDS
	}
	if t.Fahrenheit == nil {
		f := true
		t.Fahrenheit = &f
	}
	if t.InitialMode == "" {
		t.InitialMode = string(thermostat.MODE_AUTO)
	}
}

func (c Config) Validate() error {
	t := c.Thermostat

	var errs []error
	if t.Hysteresis <= 0 {
		errs = append(errs, fmt.Errorf("hysteresis must be positive, got %v", t.Hysteresis))
	}
	if t.MinOnSeconds < 0 || t.MinOffSeconds < 0 {
		errs = append(errs, errors.New("minimum on/off times cannot be negative"))
	}
	if t.MaxOnSeconds < t.MinOnSeconds {
		errs = append(errs, fmt.Errorf("max_on_seconds %d is below min_on_seconds %d", t.MaxOnSeconds, t.MinOnSeconds))
	}
	if t.StaleIntervalSeconds < 0 || t.DecisionIntervalSeconds < 0 || t.DispatchIntervalSeconds < 0 {
		errs = append(errs, errors.New("intervals cannot be negative"))
	}
	if t.MaxClockSkewSeconds < 0 {
		errs = append(errs, errors.New("max_clock_skew_seconds cannot be negative"))
	}
	if t.HistoryCapacity < 0 {
		errs = append(errs, errors.New("history_capacity cannot be negative"))
	}
	if !thermostat.Mode(t.InitialMode).IsValid() {
		errs = append(errs, fmt.Errorf("initial_mode %q: %w", t.InitialMode, thermostat.ErrInvalidMode))
	}

	return errors.Join(errs...)
}

func (t ThermostatConfig) ToSettings() thermostat.Settings {
	return thermostat.Settings{
		Hysteresis:        t.Hysteresis,
		MinOnTime:         time.Duration(t.MinOnSeconds) * time.Second,
		MinOffTime:        time.Duration(t.MinOffSeconds) * time.Second,
		MaxOnTime:         time.Duration(t.MaxOnSeconds) * time.Second,
		StaleReadInterval: time.Duration(t.StaleIntervalSeconds) * time.Second,
		HistoryCapacity:   t.HistoryCapacity,
		MaxHardwareFaults: t.MaxHardwareFaults,
		MaxClockSkew:      time.Duration(t.MaxClockSkewSeconds) * time.Second,
	}
}

func (t ThermostatConfig) DecisionInterval() time.Duration {
	return time.Duration(t.DecisionIntervalSeconds) * time.Second
}

func (t ThermostatConfig) DispatchInterval() time.Duration {
	return time.Duration(t.DispatchIntervalSeconds) * time.Second
}

func (t ThermostatConfig) UseFahrenheit() bool {
	return t.Fahrenheit == nil || *t.Fahrenheit
}
