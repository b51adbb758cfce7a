package sensor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

var ErrNoRelayConfigured = errors.New("no relay device is configured")

// NewSensorConfig sorts the configured devices by role.
func NewSensorConfig(sensorTimeout int, devices []DeviceConfig) SensorConfig {
	slog.Debug(">>NewSensorConfig")
	defer slog.Debug("<<NewSensorConfig")

	sc := SensorConfig{
		SensorTimeout: time.Duration(sensorTimeout) * time.Second,
		Devices:       devices,
	}

	for _, d := range sc.Devices {
		switch d.SensorType {
		case SENSOR_TEMPERATURE:
			sc.TemperatureSensor = d
		case SENSOR_HUMIDITY:
			sc.HumiditySensor = d
		case SENSOR_POWER:
			sc.RelayDevice = d
		}
	}

	return sc
}

// NewSensors returns the temperature/humidity readers for the sensor process.
func NewSensors(config SensorConfig, useMock bool) Sensors {
	if useMock {
		slog.Info("Using mock sensors")
		return NewMockSensors(22.0, 45.0)
	}

	return &HardwareSensors{config: config}
}

// NewRelay returns the actuator for the configured power device.
func NewRelay(config SensorConfig, useMock bool) (thermostat.Relay, error) {
	if useMock {
		slog.Info("Using mock relay")
		return &MockRelay{}, nil
	}

	device := config.RelayDevice
	switch device.DriverType {
	case DRIVERTYPE_GPIO:
		return &RpioRelay{device: device}, nil
	case DRIVERTYPE_GPIOCDEV:
		r, err := NewCdevRelay(device)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "":
		return nil, ErrNoRelayConfigured
	}

	return nil, fmt.Errorf("unsupported relay driver %q", device.DriverType)
}

// CelsiusToFahrenheit converts a Celsius reading.
func CelsiusToFahrenheit(c float64) float64 {
	return (c * 9 / 5) + 32
}

func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
