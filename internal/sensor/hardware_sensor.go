package sensor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yryz/ds18b20"
)

const (
	IIO_TEMPERATURE_FILE = "in_temp_input"
	IIO_HUMIDITY_FILE    = "in_humidityrelative_input"
)

func (s *HardwareSensors) ReadTemperature() Reading {
	slog.Debug(">>ReadTemperature")
	defer slog.Debug("<<ReadTemperature")

	device := s.config.TemperatureSensor
	tr := newReading(device)

	var t float64
	var err error
	switch device.DriverType {
	case DRIVERTYPE_DS18B20:
		t, err = withTimeout(s.config.SensorTimeout, func() (float64, error) {
			return ds18b20.Temperature(device.Address)
		})
	case DRIVERTYPE_IIO:
		t, err = withTimeout(s.config.SensorTimeout, func() (float64, error) {
			return readIIOValue(device.Address, IIO_TEMPERATURE_FILE)
		})
	default:
		err = fmt.Errorf("unsupported temperature driver %q", device.DriverType)
	}

	if err != nil {
		slog.Error("failed to read sensor", "name", device.Name, "address", device.Address, "error", err)
		tr.Err = err
		return tr
	}

	tr.Value = t + device.CalibrationOffsetCelsius
	return tr
}

func (s *HardwareSensors) ReadHumidity() Reading {
	slog.Debug(">>ReadHumidity")
	defer slog.Debug("<<ReadHumidity")

	device := s.config.HumiditySensor
	hr := newReading(device)

	if device.DriverType != DRIVERTYPE_IIO {
		hr.Err = fmt.Errorf("unsupported humidity driver %q", device.DriverType)
		slog.Error("failed to read sensor", "name", device.Name, "error", hr.Err)
		return hr
	}

	h, err := withTimeout(s.config.SensorTimeout, func() (float64, error) {
		return readIIOValue(device.Address, IIO_HUMIDITY_FILE)
	})
	if err != nil {
		slog.Error("failed to read sensor", "name", device.Name, "address", device.Address, "error", err)
		hr.Err = err
		return hr
	}

	hr.Value = h
	return hr
}

func newReading(device DeviceConfig) Reading {
	return Reading{
		Name:        device.Name,
		Description: device.Description,
		Address:     device.Address,
	}
}

// readIIOValue reads a Linux industrial I/O channel, reported in thousandths.
func readIIOValue(deviceDir string, channel string) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(deviceDir, channel))
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", channel, err)
	}

	return v / 1000.0, nil
}

// withTimeout bounds a blocking sensor read. A zero timeout waits forever.
func withTimeout(timeout time.Duration, read func() (float64, error)) (float64, error) {
	if timeout <= 0 {
		return read()
	}

	type result struct {
		v   float64
		err error
	}

	ch := make(chan result, 1)
	go func() {
		v, err := read()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-time.After(timeout):
		return 0, fmt.Errorf("sensor read timed out after %v", timeout)
	}
}
