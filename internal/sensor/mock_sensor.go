package sensor

import (
	"log/slog"
)

func NewMockSensors(temperature, humidity float64) *MockSensors {
	return &MockSensors{
		temperature: temperature,
		humidity:    humidity,
	}
}

func (m *MockSensors) ReadTemperature() Reading {
	slog.Debug(">>ReadTemperature")
	defer slog.Debug("<<ReadTemperature")

	m.mu.Lock()
	defer m.mu.Unlock()

	return Reading{Name: "mock", Value: m.temperature}
}

func (m *MockSensors) ReadHumidity() Reading {
	slog.Debug(">>ReadHumidity")
	defer slog.Debug("<<ReadHumidity")

	m.mu.Lock()
	defer m.mu.Unlock()

	return Reading{Name: "mock", Value: m.humidity}
}

func (m *MockSensors) Set(temperature, humidity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.temperature = temperature
	m.humidity = humidity
}

func (m *MockRelay) GetRelayState() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.on, nil
}

func (m *MockRelay) SetRelayState(on bool) error {
	slog.Debug("MockRelay.SetRelayState", "on", on)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.on = on
	return nil
}
