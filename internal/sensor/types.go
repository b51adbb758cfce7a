package sensor

import (
	"sync"
	"time"
)

const (
	DRIVERTYPE_DS18B20  string = "DS18B20"
	DRIVERTYPE_IIO      string = "IIO"
	DRIVERTYPE_GPIO     string = "GPIO"
	DRIVERTYPE_GPIOCDEV string = "GPIOCDEV"
	SENSOR_TEMPERATURE  string = "temperature"
	SENSOR_HUMIDITY     string = "humidity"
	SENSOR_POWER        string = "power"
)

const DEFAULT_GPIO_CHIP = "gpiochip0"

type (
	SensorConfig struct {
		SensorTimeout time.Duration
		Devices       []DeviceConfig

		TemperatureSensor DeviceConfig
		HumiditySensor    DeviceConfig
		RelayDevice       DeviceConfig
	}

	DeviceConfig struct {
		DriverType               string  `json:"driver_type"`
		SensorType               string  `json:"sensor_type"`
		Address                  string  `json:"address"`
		Chip                     string  `json:"chip,omitempty"`
		Name                     string  `json:"name"`
		Description              string  `json:"description"`
		NormallyOn               bool    `json:"normally_on,omitempty"`
		CalibrationOffsetCelsius float64 `json:"calibration_offset_celsius"`
	}

	// Reading is one sensor sample. Temperatures are in Celsius, humidity in %RH.
	Reading struct {
		Name        string  `json:"name,omitempty"`
		Description string  `json:"description,omitempty"`
		Address     string  `json:"address,omitempty"`
		Value       float64 `json:"value"`
		Err         error   `json:"-"`
	}

	Sensors interface {
		ReadTemperature() Reading
		ReadHumidity() Reading
	}

	HardwareSensors struct {
		config SensorConfig
	}

	MockSensors struct {
		mu          sync.Mutex
		temperature float64
		humidity    float64
	}

	// RpioRelay drives the relay through /dev/gpiomem.
	RpioRelay struct {
		device DeviceConfig
		mu     sync.Mutex
	}

	MockRelay struct {
		mu sync.Mutex
		on bool
	}
)
