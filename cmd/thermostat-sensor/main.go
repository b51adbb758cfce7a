package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/KyleBrandon/thermostat-server/config"
	"github.com/KyleBrandon/thermostat-server/internal/sensor"
	"github.com/KyleBrandon/thermostat-server/pkg/poller"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
	"github.com/joho/godotenv"
)

const (
	DEFAULT_THERMOSTAT_URL        = "http://localhost:8080"
	DEFAULT_POLL_INTERVAL_SECONDS = 60
	DEFAULT_CONFIG_FILE_LOCATION  = "./config/config.json"
)

var (
	cmdLineFlagMockSensor bool
	cmdLineFlagLogLevel   string
)

func init() {
	flag.BoolVar(&cmdLineFlagMockSensor, "use_mock_sensor", false, "Indicate if we should use mock sensors.")
	flag.StringVar(&cmdLineFlagLogLevel, "log_level", config.DefaultLogLevel.String(), "The log level to start at")
}

func main() {
	flag.Parse()

	level, err := utils.ParseLogLevel(cmdLineFlagLogLevel)
	if err != nil {
		level = config.DefaultLogLevel
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file", "error", err)
	}

	thermostatURL := os.Getenv("THERMOSTAT_URL")
	if len(thermostatURL) == 0 {
		thermostatURL = DEFAULT_THERMOSTAT_URL
	}

	interval := DEFAULT_POLL_INTERVAL_SECONDS
	if v := os.Getenv("SENSOR_POLL_INTERVAL_SECONDS"); len(v) != 0 {
		interval, err = strconv.Atoi(v)
		if err != nil || interval <= 0 {
			slog.Error("invalid SENSOR_POLL_INTERVAL_SECONDS", "value", v)
			os.Exit(1)
		}
	}

	configFile := os.Getenv("CONFIG_FILE_LOCATION")
	if len(configFile) == 0 {
		configFile = DEFAULT_CONFIG_FILE_LOCATION
	}

	c, err := config.LoadConfigSettings(configFile)
	if errors.Is(err, os.ErrNotExist) && cmdLineFlagMockSensor {
		c, err = config.DefaultConfig(), nil
	}
	if err != nil {
		slog.Error("failed to load config file", "file", configFile, "error", err)
		os.Exit(1)
	}

	sensors := sensor.NewSensors(sensor.NewSensorConfig(c.SensorTimeoutSeconds, c.Devices), cmdLineFlagMockSensor)
	p := poller.New(sensors, thermostatURL, os.Getenv("API_KEY"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting sensor poller", "url", thermostatURL, "interval_seconds", interval)
	p.Run(ctx, time.Duration(interval)*time.Second)
	slog.Info("Sensor poller stopped")
}
