package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/KyleBrandon/thermostat-server/config"
	"github.com/KyleBrandon/thermostat-server/internal/auth"
	"github.com/KyleBrandon/thermostat-server/internal/publish"
	"github.com/KyleBrandon/thermostat-server/internal/sensor"
	"github.com/KyleBrandon/thermostat-server/internal/store"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/server/health"
	"github.com/KyleBrandon/thermostat-server/pkg/server/mode"
	"github.com/KyleBrandon/thermostat-server/pkg/server/monitor"
	"github.com/KyleBrandon/thermostat-server/pkg/server/relay"
	"github.com/KyleBrandon/thermostat-server/pkg/server/setpoints"
	"github.com/KyleBrandon/thermostat-server/pkg/server/status"
	"github.com/KyleBrandon/thermostat-server/pkg/server/temperatures"
	"github.com/KyleBrandon/thermostat-server/pkg/server/timer"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/twilio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DEFAULT_SERVER_PORT          = "8080"
	DEFAULT_CONFIG_FILE_LOCATION = "./config/config.json"
	DEFAULT_BADGER_PATH          = "./data/thermostat"
	SHUTDOWN_TIMEOUT             = 10 * time.Second
)

// Used by "flag" to read command line argument
var (
	cmdLineFlagMockSensor bool
	cmdLineFlagLogLevel   string
)

type ServerConfig struct {
	mux                *http.ServeMux
	mctx               *monitor.MonitorContext
	ServerPort         string
	DatabaseURL        string
	BadgerPath         string
	ApiKey             string
	MQTTBroker         string
	MQTTTopic          string
	KafkaBrokers       []string
	KafkaTopic         string
	UseMockSensor      bool
	LogFileLocation    string
	ConfigFileLocation string
	Logger             *slog.Logger
	LoggerLevel        *slog.LevelVar
	LogFile            *os.File
	Notifier           *notify.Notify

	Config     config.Config
	Relay      thermostat.Relay
	Store      store.Store
	Publisher  publish.Publisher
	Thermostat *thermostat.Thermostat
}

// init will read and initialize the global command line variables
func init() {
	// initialize the mock sensor commandline flag
	flag.BoolVar(&cmdLineFlagMockSensor, "use_mock_sensor", false, "Indicate if we should use a mock relay for the server instance.")
	flag.StringVar(&cmdLineFlagLogLevel, "log_level", config.DefaultLogLevel.String(), "The log level to start the server at")
}

// InitializeServer reads the environment and configuration and builds every
// collaborator the thermostat needs. Call RunServer to start serving.
func InitializeServer() (*ServerConfig, error) {
	slog.Debug(">>InitializeServer")
	defer slog.Debug("<<InitializeServer")

	sc := &ServerConfig{}

	// MUST BE FIRST
	sc.readEnvironmentVariables()

	// configure slog
	sc.configureLogger()

	if err := sc.loadConfig(); err != nil {
		return nil, err
	}

	sensorConfig := sensor.NewSensorConfig(sc.Config.SensorTimeoutSeconds, sc.Config.Devices)
	r, err := sensor.NewRelay(sensorConfig, sc.UseMockSensor)
	if err != nil {
		return nil, fmt.Errorf("initialize relay: %w", err)
	}
	sc.Relay = r

	if err := sc.openStore(); err != nil {
		sc.closeRelay()
		return nil, err
	}

	sc.Publisher = sc.openPublisher()

	sc.Thermostat = thermostat.New(
		sc.Config.Thermostat.ToSettings(),
		sc.Relay,
		sc.Store,
		thermostat.Mode(sc.Config.Thermostat.InitialMode),
	)
	sc.restoreState()

	sc.mctx = monitor.InitializeMonitorContext(monitor.MonitorConfig{
		DecisionInterval: sc.Config.Thermostat.DecisionInterval(),
		DispatchInterval: sc.Config.Thermostat.DispatchInterval(),
		Store:            sc.Store,
		Publisher:        sc.Publisher,
		Notifier:         sc.Notifier,
		Registerer:       prometheus.DefaultRegisterer,
	}, sc.Thermostat)

	sc.mux = sc.registerRoutes()

	return sc, nil
}

func (sc *ServerConfig) registerRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := health.NewHandler(sc.LoggerLevel, sc.Logger)
	healthHandler.RegisterRoutes(mux)

	temperatureHandler := temperatures.NewHandler(sc.Thermostat, sc.Config.Thermostat.UseFahrenheit())
	temperatureHandler.RegisterRoutes(mux)

	setpointHandler := setpoints.NewHandler(sc.Store)
	setpointHandler.RegisterRoutes(mux)

	modeHandler := mode.NewHandler(sc.Thermostat)
	modeHandler.RegisterRoutes(mux)

	timerHandler := timer.NewHandler(sc.Thermostat)
	timerHandler.RegisterRoutes(mux)

	relayHandler := relay.NewHandler(sc.Relay)
	relayHandler.RegisterRoutes(mux)

	statusHandler := status.NewHandler(sc.mctx, sc.Config.OriginPatterns)
	statusHandler.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// buildHandler wraps the routes with recovery, CORS, API key and access logging.
func (sc *ServerConfig) buildHandler() http.Handler {
	var h http.Handler = sc.mux

	h = auth.RequireApiKeyForWrites(sc.ApiKey, h)
	h = handlers.CORS(
		handlers.AllowedOriginValidator(originValidator(sc.Config.OriginPatterns)),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(log.New(sc.logWriter(), "", log.LstdFlags)))(h)

	return handlers.CombinedLoggingHandler(sc.logWriter(), h)
}

// RunServer serves until SIGINT or SIGTERM, then stops the monitor and releases
// the hardware and the store.
func (sc *ServerConfig) RunServer() {
	slog.Info(">>RunServer")
	defer slog.Info("<<RunServer")

	defer sc.close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", sc.ServerPort),
		Handler:           sc.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server", "port", sc.ServerPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
	}
}

func (sc *ServerConfig) close() {
	if sc.mctx != nil {
		sc.mctx.CancelAndWait()
	}

	if sc.Publisher != nil {
		if err := sc.Publisher.Close(); err != nil {
			slog.Error("failed to close the publisher", "error", err)
		}
	}

	if sc.Store != nil {
		if err := sc.Store.Close(); err != nil {
			slog.Error("failed to close the store", "error", err)
		}
	}

	sc.closeRelay()

	if sc.LogFile != nil && sc.LogFile != os.Stderr {
		sc.LogFile.Close()
	}
}

func (sc *ServerConfig) closeRelay() {
	if c, ok := sc.Relay.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Error("failed to release the relay", "error", err)
		}
	}
}

func (sc *ServerConfig) readEnvironmentVariables() {
	slog.Info(">>readEnvironmentVariables")
	defer slog.Info("<<readEnvironmentVariables")

	// load the environment
	err := godotenv.Load()
	if err != nil {
		slog.Warn("could not load .env file", "error", err)
	}

	sc.DatabaseURL = os.Getenv("DATABASE_URL")

	sc.BadgerPath = os.Getenv("BADGER_PATH")
	if len(sc.BadgerPath) == 0 {
		sc.BadgerPath = DEFAULT_BADGER_PATH
	}

	sc.ServerPort = os.Getenv("PORT")
	if len(sc.ServerPort) == 0 {
		sc.ServerPort = DEFAULT_SERVER_PORT
	}

	sc.LogFileLocation = os.Getenv("LOG_FILE_LOCATION")

	sc.ConfigFileLocation = os.Getenv("CONFIG_FILE_LOCATION")
	if len(sc.ConfigFileLocation) == 0 {
		sc.ConfigFileLocation = DEFAULT_CONFIG_FILE_LOCATION
	}

	sc.ApiKey = os.Getenv("API_KEY")
	if len(sc.ApiKey) == 0 {
		slog.Warn("API_KEY is not set, write endpoints are not protected")
	}

	sc.MQTTBroker = os.Getenv("MQTT_BROKER")
	sc.MQTTTopic = os.Getenv("MQTT_TOPIC")
	sc.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	sc.KafkaTopic = os.Getenv("KAFKA_TOPIC")

	twilioAccountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioAuthToken := os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFromPhone := os.Getenv("TWILIO_FROM_PHONE_NO")
	twilioToPhone := os.Getenv("TWILIO_TO_PHONE_NO")
	if len(twilioAccountSID) != 0 {
		slog.Info("Twilio account information present, configuring Notifier")

		twilioService, err := twilio.New(twilioAccountSID, twilioAuthToken, twilioFromPhone)
		if err != nil {
			log.Fatalf("failed to initialize Twilio service: %v", err)
		}

		twilioService.AddReceivers(twilioToPhone)

		notifier := notify.New()
		notifier.UseServices(twilioService)
		sc.Notifier = notifier
	}

	// mock sensor flag is a command line flag for debugging
	sc.UseMockSensor = cmdLineFlagMockSensor
}

// configureLogger will initialize the slog to stderr and save the log level so it can be set via API.
func (sc *ServerConfig) configureLogger() {
	slog.Info(">>configureLogger")
	defer slog.Info("<<configureLogger")

	// create a variable to store the current log level
	currentLevel := new(slog.LevelVar)

	// parse the log level from any passed in command line flag
	level, err := utils.ParseLogLevel(cmdLineFlagLogLevel)
	if err != nil {
		slog.Error("Failed to parse the log level, setting to DefaultLogLevel", "error", err, "log_level", cmdLineFlagLogLevel)
		level = config.DefaultLogLevel
	}

	currentLevel.Set(level)

	// by default we will write to stderr
	logFile := os.Stderr
	if len(sc.LogFileLocation) != 0 {
		slog.Info("Save to log file", "file", sc.LogFileLocation)
		logFile, err = os.OpenFile(sc.LogFileLocation, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			slog.Error("Failed to open log file", "error", err)
			os.Exit(1)
		}
	}

	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: currentLevel})

	logger := slog.New(fileHandler)

	slog.SetDefault(logger)

	sc.Logger = logger
	sc.LoggerLevel = currentLevel
	sc.LogFile = logFile
}

func (sc *ServerConfig) logWriter() io.Writer {
	if sc.LogFile == nil {
		return os.Stderr
	}
	return sc.LogFile
}

func (sc *ServerConfig) loadConfig() error {
	c, err := config.LoadConfigSettings(sc.ConfigFileLocation)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "file", sc.ConfigFileLocation)
		c, err = config.DefaultConfig(), nil
	}
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	sc.Config = c
	return nil
}

func (sc *ServerConfig) openStore() error {
	if len(sc.DatabaseURL) != 0 {
		slog.Info("Using Postgres for setpoints and controller state")
		s, err := store.OpenPostgres(sc.DatabaseURL)
		if err != nil {
			return err
		}
		sc.Store = s
		return nil
	}

	slog.Info("DATABASE_URL is not set, using the embedded store", "path", sc.BadgerPath)
	s, err := store.OpenBadger(sc.BadgerPath)
	if err != nil {
		return err
	}
	sc.Store = s
	return nil
}

// openPublisher prefers MQTT, then Kafka. A broker that cannot be reached is
// logged and events are dropped.
func (sc *ServerConfig) openPublisher() publish.Publisher {
	if len(sc.MQTTBroker) != 0 {
		p, err := publish.NewMQTTPublisher(sc.MQTTBroker, sc.MQTTTopic)
		if err != nil {
			slog.Error("failed to connect to the MQTT broker, events will not be published", "broker", sc.MQTTBroker, "error", err)
			return publish.NopPublisher{}
		}
		slog.Info("Publishing events to MQTT", "broker", sc.MQTTBroker)
		return p
	}

	if len(sc.KafkaBrokers) != 0 {
		slog.Info("Publishing events to Kafka", "brokers", sc.KafkaBrokers)
		return publish.NewKafkaPublisher(sc.KafkaBrokers, sc.KafkaTopic)
	}

	return publish.NopPublisher{}
}

func (sc *ServerConfig) restoreState() {
	state, found, err := sc.Store.LoadState(context.Background())
	if err != nil {
		slog.Error("failed to load the controller state", "error", err)
		return
	}
	if !found {
		return
	}

	slog.Info("Restoring controller state", "mode", state.Mode, "last_on_at", state.LastOnAt, "last_off_at", state.LastOffAt)
	sc.Thermostat.Restore(state)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// originValidator matches the Origin host against the same patterns the
// websocket endpoint accepts.
func originValidator(patterns []string) func(string) bool {
	return func(origin string) bool {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		for _, p := range patterns {
			if ok, _ := path.Match(strings.ToLower(p), strings.ToLower(u.Host)); ok {
				return true
			}
		}
		return false
	}
}
