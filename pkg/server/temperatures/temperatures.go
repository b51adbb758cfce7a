package temperatures

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/sensor"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
	"github.com/klauspost/compress/gzhttp"
)

func NewHandler(store ReadingStore, fahrenheit bool) *Handler {
	return &Handler{
		store:      store,
		fahrenheit: fahrenheit,
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /v1/temperatures", gzhttp.GzipHandler(http.HandlerFunc(h.handlerTemperaturesGet)))
	mux.HandleFunc("POST /v1/temperatures", h.handlerTemperaturesPost)
}

func (h *Handler) handlerTemperaturesGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerTemperaturesGet")

	limit, err := ParseLimit(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	temperature, err := h.store.Readings(thermostat.READING_TEMPERATURE, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to read the temperature history", err)
		return
	}

	humidity, err := h.store.Readings(thermostat.READING_HUMIDITY, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to read the humidity history", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, HistoryResponse{
		Temperature: temperature,
		Humidity:    humidity,
	})
}

func (h *Handler) handlerTemperaturesPost(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerTemperaturesPost")
	defer slog.Debug("<<handlerTemperaturesPost")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for readings", err)
		return
	}

	defer r.Body.Close()

	var req IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for readings", err)
		return
	}

	if req.Temperature == nil && req.Humidity == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "A temperature or humidity reading is required", thermostat.ErrInvalidValue)
		return
	}

	unit := strings.ToUpper(req.Unit)
	if unit != "" && unit != UNIT_CELSIUS && unit != UNIT_FAHRENHEIT {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid temperature unit", fmt.Errorf("unit %q", req.Unit))
		return
	}

	now := h.now()
	timestamp := now
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	values := make(map[thermostat.ReadingKind]float64, 2)
	if req.Temperature != nil {
		values[thermostat.READING_TEMPERATURE] = h.convertTemperature(*req.Temperature, unit)
	}
	if req.Humidity != nil {
		values[thermostat.READING_HUMIDITY] = *req.Humidity
	}

	// both readings are stored or neither is
	if err := h.store.PushReadings(now, timestamp, values); err != nil {
		respondWithPushError(w, err)
		return
	}

	utils.RespondWithNoContent(w, http.StatusCreated)
}

// convertTemperature returns the value in the unit the thermostat schedule uses.
func (h *Handler) convertTemperature(value float64, unit string) float64 {
	if unit == "" {
		unit = UNIT_CELSIUS
	}

	switch {
	case h.fahrenheit && unit == UNIT_CELSIUS:
		return sensor.CelsiusToFahrenheit(value)
	case !h.fahrenheit && unit == UNIT_FAHRENHEIT:
		return sensor.FahrenheitToCelsius(value)
	}

	return value
}

func respondWithPushError(w http.ResponseWriter, err error) {
	if thermostat.IsValidationError(err) {
		utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid reading: %v", err), err)
		return
	}

	utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save the readings", err)
}

// ParseLimit reads the optional ?limit=N query parameter. Zero means everything.
func ParseLimit(r *http.Request) (int, error) {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	if limit < 0 {
		return 0, errors.New("limit cannot be negative")
	}

	return limit, nil
}
