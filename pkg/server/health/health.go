package health

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

func NewHandler(loggerLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	return &Handler{
		logger:      logger,
		loggerLevel: loggerLevel,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/health", h.handlerHealthGet)
	mux.HandleFunc("GET /v1/health/log-level", h.handlerLogLevelGet)
	mux.HandleFunc("PUT /v1/health/log-level", h.handlerLogLevelPut)
}

func (h *Handler) handlerHealthGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerHealthGet")

	response := struct {
		Status string `json:"status"`
	}{
		Status: "ok",
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (h *Handler) handlerLogLevelGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerLogLevelGet")

	utils.RespondWithJSON(w, http.StatusOK, LogLevelResponse{Level: h.loggerLevel.Level().String()})
}

func (h *Handler) handlerLogLevelPut(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerLogLevelPut")
	defer slog.Debug("<<handlerLogLevelPut")

	var req LogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for log level", err)
		return
	}

	level, err := utils.ParseLogLevel(req.Level)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid log level", err)
		return
	}

	h.loggerLevel.Set(level)
	h.logger.Info("log level changed", "level", level)

	utils.RespondWithJSON(w, http.StatusOK, LogLevelResponse{Level: level.String()})
}
