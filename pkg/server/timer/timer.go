package timer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

func NewHandler(controller TimerController) *Handler {
	return &Handler{
		controller: controller,
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/timer", h.handlerTimerGet)
	mux.HandleFunc("POST /v1/timer", h.handlerTimerPost)
}

func (h *Handler) handlerTimerGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerTimerGet")

	status, ok := h.controller.QueryTimer(h.now())

	utils.RespondWithJSON(w, http.StatusOK, TimerResponse{Active: ok, TimerStatus: status})
}

func (h *Handler) handlerTimerPost(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerTimerPost")
	defer slog.Debug("<<handlerTimerPost")

	var req TimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for timer", err)
		return
	}

	if req.OnTime == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "on_time is required", thermostat.ErrInvalidDuration)
		return
	}

	duration := time.Duration(*req.OnTime * float64(time.Second))
	status, err := h.controller.RequestTimer(h.now(), duration)
	switch {
	case errors.Is(err, thermostat.ErrRelayForcedOff):
		utils.RespondWithError(w, http.StatusConflict, "The thermostat is off", err)
		return

	case thermostat.IsValidationError(err):
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid on_time", err)
		return

	case err != nil:
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to start the timer", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, TimerResponse{Active: true, TimerStatus: status})
}
