package setpoints

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

func NewHandler(store SetpointStore) *Handler {
	return &Handler{
		store: store,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/setpoints", h.handlerSetpointsGet)
	mux.HandleFunc("POST /v1/setpoints", h.handlerSetpointsPost)
}

func (h *Handler) handlerSetpointsGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerSetpointsGet")

	h.respondWithSetpoints(w, r, http.StatusOK)
}

func (h *Handler) handlerSetpointsPost(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerSetpointsPost")
	defer slog.Debug("<<handlerSetpointsPost")

	var req SetpointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for setpoints", err)
		return
	}

	if len(req.Setpoints) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No setpoints provided", thermostat.ErrInvalidBucket)
		return
	}

	// every key is checked before anything is written
	setpoints := make(map[int]float64, len(req.Setpoints))
	for key, temperature := range req.Setpoints {
		bucket, err := strconv.Atoi(key)
		if err != nil || !thermostat.IsValidBucket(bucket) {
			utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid setpoint bucket %q", key), thermostat.ErrInvalidBucket)
			return
		}

		setpoints[bucket] = temperature
	}

	if err := h.store.PutSetpoints(r.Context(), setpoints); err != nil {
		if thermostat.IsValidationError(err) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid setpoints", err)
			return
		}

		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save the setpoints", err)
		return
	}

	slog.Info("setpoints updated", "setpoints", setpoints)

	h.respondWithSetpoints(w, r, http.StatusOK)
}

func (h *Handler) respondWithSetpoints(w http.ResponseWriter, r *http.Request, code int) {
	stored, err := h.store.ListSetpoints(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to read the setpoints", err)
		return
	}

	resp := SetpointsResponse{Setpoints: make(map[string]*float64, len(thermostat.SETPOINT_HOURS))}
	for _, bucket := range thermostat.SETPOINT_HOURS {
		var value *float64
		if v, ok := stored[bucket]; ok {
			value = &v
		}
		resp.Setpoints[strconv.Itoa(bucket)] = value
	}

	utils.RespondWithJSON(w, code, resp)
}
