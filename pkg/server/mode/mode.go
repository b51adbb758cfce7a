package mode

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

func NewHandler(controller ModeController) *Handler {
	return &Handler{
		controller: controller,
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/mode", h.handlerModeGet)
	mux.HandleFunc("POST /v1/mode", h.handlerModePost)
}

func (h *Handler) handlerModeGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerModeGet")

	utils.RespondWithJSON(w, http.StatusOK, ModeResponse{Mode: h.controller.Mode()})
}

func (h *Handler) handlerModePost(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handlerModePost")
	defer slog.Debug("<<handlerModePost")

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid body for mode", err)
		return
	}

	mode := thermostat.Mode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if err := h.controller.SetMode(h.now(), mode); err != nil {
		if thermostat.IsValidationError(err) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid mode, expected auto, manual or off", err)
			return
		}

		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to set the mode", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, ModeResponse{Mode: h.controller.Mode()})
}
