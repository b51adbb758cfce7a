package relay

import (
	"log/slog"
	"net/http"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

type (
	Handler struct {
		relay thermostat.Relay
	}

	RelayResponse struct {
		RelayOn bool `json:"relay_on"`
	}
)

func NewHandler(relay thermostat.Relay) *Handler {
	return &Handler{
		relay: relay,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/relay", h.handlerRelayGet)
}

func (h *Handler) handlerRelayGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handlerRelayGet")

	on, err := h.relay.GetRelayState()
	if err != nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Failed to read the relay state", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, RelayResponse{RelayOn: on})
}
