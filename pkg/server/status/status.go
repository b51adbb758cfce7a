package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/server/temperatures"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/klauspost/compress/gzhttp"
)

func NewHandler(source StatusSource, originPatterns []string) *Handler {
	return &Handler{
		source:         source,
		originPatterns: originPatterns,
		now:            time.Now,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /v1/status", gzhttp.GzipHandler(http.HandlerFunc(h.handleStatusGet)))
	mux.HandleFunc("/v1/status/ws", h.handleStatusWS)
}

func (h *Handler) handleStatusGet(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handleStatusGet")

	limit, err := temperatures.ParseLimit(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	if limit == 0 {
		limit = DEFAULT_STATUS_HISTORY
	}

	utils.RespondWithJSON(w, http.StatusOK, h.buildStatus(limit))
}

func (h *Handler) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	slog.Debug(">>handleStatusWS: new incoming connection")
	defer slog.Debug("<<handleStatusWS")

	opts := &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	}
	c, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept error:", "error", err)
		return
	}

	defer c.Close(websocket.StatusInternalError, "Unexpected connection close")

	ctx := c.CloseRead(r.Context())

	h.monitorStatus(ctx, c)
}

func (h *Handler) monitorStatus(ctx context.Context, c *websocket.Conn) {
	slog.Debug(">>monitorStatus")
	defer slog.Debug("<<monitorStatus")

	ticker := time.NewTicker(STATUS_UPDATE_INTERVAL)
	heartbeatTicker := time.NewTicker(STATUS_HEARTBEAT_PERIOD)
	defer ticker.Stop()
	defer heartbeatTicker.Stop()

	// send the first snapshot without waiting for the ticker
	if err := wsjson.Write(ctx, c, h.buildStatus(DEFAULT_STATUS_HISTORY)); err != nil {
		slog.Error("monitorStatus: error writing to client", "error", err)
		c.Close(websocket.StatusInternalError, "error writing status")
		return
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitorStatus: client disconnected")
			c.Close(websocket.StatusNormalClosure, "Connection closed")
			return

		case <-ticker.C:
			err := wsjson.Write(ctx, c, h.buildStatus(DEFAULT_STATUS_HISTORY))
			if err != nil {
				slog.Error("monitorStatus: error writing to client", "error", err)
				c.Close(websocket.StatusInternalError, "error writing status")
				return
			}

		case <-heartbeatTicker.C:
			err := c.Ping(ctx)
			if err != nil {
				slog.Error("monitorStatus: error sending ping", "error", err)
				c.Close(websocket.StatusInternalError, "error sending ping")
				return
			}
		}
	}
}

func (h *Handler) buildStatus(limit int) SystemStatus {
	s := h.source.Status(h.now(), limit)
	d := h.source.LastDecision()
	r := h.source.LastDispatch()

	// create a slice for any system messages
	errorMessages := make([]string, 0)
	if s.RelayError != "" {
		errorMessages = append(errorMessages, s.RelayError)
	}
	if r.Outcome == thermostat.DISPATCH_FAULT && r.Err != nil {
		errorMessages = append(errorMessages, r.Err.Error())
	}

	status := SystemStatus{
		Status:        s,
		LastDecision:  d.Outcome,
		LastDispatch:  r.Outcome,
		ErrorMessages: errorMessages,
	}

	switch d.Outcome {
	case "", thermostat.DECISION_SKIPPED, thermostat.DECISION_STALE, thermostat.DECISION_NO_SETPOINT:
	default:
		setpoint := d.Setpoint
		status.Setpoint = &setpoint
	}

	return status
}
