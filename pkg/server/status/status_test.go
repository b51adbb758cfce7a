package status

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

var testNow = time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC)

type mockSource struct {
	status   thermostat.Status
	decision thermostat.Decision
	dispatch thermostat.DispatchResult
	limit    int
}

func (m *mockSource) Status(now time.Time, limit int) thermostat.Status {
	m.limit = limit
	return m.status
}

func (m *mockSource) LastDecision() thermostat.Decision {
	return m.decision
}

func (m *mockSource) LastDispatch() thermostat.DispatchResult {
	return m.dispatch
}

func TestGetStatus(t *testing.T) {
	t.Run("should return the snapshot", func(t *testing.T) {
		source := mockSource{
			status: thermostat.Status{
				Mode:        thermostat.MODE_AUTO,
				RelayOn:     true,
				Timer:       &thermostat.TimerStatus{RemainingSeconds: 120, PendingState: false},
				Temperature: []thermostat.Sample{{Timestamp: testNow, Value: 77}},
			},
			decision: thermostat.Decision{Outcome: thermostat.DECISION_UNCHANGED, Setpoint: 75},
		}
		h := NewHandler(&source, nil)

		rr := utils.TestRequest(t, http.MethodGet, "/v1/status", nil, h.handleStatusGet)

		utils.TestExpectedStatus(t, rr, http.StatusOK)

		var resp SystemStatus
		utils.TestDecodeJSON(t, rr, &resp)
		if resp.Mode != thermostat.MODE_AUTO || !resp.RelayOn {
			t.Errorf("unexpected status %+v", resp.Status)
		}
		if resp.Timer == nil || resp.Timer.RemainingSeconds != 120 {
			t.Errorf("expected a timer with 120 seconds left, got %+v", resp.Timer)
		}
		if resp.Setpoint == nil || *resp.Setpoint != 75 {
			t.Errorf("expected setpoint 75, got %v", resp.Setpoint)
		}
		if resp.LastDecision != thermostat.DECISION_UNCHANGED {
			t.Errorf("expected last decision unchanged, got %q", resp.LastDecision)
		}
		if source.limit != DEFAULT_STATUS_HISTORY {
			t.Errorf("expected default history %d, got %d", DEFAULT_STATUS_HISTORY, source.limit)
		}
	})

	t.Run("should surface relay errors", func(t *testing.T) {
		source := mockSource{status: thermostat.Status{RelayError: "gpio unavailable"}}
		h := NewHandler(&source, nil)

		rr := utils.TestRequest(t, http.MethodGet, "/v1/status?limit=5", nil, h.handleStatusGet)

		utils.TestExpectedStatus(t, rr, http.StatusOK)
		utils.TestExpectedMessage(t, rr, `"error_messages":["gpio unavailable"]`)
		if strings.Contains(rr.Body.String(), `"setpoint"`) {
			t.Errorf("expected no setpoint without a decision, got %s", rr.Body.String())
		}
		if source.limit != 5 {
			t.Errorf("expected limit 5, got %d", source.limit)
		}
	})

	t.Run("should surface the last dispatch fault", func(t *testing.T) {
		source := mockSource{dispatch: thermostat.DispatchResult{
			Outcome: thermostat.DISPATCH_FAULT,
			Err:     errors.New("set relay to true: relay hardware fault"),
		}}
		h := NewHandler(&source, nil)

		rr := utils.TestRequest(t, http.MethodGet, "/v1/status", nil, h.handleStatusGet)

		utils.TestExpectedStatus(t, rr, http.StatusOK)
		utils.TestExpectedMessage(t, rr, `"last_dispatch":"fault"`)
		utils.TestExpectedMessage(t, rr, `"error_messages":["set relay to true: relay hardware fault"]`)
	})

	t.Run("should reject a bad limit", func(t *testing.T) {
		h := NewHandler(&mockSource{}, nil)

		rr := utils.TestRequest(t, http.MethodGet, "/v1/status?limit=x", nil, h.handleStatusGet)

		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)
	})
}

func TestStatusWebsocket(t *testing.T) {
	source := mockSource{status: thermostat.Status{Mode: thermostat.MODE_MANUAL}}
	h := NewHandler(&source, nil)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/status/ws", nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	var status SystemStatus
	if err := wsjson.Read(ctx, c, &status); err != nil {
		t.Fatalf("failed to read status: %v", err)
	}

	if status.Mode != thermostat.MODE_MANUAL {
		t.Errorf("expected mode manual, got %s", status.Mode)
	}
}
