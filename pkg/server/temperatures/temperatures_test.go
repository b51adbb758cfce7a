package temperatures

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/KyleBrandon/thermostat-server/pkg/utils"
)

var testNow = time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC)

type pushedReading struct {
	kind      thermostat.ReadingKind
	timestamp time.Time
	value     float64
}

type mockStore struct {
	pushed  []pushedReading
	samples map[thermostat.ReadingKind][]thermostat.Sample
	pushErr error
	readErr error
	limit   int
}

func (m *mockStore) PushReadings(now time.Time, timestamp time.Time, values map[thermostat.ReadingKind]float64) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	for _, kind := range []thermostat.ReadingKind{thermostat.READING_TEMPERATURE, thermostat.READING_HUMIDITY} {
		if v, ok := values[kind]; ok {
			m.pushed = append(m.pushed, pushedReading{kind, timestamp, v})
		}
	}
	return nil
}

type idleRelay struct{}

func (idleRelay) GetRelayState() (bool, error) { return false, nil }
func (idleRelay) SetRelayState(on bool) error  { return nil }

func newThermostat() *thermostat.Thermostat {
	settings := thermostat.Settings{
		Hysteresis:        3,
		MinOnTime:         5 * time.Minute,
		MinOffTime:        5 * time.Minute,
		MaxOnTime:         2 * time.Hour,
		StaleReadInterval: 5 * time.Minute,
		HistoryCapacity:   10,
		MaxClockSkew:      time.Minute,
	}
	return thermostat.New(settings, idleRelay{}, nil, thermostat.MODE_AUTO)
}

func (m *mockStore) Readings(kind thermostat.ReadingKind, limit int) ([]thermostat.Sample, error) {
	m.limit = limit
	return m.samples[kind], m.readErr
}

func newTestHandler(store *mockStore, fahrenheit bool) *Handler {
	h := NewHandler(store, fahrenheit)
	h.now = func() time.Time { return testNow }
	return h
}

func TestPostReadings(t *testing.T) {
	t.Run("should convert celsius to fahrenheit", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 25, "humidity": 40}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusCreated)
		if len(store.pushed) != 2 {
			t.Fatalf("expected 2 readings, got %d", len(store.pushed))
		}
		if store.pushed[0].kind != thermostat.READING_TEMPERATURE || store.pushed[0].value != 77 {
			t.Errorf("expected temperature 77, got %+v", store.pushed[0])
		}
		if store.pushed[1].kind != thermostat.READING_HUMIDITY || store.pushed[1].value != 40 {
			t.Errorf("expected humidity 40, got %+v", store.pushed[1])
		}
		if !store.pushed[0].timestamp.Equal(testNow) {
			t.Errorf("expected timestamp %v, got %v", testNow, store.pushed[0].timestamp)
		}
	})

	t.Run("should keep fahrenheit readings", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 71.5, "unit": "f"}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusCreated)
		if len(store.pushed) != 1 || store.pushed[0].value != 71.5 {
			t.Errorf("expected a single 71.5 reading, got %+v", store.pushed)
		}
	})

	t.Run("should convert fahrenheit for a celsius schedule", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, false)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 212, "unit": "F"}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusCreated)
		if math.Abs(store.pushed[0].value-100) > 1e-9 {
			t.Errorf("expected 100, got %v", store.pushed[0].value)
		}
	})

	t.Run("should use the posted timestamp", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)
		at := testNow.Add(-time.Minute)

		body := fmt.Sprintf(`{"humidity": 50, "timestamp": %q}`, at.Format(time.RFC3339))
		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(body), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusCreated)
		if !store.pushed[0].timestamp.Equal(at) {
			t.Errorf("expected timestamp %v, got %v", at, store.pushed[0].timestamp)
		}
	})

	t.Run("should require a reading", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("should reject an unknown unit", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 20, "unit": "K"}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)
		if len(store.pushed) != 0 {
			t.Errorf("expected nothing stored, got %+v", store.pushed)
		}
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": "warm"}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)
		utils.TestExpectedMessage(t, rr, "Invalid body for readings")
	})

	t.Run("should map out of order readings to bad request", func(t *testing.T) {
		store := mockStore{pushErr: fmt.Errorf("append: %w", thermostat.ErrOutOfOrderSample)}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 20}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("should reject a reading from the future", func(t *testing.T) {
		th := newThermostat()
		h := NewHandler(th, false)
		h.now = func() time.Time { return testNow }

		body := fmt.Sprintf(`{"temperature": 15, "humidity": 40, "timestamp": %q}`, testNow.Add(24*time.Hour).Format(time.RFC3339))
		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(body), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)

		// a reading taken now is still accepted
		rr = utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 27, "humidity": 40}`), h.handlerTemperaturesPost)
		utils.TestExpectedStatus(t, rr, http.StatusCreated)

		readings, _ := th.Readings(thermostat.READING_TEMPERATURE, 0)
		if len(readings) != 1 || readings[0].Value != 27 {
			t.Errorf("expected a single 27 reading, got %+v", readings)
		}
	})

	t.Run("should store nothing when one reading is invalid", func(t *testing.T) {
		th := newThermostat()
		h := NewHandler(th, false)
		h.now = func() time.Time { return testNow }

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 22, "humidity": 40}`), h.handlerTemperaturesPost)
		utils.TestExpectedStatus(t, rr, http.StatusCreated)

		// humidity is older than the stored sample, so the temperature must not be kept either
		th.Push(testNow, thermostat.READING_HUMIDITY, testNow.Add(30*time.Second), 41)
		rr = utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"temperature": 23, "humidity": 42}`), h.handlerTemperaturesPost)
		utils.TestExpectedStatus(t, rr, http.StatusBadRequest)

		readings, _ := th.Readings(thermostat.READING_TEMPERATURE, 0)
		if len(readings) != 1 || readings[0].Value != 22 {
			t.Errorf("expected only the first temperature, got %+v", readings)
		}
	})

	t.Run("should map other failures to internal error", func(t *testing.T) {
		store := mockStore{pushErr: errors.New("boom")}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodPost, "/v1/temperatures", strings.NewReader(`{"humidity": 20}`), h.handlerTemperaturesPost)

		utils.TestExpectedStatus(t, rr, http.StatusInternalServerError)
	})
}

func TestGetReadings(t *testing.T) {
	t.Run("should return both series", func(t *testing.T) {
		store := mockStore{samples: map[thermostat.ReadingKind][]thermostat.Sample{
			thermostat.READING_TEMPERATURE: {{Timestamp: testNow, Value: 72}},
			thermostat.READING_HUMIDITY:    {{Timestamp: testNow, Value: 41}},
		}}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodGet, "/v1/temperatures?limit=10", nil, h.handlerTemperaturesGet)

		utils.TestExpectedStatus(t, rr, http.StatusOK)

		var resp HistoryResponse
		utils.TestDecodeJSON(t, rr, &resp)
		if len(resp.Temperature) != 1 || resp.Temperature[0].Value != 72 {
			t.Errorf("unexpected temperature history %+v", resp.Temperature)
		}
		if len(resp.Humidity) != 1 || resp.Humidity[0].Value != 41 {
			t.Errorf("unexpected humidity history %+v", resp.Humidity)
		}
		if store.limit != 10 {
			t.Errorf("expected limit 10, got %d", store.limit)
		}
	})

	t.Run("should reject a bad limit", func(t *testing.T) {
		store := mockStore{}
		h := newTestHandler(&store, true)

		for _, q := range []string{"abc", "-1"} {
			rr := utils.TestRequest(t, http.MethodGet, "/v1/temperatures?limit="+q, nil, h.handlerTemperaturesGet)
			utils.TestExpectedStatus(t, rr, http.StatusBadRequest)
		}
	})

	t.Run("should report read failures", func(t *testing.T) {
		store := mockStore{readErr: errors.New("boom")}
		h := newTestHandler(&store, true)

		rr := utils.TestRequest(t, http.MethodGet, "/v1/temperatures", nil, h.handlerTemperaturesGet)

		utils.TestExpectedStatus(t, rr, http.StatusInternalServerError)
	})
}
