package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/publish"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 7, 1, 13, 0, 0, 0, time.Local)

type mockRelay struct {
	mu     sync.Mutex
	on     bool
	setErr error
}

func (r *mockRelay) GetRelayState() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on, nil
}

func (r *mockRelay) SetRelayState(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.on = on
	return nil
}

type mockDirectory map[int]float64

func (d mockDirectory) GetSetpoint(ctx context.Context, bucket int) (float64, bool, error) {
	v, ok := d[bucket]
	return v, ok, nil
}

type mockStore struct {
	mu     sync.Mutex
	states []thermostat.PersistedState
	err    error
}

func (s *mockStore) SaveState(ctx context.Context, state thermostat.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.states = append(s.states, state)
	return nil
}

func (s *mockStore) saved() []thermostat.PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]thermostat.PersistedState(nil), s.states...)
}

func testSettings() thermostat.Settings {
	return thermostat.Settings{
		Hysteresis:        3.0,
		MinOnTime:         5 * time.Minute,
		MinOffTime:        5 * time.Minute,
		MaxOnTime:         2 * time.Hour,
		StaleReadInterval: 5 * time.Minute,
		HistoryCapacity:   100,
		MaxHardwareFaults: 2,
	}
}

func newTestMonitor(t *testing.T, relay *mockRelay) (*MonitorContext, *mockStore, *publish.FakePublisher) {
	t.Helper()

	th := thermostat.New(testSettings(), relay, mockDirectory{12: 75}, thermostat.MODE_AUTO)
	store := &mockStore{}
	pub := publish.NewFakePublisher()

	mctx := newMonitorContext(MonitorConfig{
		Store:      store,
		Publisher:  pub,
		Registerer: prometheus.NewRegistry(),
	}, th)
	t.Cleanup(mctx.monitorCancelFunc)

	return mctx, store, pub
}

func pushReadings(t *testing.T, th *thermostat.Thermostat, at time.Time, temperature float64) {
	t.Helper()
	require.NoError(t, th.Push(at, thermostat.READING_TEMPERATURE, at, temperature))
	require.NoError(t, th.Push(at, thermostat.READING_HUMIDITY, at, 45))
}

// drainEvents handles every event queued so far on the calling goroutine.
func drainEvents(mctx *MonitorContext) {
	for {
		select {
		case e := <-mctx.Thermostat.Events():
			mctx.handleEvent(e)
		default:
			return
		}
	}
}

func TestEvaluateAndDispatch(t *testing.T) {
	relay := &mockRelay{}
	mctx, store, pub := newTestMonitor(t, relay)
	pushReadings(t, mctx.Thermostat, testNow, 80)

	d := mctx.evaluate(testNow)
	assert.Equal(t, thermostat.DECISION_ENQUEUED, d.Outcome)
	assert.Equal(t, d, mctx.LastDecision())
	assert.Equal(t, 1.0, testutil.ToFloat64(mctx.metrics.pendingCommands))
	assert.Equal(t, 80.0, testutil.ToFloat64(mctx.metrics.temperature))
	assert.Equal(t, 75.0, testutil.ToFloat64(mctx.metrics.setpoint))

	r := mctx.dispatch(testNow)
	assert.Equal(t, thermostat.DISPATCH_APPLIED, r.Outcome)
	assert.Equal(t, r.Outcome, mctx.LastDispatch().Outcome)
	assert.True(t, relay.on)
	assert.Equal(t, 0.0, testutil.ToFloat64(mctx.metrics.pendingCommands))
	assert.Equal(t, 1.0, testutil.ToFloat64(mctx.metrics.dispatches.WithLabelValues("applied")))

	drainEvents(mctx)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, thermostat.EVENT_RELAY_SWITCHED, events[0].Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(mctx.metrics.relayOn))

	saved := store.saved()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].LastOnAt.Equal(testNow))
}

func TestDispatchPersistsWhenEventsAreDropped(t *testing.T) {
	relay := &mockRelay{}
	mctx, store, _ := newTestMonitor(t, relay)
	pushReadings(t, mctx.Thermostat, testNow, 80)

	// nobody drains the event channel, so it fills up and later events are lost
	for i := 0; i < thermostat.DefaultEventBufferSize; i++ {
		mode := thermostat.MODE_MANUAL
		if i%2 == 1 {
			mode = thermostat.MODE_AUTO
		}
		require.NoError(t, mctx.Thermostat.SetMode(testNow, mode))
	}
	require.Equal(t, thermostat.MODE_AUTO, mctx.Thermostat.Mode())
	require.Len(t, mctx.Thermostat.Events(), thermostat.DefaultEventBufferSize)

	assert.Equal(t, thermostat.DECISION_ENQUEUED, mctx.evaluate(testNow).Outcome)
	assert.Equal(t, thermostat.DISPATCH_APPLIED, mctx.dispatch(testNow).Outcome)
	assert.True(t, relay.on)

	saved := store.saved()
	require.NotEmpty(t, saved)
	assert.True(t, saved[len(saved)-1].LastOnAt.Equal(testNow))
}

func TestPersistOnlyWhenChanged(t *testing.T) {
	mctx, store, _ := newTestMonitor(t, &mockRelay{})

	mctx.persistState()
	assert.Empty(t, store.saved())

	require.NoError(t, mctx.Thermostat.SetMode(testNow, thermostat.MODE_MANUAL))
	drainEvents(mctx)
	mctx.persistState()

	saved := store.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, thermostat.MODE_MANUAL, saved[0].Mode)
}

func TestPersistRetriesAfterStoreFailure(t *testing.T) {
	mctx, store, _ := newTestMonitor(t, &mockRelay{})
	store.err = errors.New("disk full")

	require.NoError(t, mctx.Thermostat.SetMode(testNow, thermostat.MODE_OFF))
	drainEvents(mctx)
	assert.Empty(t, store.saved())

	store.err = nil
	mctx.persistState()
	require.Len(t, store.saved(), 1)
}

func TestStaleDataNotifies(t *testing.T) {
	mctx, _, pub := newTestMonitor(t, &mockRelay{})
	pushReadings(t, mctx.Thermostat, testNow.Add(-time.Hour), 70)

	d := mctx.evaluate(testNow)
	assert.Equal(t, thermostat.DECISION_STALE, d.Outcome)

	drainEvents(mctx)

	select {
	case task := <-mctx.Notification.NotifyCh:
		assert.Contains(t, task.Message, "stale")
	default:
		t.Fatal("expected a stale data notification")
	}

	types := make([]string, 0)
	for _, e := range pub.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{thermostat.EVENT_STALE_DATA, thermostat.EVENT_MODE_CHANGED}, types)
}

func TestFaultEscalationNotifies(t *testing.T) {
	relay := &mockRelay{setErr: errors.New("gpio busy")}
	mctx, _, _ := newTestMonitor(t, relay)
	pushReadings(t, mctx.Thermostat, testNow, 80)

	mctx.evaluate(testNow)
	assert.Equal(t, thermostat.DISPATCH_FAULT, mctx.dispatch(testNow).Outcome)
	assert.Equal(t, thermostat.DISPATCH_FAULT, mctx.dispatch(testNow.Add(time.Minute)).Outcome)
	assert.Equal(t, thermostat.MODE_MANUAL, mctx.Thermostat.Mode())

	drainEvents(mctx)

	assert.Equal(t, 2.0, testutil.ToFloat64(mctx.metrics.events.WithLabelValues(thermostat.EVENT_HARDWARE_FAULT)))
	assert.Len(t, mctx.Notification.NotifyCh, 1)
}

func TestPublishErrorsAreCounted(t *testing.T) {
	mctx, _, pub := newTestMonitor(t, &mockRelay{})
	pub.PublishError = errors.New("broker down")

	mctx.handleEvent(thermostat.Event{Type: thermostat.EVENT_MODE_CHANGED})

	assert.Equal(t, 1.0, testutil.ToFloat64(mctx.metrics.publishErrors))
}

func TestNotifyDoesNotBlock(t *testing.T) {
	mctx, _, _ := newTestMonitor(t, &mockRelay{})

	for i := 0; i < DEFAULT_NOTIFY_BUFFER_SIZE+5; i++ {
		mctx.notify("relay fault")
	}

	assert.Len(t, mctx.Notification.NotifyCh, DEFAULT_NOTIFY_BUFFER_SIZE)
}

func TestMonitorRoutines(t *testing.T) {
	relay := &mockRelay{}
	th := thermostat.New(testSettings(), relay, mockDirectory{0: 75, 3: 75, 6: 75, 9: 75, 12: 75, 15: 75, 18: 75, 21: 75}, thermostat.MODE_AUTO)
	now := time.Now()
	pushReadings(t, th, now, 85)

	store := &mockStore{}
	mctx := InitializeMonitorContext(MonitorConfig{
		DecisionInterval: 10 * time.Millisecond,
		DispatchInterval: 10 * time.Millisecond,
		Store:            store,
		Registerer:       prometheus.NewRegistry(),
	}, th)

	assert.Eventually(t, func() bool {
		on, _ := relay.GetRelayState()
		return on
	}, 2*time.Second, 10*time.Millisecond)

	mctx.CancelAndWait()

	saved := store.saved()
	require.NotEmpty(t, saved)
	assert.False(t, saved[len(saved)-1].LastOnAt.IsZero())
}

func TestSamePersistedState(t *testing.T) {
	a := thermostat.PersistedState{Mode: thermostat.MODE_AUTO, LastOnAt: testNow}
	b := thermostat.PersistedState{Mode: thermostat.MODE_AUTO, LastOnAt: testNow.UTC()}

	assert.True(t, samePersistedState(a, b))

	b.Mode = thermostat.MODE_OFF
	assert.False(t, samePersistedState(a, b))
}
