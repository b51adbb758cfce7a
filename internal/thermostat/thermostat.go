package thermostat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Thermostat owns all mutable control state. A single mutex guards the whole
// aggregate; relay I/O always happens outside of it.
type Thermostat struct {
	mu        sync.Mutex
	settings  Settings
	relay     Relay
	setpoints SetpointDirectory

	readings  map[ReadingKind]*ReadingSeries
	queue     *EventQueue
	mode      Mode
	lastOnAt  time.Time
	lastOffAt time.Time
	faults    int

	events chan Event
}

func New(settings Settings, relay Relay, setpoints SetpointDirectory, initialMode Mode) *Thermostat {
	if !initialMode.IsValid() {
		initialMode = MODE_AUTO
	}
	if settings.MaxClockSkew <= 0 {
		settings.MaxClockSkew = DefaultMaxClockSkew
	}

	return &Thermostat{
		settings:  settings,
		relay:     relay,
		setpoints: setpoints,
		readings: map[ReadingKind]*ReadingSeries{
			READING_TEMPERATURE: NewReadingSeries(settings.HistoryCapacity),
			READING_HUMIDITY:    NewReadingSeries(settings.HistoryCapacity),
		},
		queue:  NewEventQueue(),
		mode:   initialMode,
		events: make(chan Event, DefaultEventBufferSize),
	}
}

func (t *Thermostat) Settings() Settings {
	return t.settings
}

// Events streams state changes. Events are dropped when nobody drains the channel.
func (t *Thermostat) Events() <-chan Event {
	return t.events
}

// emit must be called with the lock held.
func (t *Thermostat) emit(now time.Time, eventType string, relayOn bool, message string) {
	e := Event{
		ID:        uuid.New(),
		Timestamp: now,
		Type:      eventType,
		Mode:      t.mode,
		RelayOn:   relayOn,
		Message:   message,
	}

	select {
	case t.events <- e:
	default:
		slog.Warn("event buffer is full, dropping event", "event", eventType)
	}
}

// Push appends a reading to the series for kind.
func (t *Thermostat) Push(now time.Time, kind ReadingKind, timestamp time.Time, value float64) error {
	return t.PushReadings(now, timestamp, map[ReadingKind]float64{kind: value})
}

// PushReadings appends one sample per kind, all taken at timestamp. Either every
// sample is stored or none is. Timestamps more than MaxClockSkew past now are
// rejected so a bad clock cannot freeze the series.
func (t *Thermostat) PushReadings(now time.Time, timestamp time.Time, values map[ReadingKind]float64) error {
	for kind := range values {
		if !kind.IsValid() {
			return fmt.Errorf("%q: %w", kind, ErrInvalidKind)
		}
	}

	if timestamp.Sub(now) > t.settings.MaxClockSkew {
		return fmt.Errorf("%s is after %s: %w", timestamp.Format(time.RFC3339), now.Format(time.RFC3339), ErrFutureSample)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, value := range values {
		if err := t.readings[kind].Check(timestamp, value); err != nil {
			return fmt.Errorf("append %s reading: %w", kind, err)
		}
	}

	for kind, value := range values {
		t.readings[kind].Append(timestamp, value)
	}

	return nil
}

// Readings returns up to limit of the newest samples for kind, oldest first.
func (t *Thermostat) Readings(kind ReadingKind, limit int) ([]Sample, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%q: %w", kind, ErrInvalidKind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.readings[kind].Samples(limit), nil
}

func (t *Thermostat) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.mode
}

// SetMode changes the mode. Entering OFF clears the queue and schedules an
// immediate forced OFF command. Entering AUTO clears the hardware fault count.
func (t *Thermostat) SetMode(now time.Time, mode Mode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%q: %w", mode, ErrInvalidMode)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	previous := t.mode
	t.mode = mode

	switch mode {
	case MODE_OFF:
		t.queue.ReplaceAll([]ScheduledCommand{
			{ID: uuid.New(), ExecuteAt: now, RelayOn: false, Force: true},
		})
	case MODE_AUTO:
		t.faults = 0
	}

	if previous != mode {
		slog.Info("thermostat mode changed", "from", previous, "to", mode)
		t.emit(now, EVENT_MODE_CHANGED, false, fmt.Sprintf("mode changed from %s to %s", previous, mode))
	}

	return nil
}

// RequestTimer turns the relay on now and off after duration, replacing
// everything that was queued.
func (t *Thermostat) RequestTimer(now time.Time, duration time.Duration) (TimerStatus, error) {
	if duration < t.settings.MinOnTime || duration > t.settings.MaxOnTime {
		return TimerStatus{}, fmt.Errorf("%v not in [%v, %v]: %w",
			duration, t.settings.MinOnTime, t.settings.MaxOnTime, ErrInvalidDuration)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mode == MODE_OFF {
		return TimerStatus{}, ErrRelayForcedOff
	}

	t.queue.ReplaceAll([]ScheduledCommand{
		{ID: uuid.New(), ExecuteAt: now, RelayOn: true},
		{ID: uuid.New(), ExecuteAt: now.Add(duration), RelayOn: false},
	})

	slog.Info("manual timer requested", "duration", duration)

	return TimerStatus{
		RemainingSeconds: duration.Seconds(),
		PendingState:     false,
	}, nil
}

// QueryTimer reports the next command scheduled after now, if any.
func (t *Thermostat) QueryTimer(now time.Time) (TimerStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.queryTimer(now)
}

func (t *Thermostat) queryTimer(now time.Time) (TimerStatus, bool) {
	cmd, ok := t.queue.NextFuture(now)
	if !ok {
		return TimerStatus{}, false
	}

	return TimerStatus{
		RemainingSeconds: cmd.ExecuteAt.Sub(now).Seconds(),
		PendingState:     cmd.RelayOn,
	}, true
}

// Pending returns the queued commands in execution order.
func (t *Thermostat) Pending() []ScheduledCommand {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.queue.Pending()
}

// Restore loads a previously persisted mode and dwell timestamps.
func (t *Thermostat) Restore(state PersistedState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state.Mode.IsValid() {
		t.mode = state.Mode
	}
	t.lastOnAt = state.LastOnAt
	t.lastOffAt = state.LastOffAt
}

func (t *Thermostat) Persisted() PersistedState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return PersistedState{
		Mode:      t.mode,
		LastOnAt:  t.lastOnAt,
		LastOffAt: t.lastOffAt,
	}
}

// Status reads the relay and returns a consistent snapshot of the control state.
func (t *Thermostat) Status(now time.Time, limit int) Status {
	relayOn, relayErr := t.relay.GetRelayState()

	t.mu.Lock()
	defer t.mu.Unlock()

	status := Status{
		Mode:           t.mode,
		RelayOn:        relayOn,
		LastOnAt:       t.lastOnAt,
		LastOffAt:      t.lastOffAt,
		HardwareFaults: t.faults,
		Pending:        t.queue.Pending(),
		Temperature:    t.readings[READING_TEMPERATURE].Samples(limit),
		Humidity:       t.readings[READING_HUMIDITY].Samples(limit),
	}

	if relayErr != nil {
		status.RelayError = relayErr.Error()
	}

	if timer, ok := t.queryTimer(now); ok {
		status.Timer = &timer
	}

	return status
}
