package thermostat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	DECISION_SKIPPED       DecisionOutcome = "skipped"
	DECISION_STALE         DecisionOutcome = "stale"
	DECISION_NO_SETPOINT   DecisionOutcome = "no_setpoint"
	DECISION_RELAY_UNKNOWN DecisionOutcome = "relay_unknown"
	DECISION_DEAD_BAND     DecisionOutcome = "dead_band"
	DECISION_UNCHANGED     DecisionOutcome = "unchanged"
	DECISION_SUPPRESSED    DecisionOutcome = "suppressed"
	DECISION_PENDING       DecisionOutcome = "pending"
	DECISION_ENQUEUED      DecisionOutcome = "enqueued"
)

type (
	DecisionOutcome string

	Decision struct {
		Outcome     DecisionOutcome
		Temperature float64
		Setpoint    float64
		RelayOn     bool
		Desired     bool
		Command     ScheduledCommand
	}
)

// Evaluate runs one hysteresis tick. It never returns an error: stale data,
// missing setpoints and unreadable relays all end the tick without a command.
func (t *Thermostat) Evaluate(ctx context.Context, now time.Time) Decision {
	if mode := t.Mode(); mode != MODE_AUTO {
		slog.Info("decision skipped", "mode", mode)
		return Decision{Outcome: DECISION_SKIPPED}
	}

	// slow lookups happen before taking the lock
	setpoint, setpointErr := GetSetpoint(ctx, now.Hour(), t.setpoints)
	relayOn, relayErr := t.relay.GetRelayState()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mode != MODE_AUTO {
		slog.Info("decision skipped", "mode", t.mode)
		return Decision{Outcome: DECISION_SKIPPED}
	}

	threshold := t.settings.StaleReadInterval
	if t.readings[READING_TEMPERATURE].IsStale(now, threshold) || t.readings[READING_HUMIDITY].IsStale(now, threshold) {
		t.mode = MODE_MANUAL
		slog.Error("readings are stale, setting mode to manual", "error", ErrStaleData, "threshold", threshold)
		t.emit(now, EVENT_STALE_DATA, relayOn, "readings are stale, mode set to manual")
		t.emit(now, EVENT_MODE_CHANGED, relayOn, "mode changed from auto to manual")
		return Decision{Outcome: DECISION_STALE}
	}

	latest, _ := t.readings[READING_TEMPERATURE].Latest()
	decision := Decision{
		Temperature: latest.Value,
		Setpoint:    setpoint,
		RelayOn:     relayOn,
	}

	if relayErr == nil && t.exceedsMaxOn(now, relayOn) {
		slog.Warn("relay exceeded the maximum on time", "last_on_at", t.lastOnAt, "max_on_time", t.settings.MaxOnTime)
		decision.Desired = false
		return t.enqueue(now, decision, false, true)
	}

	if setpointErr != nil {
		if errors.Is(setpointErr, ErrMissingSetpoint) {
			slog.Warn("no setpoint for the current hour", "hour", now.Hour())
		} else {
			slog.Error("failed to read the setpoint", "error", setpointErr)
		}
		decision.Outcome = DECISION_NO_SETPOINT
		return decision
	}

	if relayErr != nil {
		slog.Error("failed to read the relay state", "error", relayErr)
		decision.Outcome = DECISION_RELAY_UNKNOWN
		return decision
	}

	desired, ok := t.desiredState(latest.Value, setpoint)
	if !ok {
		decision.Outcome = DECISION_DEAD_BAND
		return decision
	}

	decision.Desired = desired
	if desired == relayOn {
		decision.Outcome = DECISION_UNCHANGED
		return decision
	}

	if t.violatesDwell(now, desired) {
		slog.Info("relay change suppressed by dwell time", "relay_on", desired,
			"last_on_at", t.lastOnAt, "last_off_at", t.lastOffAt)
		decision.Outcome = DECISION_SUPPRESSED
		return decision
	}

	return t.enqueue(now, decision, desired, false)
}

// enqueue schedules desired for now unless the last ready command already
// requests it. Must be called with the lock held.
func (t *Thermostat) enqueue(now time.Time, decision Decision, desired bool, force bool) Decision {
	if last, ok := t.queue.LastReady(now); ok && last.RelayOn == desired {
		decision.Outcome = DECISION_PENDING
		return decision
	}

	cmd := ScheduledCommand{
		ID:        uuid.New(),
		ExecuteAt: now,
		RelayOn:   desired,
		Force:     force,
	}
	t.queue.Push(cmd)

	slog.Warn("scheduling relay change", "temperature", decision.Temperature, "setpoint", decision.Setpoint,
		"relay_on", desired, "forced", force)

	decision.Outcome = DECISION_ENQUEUED
	decision.Command = cmd
	return decision
}

// exceedsMaxOn reports whether the relay has been on past the maximum on time.
// It does not depend on the setpoint. Must be called with the lock held.
func (t *Thermostat) exceedsMaxOn(now time.Time, relayOn bool) bool {
	return relayOn && !t.lastOnAt.IsZero() && now.Sub(t.lastOnAt) > t.settings.MaxOnTime
}

// desiredState applies the hysteresis band. ok is false inside the dead band.
func (t *Thermostat) desiredState(temperature, setpoint float64) (desired bool, ok bool) {
	half := t.settings.Hysteresis / 2.0
	switch {
	case temperature-setpoint > half:
		return true, true
	case setpoint-temperature > half:
		return false, true
	}

	return false, false
}

// violatesDwell must be called with the lock held.
func (t *Thermostat) violatesDwell(now time.Time, relayOn bool) bool {
	if relayOn {
		return !t.lastOffAt.IsZero() && now.Sub(t.lastOffAt) < t.settings.MinOffTime
	}

	return !t.lastOnAt.IsZero() && now.Sub(t.lastOnAt) < t.settings.MinOnTime
}
