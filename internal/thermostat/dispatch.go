package thermostat

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	DISPATCH_IDLE     DispatchOutcome = "idle"
	DISPATCH_NOOP     DispatchOutcome = "noop"
	DISPATCH_DEFERRED DispatchOutcome = "deferred"
	DISPATCH_APPLIED  DispatchOutcome = "applied"
	DISPATCH_FAULT    DispatchOutcome = "fault"
)

type (
	DispatchOutcome string

	DispatchResult struct {
		Outcome DispatchOutcome
		Command ScheduledCommand
		Err     error
	}
)

// Dispatch applies at most one due command. A command that fails in hardware is
// put back for the next tick unless the queue was replaced in the meantime.
func (t *Thermostat) Dispatch(now time.Time) DispatchResult {
	relayOn, relayErr := t.relay.GetRelayState()

	t.mu.Lock()
	cmd, ok := t.queue.PeekReady(now)
	if !ok {
		t.mu.Unlock()
		return DispatchResult{Outcome: DISPATCH_IDLE}
	}

	if relayErr != nil {
		err := fmt.Errorf("read relay state: %w: %w", ErrHardwareFault, relayErr)
		t.recordFault(now, cmd, err)
		t.mu.Unlock()
		return DispatchResult{Outcome: DISPATCH_FAULT, Command: cmd, Err: err}
	}

	if cmd.RelayOn == relayOn {
		t.queue.PopReady(now)
		t.mu.Unlock()
		slog.Debug("relay already in the requested state", "relay_on", relayOn, "command", cmd.ID)
		return DispatchResult{Outcome: DISPATCH_NOOP, Command: cmd}
	}

	if !cmd.Force && t.violatesDwell(now, cmd.RelayOn) {
		t.mu.Unlock()
		slog.Info("deferring relay command until dwell time has passed", "relay_on", cmd.RelayOn, "command", cmd.ID)
		return DispatchResult{Outcome: DISPATCH_DEFERRED, Command: cmd}
	}

	t.queue.PopReady(now)
	generation := t.queue.Generation()
	t.mu.Unlock()

	setErr := t.relay.SetRelayState(cmd.RelayOn)

	t.mu.Lock()
	defer t.mu.Unlock()

	if setErr != nil {
		err := fmt.Errorf("set relay to %v: %w: %w", cmd.RelayOn, ErrHardwareFault, setErr)
		if generation == t.queue.Generation() {
			t.queue.requeue(cmd)
		}
		t.recordFault(now, cmd, err)
		return DispatchResult{Outcome: DISPATCH_FAULT, Command: cmd, Err: err}
	}

	t.faults = 0
	if cmd.RelayOn {
		t.lastOnAt = now
	} else {
		t.lastOffAt = now
	}

	slog.Info("setting relay", "relay_on", cmd.RelayOn, "command", cmd.ID)
	t.emit(now, EVENT_RELAY_SWITCHED, cmd.RelayOn, "")

	return DispatchResult{Outcome: DISPATCH_APPLIED, Command: cmd}
}

// recordFault counts a failed actuation and escalates to MANUAL once the limit
// of consecutive faults is reached. Must be called with the lock held.
func (t *Thermostat) recordFault(now time.Time, cmd ScheduledCommand, err error) {
	t.faults++
	slog.Error("relay actuation failed", "error", err, "command", cmd.ID, "faults", t.faults)
	t.emit(now, EVENT_HARDWARE_FAULT, cmd.RelayOn, err.Error())

	limit := t.settings.MaxHardwareFaults
	if limit > 0 && t.faults >= limit && t.mode == MODE_AUTO {
		t.mode = MODE_MANUAL
		slog.Error("too many relay faults, setting mode to manual", "faults", t.faults)
		t.emit(now, EVENT_FAULT_ESCALATE, cmd.RelayOn, fmt.Sprintf("%d consecutive relay faults, mode set to manual", t.faults))
		t.emit(now, EVENT_MODE_CHANGED, cmd.RelayOn, "mode changed from auto to manual")
	}
}
