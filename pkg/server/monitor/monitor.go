package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/publish"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

// InitializeMonitorContext will create the monitor and start its go routines.
func InitializeMonitorContext(cfg MonitorConfig, t *thermostat.Thermostat) *MonitorContext {
	slog.Debug(">>InitializeMonitorContext")
	defer slog.Debug("<<InitializeMonitorContext")

	mctx := newMonitorContext(cfg, t)
	mctx.startMonitorRoutines()

	return mctx
}

func newMonitorContext(cfg MonitorConfig, t *thermostat.Thermostat) *MonitorContext {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	mctx := MonitorContext{
		wg:                &wg,
		ctx:               ctx,
		monitorCancelFunc: cancel,
		Thermostat:        t,
		store:             cfg.Store,
		publisher:         cfg.Publisher,
		metrics:           NewMetrics(cfg.Registerer),
		decisionInterval:  cfg.DecisionInterval,
		dispatchInterval:  cfg.DispatchInterval,
		now:               time.Now,
		lastPersisted:     t.Persisted(),
	}

	if mctx.publisher == nil {
		mctx.publisher = publish.NopPublisher{}
	}
	if mctx.decisionInterval <= 0 {
		mctx.decisionInterval = time.Minute
	}
	if mctx.dispatchInterval <= 0 {
		mctx.dispatchInterval = time.Minute
	}

	mctx.Notification.NotifyCh = make(chan NotificationTask, DEFAULT_NOTIFY_BUFFER_SIZE)
	mctx.Notification.notifier = cfg.Notifier

	return &mctx
}

// CancelAndWait for the monitor routines to exit.
func (mctx *MonitorContext) CancelAndWait() {
	mctx.monitorCancelFunc()

	mctx.wg.Wait()

	// catch anything that changed after the last event was handled
	mctx.persistState()
}

func (mctx *MonitorContext) startMonitorRoutines() {
	mctx.wg.Add(1)
	go mctx.monitorNotifications()

	mctx.wg.Add(1)
	go mctx.monitorEvents()

	mctx.wg.Add(1)
	go mctx.monitorDecisions()

	mctx.wg.Add(1)
	go mctx.monitorDispatch()
}

func (mctx *MonitorContext) monitorDecisions() {
	slog.Debug(">>monitorDecisions")
	defer slog.Debug("<<monitorDecisions")

	defer mctx.wg.Done()

	ticker := time.NewTicker(mctx.decisionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorDecisions: context done")
			return

		case <-ticker.C:
			mctx.evaluate(mctx.now())
		}
	}
}

func (mctx *MonitorContext) evaluate(now time.Time) thermostat.Decision {
	d := mctx.Thermostat.Evaluate(mctx.ctx, now)
	slog.Debug("decision", "outcome", d.Outcome, "temperature", d.Temperature, "setpoint", d.Setpoint, "relay_on", d.RelayOn)

	mctx.metrics.observeDecision(d)
	mctx.metrics.pendingCommands.Set(float64(len(mctx.Thermostat.Pending())))

	mctx.Lock()
	mctx.lastDecision = d
	mctx.Unlock()

	// a stale tick changes the mode
	mctx.persistState()

	return d
}

func (mctx *MonitorContext) monitorDispatch() {
	slog.Debug(">>monitorDispatch")
	defer slog.Debug("<<monitorDispatch")

	defer mctx.wg.Done()

	ticker := time.NewTicker(mctx.dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorDispatch: context done")
			return

		case <-ticker.C:
			mctx.dispatch(mctx.now())
		}
	}
}

func (mctx *MonitorContext) dispatch(now time.Time) thermostat.DispatchResult {
	r := mctx.Thermostat.Dispatch(now)
	if r.Outcome != thermostat.DISPATCH_IDLE {
		slog.Debug("dispatch", "outcome", r.Outcome, "command", r.Command.ID, "error", r.Err)
	}

	mctx.metrics.observeDispatch(r)
	mctx.metrics.pendingCommands.Set(float64(len(mctx.Thermostat.Pending())))

	mctx.Lock()
	mctx.lastDispatch = r
	mctx.Unlock()

	// events can be dropped when the buffer is full, so the tick saves the
	// dwell timestamps itself
	mctx.persistState()

	return r
}

// LastDecision returns the outcome of the most recent decision tick.
func (mctx *MonitorContext) LastDecision() thermostat.Decision {
	mctx.Lock()
	defer mctx.Unlock()

	return mctx.lastDecision
}

func (mctx *MonitorContext) LastDispatch() thermostat.DispatchResult {
	mctx.Lock()
	defer mctx.Unlock()

	return mctx.lastDispatch
}

func (mctx *MonitorContext) monitorEvents() {
	slog.Debug(">>monitorEvents")
	defer slog.Debug("<<monitorEvents")

	defer mctx.wg.Done()

	events := mctx.Thermostat.Events()
	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorEvents: context done")
			return

		case e := <-events:
			mctx.handleEvent(e)
		}
	}
}

func (mctx *MonitorContext) handleEvent(e thermostat.Event) {
	slog.Info("thermostat event", "event", e.Type, "mode", e.Mode, "relay_on", e.RelayOn, "message", e.Message)

	mctx.metrics.observeEvent(e)

	ctx, cancel := context.WithTimeout(mctx.ctx, 5*time.Second)
	defer cancel()

	if err := mctx.publisher.Publish(ctx, e); err != nil {
		mctx.metrics.publishErrors.Inc()
		slog.Error("failed to publish event", "event", e.Type, "error", err)
	}

	switch e.Type {
	case thermostat.EVENT_FAULT_ESCALATE, thermostat.EVENT_STALE_DATA:
		mctx.notify(e.Message)

	case thermostat.EVENT_MODE_CHANGED, thermostat.EVENT_RELAY_SWITCHED:
		mctx.persistState()
	}
}

// persistState saves the mode and dwell timestamps when they changed since the last save.
func (mctx *MonitorContext) persistState() {
	if mctx.store == nil {
		return
	}

	state := mctx.Thermostat.Persisted()

	mctx.Lock()
	defer mctx.Unlock()

	if samePersistedState(state, mctx.lastPersisted) {
		return
	}

	if err := mctx.store.SaveState(context.Background(), state); err != nil {
		slog.Error("failed to save the controller state", "error", err)
		return
	}

	mctx.lastPersisted = state
}

func samePersistedState(a, b thermostat.PersistedState) bool {
	return a.Mode == b.Mode && a.LastOnAt.Equal(b.LastOnAt) && a.LastOffAt.Equal(b.LastOffAt)
}

// notify queues an SMS without blocking the caller.
func (mctx *MonitorContext) notify(message string) {
	select {
	case mctx.Notification.NotifyCh <- NotificationTask{Message: message}:
	default:
		slog.Warn("notification queue is full, dropping message", "message", message)
	}
}

func (mctx *MonitorContext) monitorNotifications() {
	slog.Debug(">>monitorNotifications")
	defer slog.Debug("<<monitorNotifications")

	defer mctx.wg.Done()
	for {
		select {
		case <-mctx.ctx.Done():
			slog.Debug("monitorNotifications: context done")
			return

		case task, ok := <-mctx.Notification.NotifyCh:
			if !ok {
				slog.Error("The notification channel was closed")
				return
			}

			// Send the SMS
			if mctx.Notification.notifier != nil {
				err := mctx.Notification.notifier.Send(
					context.Background(),
					"Thermostat Notification",
					task.Message,
				)
				if err != nil {
					slog.Error("failed to send message", "error", err, "message", task.Message)
				}
			} else {
				slog.Warn("Notifier is not registered for notifications", "message", task.Message)
			}
		}
	}
}

// Status is the thermostat snapshot used by the status endpoints.
func (mctx *MonitorContext) Status(now time.Time, limit int) thermostat.Status {
	return mctx.Thermostat.Status(now, limit)
}
