package monitor

import (
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	decisions       *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	events          *prometheus.CounterVec
	publishErrors   prometheus.Counter
	relayOn         prometheus.Gauge
	temperature     prometheus.Gauge
	setpoint        prometheus.Gauge
	pendingCommands prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermostat_decisions_total",
			Help: "Decision engine ticks by outcome.",
		}, []string{"outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermostat_dispatches_total",
			Help: "Dispatcher ticks by outcome.",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermostat_events_total",
			Help: "Thermostat events by type.",
		}, []string{"event"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermostat_publish_errors_total",
			Help: "Events that could not be published to the message bus.",
		}),
		relayOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermostat_relay_on",
			Help: "1 while the cooling relay is energized.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermostat_temperature",
			Help: "Temperature used by the last decision.",
		}),
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermostat_setpoint",
			Help: "Setpoint used by the last decision.",
		}),
		pendingCommands: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermostat_pending_commands",
			Help: "Scheduled relay commands waiting in the queue.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.decisions,
			m.dispatches,
			m.events,
			m.publishErrors,
			m.relayOn,
			m.temperature,
			m.setpoint,
			m.pendingCommands,
		)
	}

	return m
}

func (m *Metrics) observeDecision(d thermostat.Decision) {
	m.decisions.WithLabelValues(string(d.Outcome)).Inc()

	switch d.Outcome {
	case thermostat.DECISION_SKIPPED, thermostat.DECISION_STALE, thermostat.DECISION_RELAY_UNKNOWN:
		return
	}

	m.temperature.Set(d.Temperature)
	if d.Outcome != thermostat.DECISION_NO_SETPOINT {
		m.setpoint.Set(d.Setpoint)
	}
}

func (m *Metrics) observeDispatch(r thermostat.DispatchResult) {
	m.dispatches.WithLabelValues(string(r.Outcome)).Inc()
}

func (m *Metrics) observeEvent(e thermostat.Event) {
	m.events.WithLabelValues(e.Type).Inc()

	if e.Type == thermostat.EVENT_RELAY_SWITCHED {
		m.relayOn.Set(boolToFloat(e.RelayOn))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
