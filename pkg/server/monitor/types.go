package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/KyleBrandon/thermostat-server/internal/publish"
	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
	"github.com/nikoksr/notify"
	"github.com/prometheus/client_golang/prometheus"
)

const DEFAULT_NOTIFY_BUFFER_SIZE = 16

type (
	NotificationTask struct {
		Message string
	}

	MonitorStore interface {
		SaveState(ctx context.Context, state thermostat.PersistedState) error
	}

	MonitorConfig struct {
		DecisionInterval time.Duration
		DispatchInterval time.Duration
		Store            MonitorStore
		Publisher        publish.Publisher
		Notifier         *notify.Notify
		Registerer       prometheus.Registerer
	}

	// MonitorContext runs the decision and dispatch loops around a Thermostat and
	// fans its events out to the publisher, the SMS notifier and the store.
	MonitorContext struct {
		sync.Mutex
		wg                *sync.WaitGroup
		ctx               context.Context
		monitorCancelFunc context.CancelFunc

		Thermostat *thermostat.Thermostat

		store            MonitorStore
		publisher        publish.Publisher
		metrics          *Metrics
		decisionInterval time.Duration
		dispatchInterval time.Duration
		now              func() time.Time

		lastPersisted thermostat.PersistedState
		lastDecision  thermostat.Decision
		lastDispatch  thermostat.DispatchResult

		Notification struct {
			NotifyCh chan NotificationTask
			notifier *notify.Notify
		}
	}
)
