package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tabia/api/internal/instance"
)

type Options struct {
	Labels prometheus.Labels
}

type Instance struct {
	connectionsOpen     prometheus.Gauge
	presenceEntries     prometheus.Gauge
	broadcastsPublished prometheus.Counter
	commandsHandled     prometheus.Counter
	commandsRejected    prometheus.Counter
}

func New(o Options) instance.Prometheus {
	return &Instance{
		connectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tabia_realtime_connections_open",
			Help:        "Number of open websocket connections",
			ConstLabels: o.Labels,
		}),
		presenceEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tabia_realtime_presence_entries",
			Help:        "Number of (session, user) presence entries",
			ConstLabels: o.Labels,
		}),
		broadcastsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tabia_realtime_broadcasts_published_total",
			Help:        "Total updates published to session topics",
			ConstLabels: o.Labels,
		}),
		commandsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tabia_realtime_commands_handled_total",
			Help:        "Total realtime commands that succeeded",
			ConstLabels: o.Labels,
		}),
		commandsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tabia_realtime_commands_rejected_total",
			Help:        "Total realtime commands rejected by authorization or mutation",
			ConstLabels: o.Labels,
		}),
	}
}

func (m *Instance) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.connectionsOpen,
		m.presenceEntries,
		m.broadcastsPublished,
		m.commandsHandled,
		m.commandsRejected,
	)
}

func (m *Instance) ConnectionsOpen() prometheus.Gauge       { return m.connectionsOpen }
func (m *Instance) PresenceEntries() prometheus.Gauge       { return m.presenceEntries }
func (m *Instance) BroadcastsPublished() prometheus.Counter { return m.broadcastsPublished }
func (m *Instance) CommandsHandled() prometheus.Counter     { return m.commandsHandled }
func (m *Instance) CommandsRejected() prometheus.Counter    { return m.commandsRejected }
