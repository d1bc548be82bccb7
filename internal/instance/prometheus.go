package instance

import "github.com/prometheus/client_golang/prometheus"

type Prometheus interface {
	Register(r prometheus.Registerer)

	ConnectionsOpen() prometheus.Gauge
	PresenceEntries() prometheus.Gauge
	BroadcastsPublished() prometheus.Counter
	CommandsHandled() prometheus.Counter
	CommandsRejected() prometheus.Counter
}
