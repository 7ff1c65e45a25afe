package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exposed while a run is in flight.
type Metrics struct {
	UsersMigrated       prometheus.Counter
	UsersFailed         prometheus.Counter
	TransportRetries    prometheus.Counter
	SchemaRegistrations prometheus.Counter
}

// New creates and registers all metrics on the given registerer. Passing
// a fresh registry keeps tests isolated from the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersMigrated: factory.NewCounter(prometheus.CounterOpts{
			Name: "exodus_users_migrated_total",
			Help: "Total number of users delivered to the target platform",
		}),
		UsersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "exodus_users_failed_total",
			Help: "Total number of users that failed to migrate",
		}),
		TransportRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "exodus_transport_retries_total",
			Help: "Total number of retried outbound calls",
		}),
		SchemaRegistrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "exodus_schema_registrations_total",
			Help: "Total number of custom attribute registration calls issued",
		}),
	}
}
