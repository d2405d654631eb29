package eventbus

import "github.com/prometheus/client_golang/prometheus"

// Unlike cuemby-warren's metrics package (which registers onto the global
// prometheus.DefaultRegisterer from an init()), this is a library: it
// gets embedded into arbitrary hosts, so its collectors live on a
// private registry a host opts into via Registry(), rather than
// silently claiming names on whatever registry the host already runs.
var metricsRegistry = prometheus.NewRegistry()

var (
	callbackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventbus_callback_duration_seconds",
			Help:    "Wall-clock duration of vetoer and subscriber callbacks.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "source"}, // kind: "vetoer" | "subscriber"
	)

	callbackErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_callback_errors_total",
			Help: "Total number of vetoer/subscriber callbacks that threw.",
		},
		[]string{"kind", "source"},
	)

	reaperWeakCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventbus_reaper_weak_count",
			Help: "Current count of weak and weak-strength-proxy cells across all index maps.",
		},
	)

	reaperStaleCellsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_reaper_stale_cells_total",
			Help: "Total number of stale cells removed by reaper sweeps.",
		},
	)

	reaperSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_reaper_sweeps_total",
			Help: "Total number of reaper ticks, partitioned by outcome.",
		},
		[]string{"outcome"}, // "cancelled" | "swept"
	)
)

func init() {
	metricsRegistry.MustRegister(
		callbackDuration,
		callbackErrorsTotal,
		reaperWeakCount,
		reaperStaleCellsTotal,
		reaperSweepsTotal,
	)
}

// Registry returns the Prometheus registry this package's collectors are
// registered on, for a host to gather alongside its own metrics (e.g.
// prometheus.Gatherers{host.Registry(), eventbus.Registry()}).
func Registry() *prometheus.Registry {
	return metricsRegistry
}
