/*
Package metrics exposes Trogdor's Prometheus instrumentation: fault counts
by lifecycle state, fault activation/deactivation and hook-error counts,
scheduler wake latency, HTTP request counts/durations for both daemons, and
NodeManager delivery health.
Grounded on the teacher's pkg/metrics package (prometheus/client_golang
MustRegister-at-init idiom and the Timer helper), with the container/Raft/
ingress metric families replaced by Trogdor's own.
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FaultsByState tracks how many faults are currently in each lifecycle
	// state, labeled by daemon ("agent" | "coordinator") and state.
	FaultsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trogdor_faults_by_state",
			Help: "Number of faults currently in each lifecycle state",
		},
		[]string{"daemon", "state"},
	)

	// FaultActivationsTotal counts every successful PENDING->ACTIVE
	// transition, labeled by fault kind.
	FaultActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trogdor_fault_activations_total",
			Help: "Total number of faults that transitioned to ACTIVE",
		},
		[]string{"kind"},
	)

	// FaultDeactivationsTotal counts every ACTIVE->FINISHED transition,
	// labeled by fault kind.
	FaultDeactivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trogdor_fault_deactivations_total",
			Help: "Total number of faults that transitioned to FINISHED",
		},
		[]string{"kind"},
	)

	// HookErrorsTotal counts activate/deactivate hook failures, labeled by
	// phase ("activate" | "deactivate").
	HookErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trogdor_hook_errors_total",
			Help: "Total number of fault hook failures",
		},
		[]string{"phase"},
	)

	// SchedulerWakeLatency measures how far a scheduler pass ran past its
	// intended wake time, labeled by daemon.
	SchedulerWakeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trogdor_scheduler_wake_latency_seconds",
			Help:    "Delay between a scheduler's intended wake time and when it actually ran",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"daemon"},
	)

	// HTTPRequestsTotal counts every request handled by either daemon's
	// HTTP surface, labeled by daemon, method, path and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trogdor_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"daemon", "method", "path", "status"},
	)

	// HTTPRequestDuration measures handler latency, labeled by daemon,
	// method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trogdor_http_request_duration_seconds",
			Help:    "HTTP handler latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"daemon", "method", "path"},
	)

	// NodeManagerDeliveryAttemptsTotal counts every send_fault attempt,
	// labeled by node and outcome ("success" | "failure").
	NodeManagerDeliveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trogdor_node_manager_delivery_attempts_total",
			Help: "Total number of fault delivery attempts by a NodeManager",
		},
		[]string{"node", "outcome"},
	)

	// NodeManagerHeartbeatLatency measures GET /status round-trip time,
	// labeled by node.
	NodeManagerHeartbeatLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trogdor_node_manager_heartbeat_latency_seconds",
			Help:    "NodeManager heartbeat round-trip latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	// NodeManagerHeartbeatFailuresTotal counts failed heartbeats, labeled
	// by node.
	NodeManagerHeartbeatFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trogdor_node_manager_heartbeat_failures_total",
			Help: "Total number of failed NodeManager heartbeats",
		},
		[]string{"node"},
	)
)

func init() {
	prometheus.MustRegister(FaultsByState)
	prometheus.MustRegister(FaultActivationsTotal)
	prometheus.MustRegister(FaultDeactivationsTotal)
	prometheus.MustRegister(HookErrorsTotal)
	prometheus.MustRegister(SchedulerWakeLatency)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(NodeManagerDeliveryAttemptsTotal)
	prometheus.MustRegister(NodeManagerHeartbeatLatency)
	prometheus.MustRegister(NodeManagerHeartbeatFailuresTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
