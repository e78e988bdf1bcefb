package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

var (
	registerOnce sync.Once

	commandExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simbridge",
			Subsystem: "command",
			Name:      "executions_total",
			Help:      "Engine command executions by outcome.",
		},
		[]string{"backend", "command", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "simbridge",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Engine command round trip duration in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend", "command"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simbridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total diagnostics HTTP requests.",
		},
		[]string{"backend", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandExecutions, commandDuration, httpRequests)
	})
}

// RecordCommand counts one command execution. Skipped commands never reached
// the engine and are not timed.
func RecordCommand(backend, command, outcome string, duration time.Duration) {
	RegisterMetrics()
	commandExecutions.WithLabelValues(backend, command, outcome).Inc()
	if outcome != OutcomeSkipped {
		commandDuration.WithLabelValues(backend, command).Observe(duration.Seconds())
	}
}

func RecordHTTPRequest(backend, method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(backend, method, path, strconv.Itoa(status)).Inc()
}
