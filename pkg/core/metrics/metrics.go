package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"google.golang.org/grpc/codes"
)

// Metrics holds the Prometheus metrics of one harness run
type Metrics struct {
	registry *prometheus.Registry

	CallsTotal       *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	OperationsFailed prometheus.Counter
	RunDuration      prometheus.Gauge
}

// New creates all metrics on a private registry so repeated runs in one
// process do not collide
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bankprobe_calls_total",
			Help: "Total number of bank API calls by method and status code",
		}, []string{"method", "code"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bankprobe_call_duration_seconds",
			Help:    "Duration of bank API calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		OperationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankprobe_operations_failed_total",
			Help: "Total number of catalog operations that ended in a failure",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bankprobe_run_duration_seconds",
			Help: "Wall time of the last complete run",
		}),
	}
}

// Registry exposes the registry, e.g. for an HTTP handler or tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCall records one finished call. It satisfies the client metrics
// interceptor's recorder interface.
func (m *Metrics) ObserveCall(method string, code codes.Code, duration time.Duration) {
	m.CallsTotal.WithLabelValues(method, code.String()).Inc()
	m.CallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveRun records the outcome totals of a run
func (m *Metrics) ObserveRun(failed int, duration time.Duration) {
	m.OperationsFailed.Add(float64(failed))
	m.RunDuration.Set(duration.Seconds())
}

// Push sends the current values to a Prometheus Pushgateway under job,
// grouped by the calling institution
func (m *Metrics) Push(ctx context.Context, url, job, bankID string) error {
	err := push.New(url, job).
		Gatherer(m.registry).
		Grouping("bank_id", bankID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
