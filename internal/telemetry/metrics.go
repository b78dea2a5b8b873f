package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/flowgraph/internal/domain"
)

// Metrics — Prometheus метрики движка.
//
// Реализует engine.Observer: передаётся в engine.Config.Observer.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runsInProgress prometheus.Gauge
	runDuration    prometheus.Histogram
	nodesTotal     *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_runs_total",
			Help: "Total number of graph runs by final status",
		}, []string{"status"}),

		runsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flowgraph_runs_in_progress",
			Help: "Number of graph runs currently executing",
		}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowgraph_run_duration_seconds",
			Help:    "Graph run duration",
			Buckets: prometheus.DefBuckets,
		}),

		nodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_node_executions_total",
			Help: "Total number of node executions by type and status",
		}, []string{"type", "status"}),

		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgraph_node_duration_seconds",
			Help:    "Node execution duration by type",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

// RunStarted учитывает начало run.
func (m *Metrics) RunStarted(*domain.Run) {
	m.runsInProgress.Inc()
}

// NodeExecuted учитывает выполнение узла.
func (m *Metrics) NodeExecuted(_ *domain.Run, exec *domain.NodeExecution) {
	m.nodesTotal.WithLabelValues(exec.Type, string(exec.Status)).Inc()
	m.nodeDuration.WithLabelValues(exec.Type).Observe(exec.Duration().Seconds())
}

// RunFinished учитывает завершение run.
func (m *Metrics) RunFinished(run *domain.Run) {
	m.runsInProgress.Dec()
	m.runsTotal.WithLabelValues(string(run.Status)).Inc()
	m.runDuration.Observe(run.Duration().Seconds())
}
