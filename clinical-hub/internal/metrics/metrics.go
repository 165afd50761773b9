// Package metrics exposes workflow counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

// Recorder satisfies workflow.Observer.
type Recorder struct {
	registry        *prometheus.Registry
	decisionsTotal  *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	adapterDuration *prometheus.HistogramVec
	batchesTotal    *prometheus.CounterVec
}

// NewRecorder registers the workflow collectors on a private registry
// together with the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinical_workflow_decisions_total",
				Help: "Total number of assigned clinical decisions",
			},
			[]string{"decision_type"},
		),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinical_workflow_actions_total",
				Help: "Total number of automated actions by outcome",
			},
			[]string{"action_type", "status"},
		),
		adapterDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinical_workflow_adapter_duration_seconds",
				Help:    "Time spent in subsystem adapters per action",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action_type"},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinical_workflow_bulk_batches_total",
				Help: "Total number of bulk workflow batches",
			},
			[]string{"workflow_type"},
		),
	}
	r.registry.MustRegister(
		r.decisionsTotal,
		r.actionsTotal,
		r.adapterDuration,
		r.batchesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) DecisionAssigned(t models.DecisionType) {
	r.decisionsTotal.WithLabelValues(string(t)).Inc()
}

func (r *Recorder) ActionFinished(t models.ActionType, status models.ActionStatus, elapsed time.Duration) {
	r.actionsTotal.WithLabelValues(string(t), string(status)).Inc()
	r.adapterDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
}

func (r *Recorder) BatchAssigned(w models.WorkflowType) {
	r.batchesTotal.WithLabelValues(string(w)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for callers adding their own collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
