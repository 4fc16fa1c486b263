package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records orchestration metrics with Prometheus.
type Collector struct {
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	chains             *prometheus.CounterVec
	chainSteps         prometheus.Histogram
	pipelines          *prometheus.CounterVec
	pipelineDuration   *prometheus.HistogramVec
	queueDepth         prometheus.Gauge
	queueDrained       *prometheus.CounterVec
}

// NewCollector registers the collectors on the default registry. Call it
// once per process.
func NewCollector() *Collector {
	return &Collector{
		invocations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seekerd_invocations_total",
				Help: "Total number of unit invocations",
			},
			[]string{"unit", "status"},
		),
		invocationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seekerd_invocation_duration_seconds",
				Help:    "Unit invocation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"unit"},
		),
		chains: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seekerd_chains_total",
				Help: "Total number of chain runs",
			},
			[]string{"outcome"},
		),
		chainSteps: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seekerd_chain_steps",
				Help:    "Number of results produced per chain run",
				Buckets: []float64{1, 2, 3, 5, 8, 10},
			},
		),
		pipelines: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seekerd_pipelines_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"pipeline", "status"},
		),
		pipelineDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seekerd_pipeline_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"pipeline"},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "seekerd_queue_depth",
				Help: "Current number of queued tasks",
			},
		),
		queueDrained: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seekerd_queue_drained_total",
				Help: "Total number of queue items processed",
			},
			[]string{"status"},
		),
	}
}

// RecordInvocation counts one unit invocation and its duration.
func (c *Collector) RecordInvocation(unit, status string, duration time.Duration) {
	c.invocations.WithLabelValues(unit, status).Inc()
	c.invocationDuration.WithLabelValues(unit).Observe(duration.Seconds())
}

// RecordChain counts one chain run and how many results it produced.
func (c *Collector) RecordChain(outcome string, steps int) {
	c.chains.WithLabelValues(outcome).Inc()
	c.chainSteps.Observe(float64(steps))
}

// RecordPipeline counts one pipeline run.
func (c *Collector) RecordPipeline(pipeline, status string, duration time.Duration) {
	c.pipelines.WithLabelValues(pipeline, status).Inc()
	c.pipelineDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// SetQueueDepth publishes the current queue size.
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// RecordQueueItem counts one drained queue item.
func (c *Collector) RecordQueueItem(status string) {
	c.queueDrained.WithLabelValues(status).Inc()
}
