package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writeBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_write_batches_total",
		Help: "Total number of write batches issued from console panels.",
	}, []string{"panel", "action", "outcome"})
	writeOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_write_ops_total",
		Help: "Total number of individual write operations sent to the configuration service.",
	}, []string{"panel", "action"})
	writeBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_write_batch_duration_seconds",
		Help:    "Duration of write batches, including all concurrent operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"panel", "action"})
	eventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_config_event_publish_failures_total",
		Help: "Total number of config change events that could not be published.",
	})
)

func observeWrite(panel, action string, ops int, err error, took time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	writeBatchesTotal.WithLabelValues(panel, action, outcome).Inc()
	writeOpsTotal.WithLabelValues(panel, action).Add(float64(ops))
	writeBatchDuration.WithLabelValues(panel, action).Observe(took.Seconds())
}
