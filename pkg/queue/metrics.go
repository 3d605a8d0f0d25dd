package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// registerer is the subset of prometheus.Registerer the queue needs
type registerer = prometheus.Registerer

type queueMetrics struct {
	pending  prometheus.Gauge
	retrying prometheus.Gauge
	attempts prometheus.Counter
}

func newQueueMetrics(reg prometheus.Registerer) *queueMetrics {
	return &queueMetrics{
		pending: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fieldops_pending_poster_logs",
			Help: "Number of poster logs waiting in the offline retry queue.",
		}),
		retrying: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fieldops_queue_flush_active",
			Help: "Whether a queue flush pass is currently running.",
		}),
		attempts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fieldops_queue_retry_attempts_total",
			Help: "Total retry attempts made by the offline queue.",
		}),
	}
}
