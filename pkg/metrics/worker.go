package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records processing metadata for background workers (the
// indexer reconciler and the event publisher).
type WorkerMetrics struct {
	batchDuration *prometheus.HistogramVec
	processed     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	checkpoint    *prometheus.GaugeVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_batch_duration_seconds",
		Help:    "Duration of worker batch runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_processed",
		Help: "Events processed successfully by the worker.",
	}, []string{"worker"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_failed",
		Help: "Events the worker failed to process.",
	}, []string{"worker"})
	checkpoint := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "worker_checkpoint_sequence",
		Help: "Last event sequence the worker has durably processed.",
	}, []string{"worker"})
	reg.MustRegister(batchDuration, processed, failed, checkpoint)
	return &WorkerMetrics{
		batchDuration: batchDuration,
		processed:     processed,
		failed:        failed,
		checkpoint:    checkpoint,
	}
}

// ObserveBatch records the duration of one batch run for the named worker.
func (w *WorkerMetrics) ObserveBatch(worker string, duration time.Duration) {
	if w == nil || w.batchDuration == nil {
		return
	}
	w.batchDuration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

// IncProcessed increments the processed counter for the named worker.
func (w *WorkerMetrics) IncProcessed(worker string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(worker)).Inc()
}

// IncFailed increments the failure counter for the named worker.
func (w *WorkerMetrics) IncFailed(worker string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(worker)).Inc()
}

// SetCheckpoint records the last durably processed sequence.
func (w *WorkerMetrics) SetCheckpoint(worker string, sequence uint64) {
	if w == nil || w.checkpoint == nil {
		return
	}
	w.checkpoint.WithLabelValues(normalizeLabel(worker)).Set(float64(sequence))
}

func normalizeLabel(worker string) string {
	if worker == "" {
		return "unknown"
	}
	return worker
}
