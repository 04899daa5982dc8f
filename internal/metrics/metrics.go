// Package metrics exposes curator's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueJobs tracks queue depth by job status, refreshed once per cycle.
	QueueJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curator_queue_jobs",
		Help: "Reprocess jobs in the queue by status.",
	}, []string{"status"})

	// CyclesTotal counts scheduler cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_cycles_total",
		Help: "Scheduler cycles run, by outcome.",
	}, []string{"outcome"})

	// JobsProcessed counts drained reprocess jobs by outcome.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_jobs_processed_total",
		Help: "Reprocess jobs drained by the worker, by outcome.",
	}, []string{"outcome"})

	// PendingClassified counts never-classified assets handled by the pool.
	PendingClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_pending_assets_total",
		Help: "Pending-pool classifications, by outcome.",
	}, []string{"outcome"})

	// BatchRecords counts records touched by the deterministic sweep.
	BatchRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_batch_records_total",
		Help: "Records seen by the batch reprocessor, by outcome.",
	}, []string{"outcome"})
)

// RefreshQueueDepth publishes the per-status job counts.
func RefreshQueueDepth(counts map[string]int64) {
	for _, status := range []string{"pending", "processing", "completed", "failed"} {
		QueueJobs.WithLabelValues(status).Set(float64(counts[status]))
	}
}
