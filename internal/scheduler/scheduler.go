// Package scheduler drives the reclassification cycle: scan, drain, pending
// fan-out, and the deterministic sweep on a jittered, non-overlapping timer.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/stickerpress/curator/internal/alerts"
	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/db"
	"github.com/stickerpress/curator/internal/metrics"
	"github.com/stickerpress/curator/internal/queue"
	"github.com/stickerpress/curator/internal/reprocess"
	"github.com/stickerpress/curator/internal/scanner"
)

// Scheduler states.
const (
	StateDisabled = "disabled"
	StateIdle     = "idle"
	StateRunning  = "running"
)

// CycleSummary captures the outcome of the most recent cycle for the
// dashboard and logs.
type CycleSummary struct {
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration"`
	Scanned   scanner.Stats          `json:"scanned"`
	Drained   reprocess.WorkerStats  `json:"drained"`
	Pending   reprocess.PendingStats `json:"pending"`
	Batch     reprocess.BatchStats   `json:"batch"`
}

// CycleScheduler owns the cycle timer and all phase state. Start and Stop
// are its only mutators; cycles never overlap.
type CycleScheduler struct {
	cfg      *config.Config
	store    *queue.Store
	scan     *scanner.Scanner
	worker   *reprocess.Worker
	pool     *reprocess.PendingPool
	batch    *reprocess.BatchReprocessor
	dispatch *alerts.Dispatcher
	out      io.Writer
	rng      *rand.Rand

	mu        sync.Mutex
	state     string
	breaker   bool // job-queue schema missing; phases 1-2 permanently off
	lastCycle *CycleSummary

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New wires a CycleScheduler. The dispatcher may be nil when alerting is not
// configured.
func New(cfg *config.Config, store *queue.Store, scan *scanner.Scanner, worker *reprocess.Worker, pool *reprocess.PendingPool, batch *reprocess.BatchReprocessor, dispatch *alerts.Dispatcher, out io.Writer) *CycleScheduler {
	if out == nil {
		out = io.Discard
	}
	state := StateIdle
	if !cfg.Scheduler.Enabled {
		state = StateDisabled
	}
	return &CycleScheduler{
		cfg:      cfg,
		store:    store,
		scan:     scan,
		worker:   worker,
		pool:     pool,
		batch:    batch,
		dispatch: dispatch,
		out:      out,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		state:    state,
		stopCh:   make(chan struct{}),
	}
}

// State reports the scheduler's current state.
func (s *CycleScheduler) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastCycle returns the most recent cycle summary, or nil before the first
// cycle completes.
func (s *CycleScheduler) LastCycle() *CycleSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCycle
}

// BreakerTripped reports whether the missing-schema breaker has fired.
func (s *CycleScheduler) BreakerTripped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breaker
}

// Stop prevents any future cycle from being scheduled. In-flight work is
// not interrupted.
func (s *CycleScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run blocks, running cycles until the context is cancelled or Stop is
// called. The delay before each next cycle is drawn before the current
// cycle's work begins, so a slow cycle delays but never stacks followers.
func (s *CycleScheduler) Run(ctx context.Context) error {
	if !s.cfg.Scheduler.Enabled {
		fmt.Fprintf(s.out, "Scheduler disabled by config.\n")
		return nil
	}

	fmt.Fprintf(s.out, "Scheduler starting (first cycle in %s)...\n", s.cfg.StartupDelay())
	if !s.sleep(ctx, s.cfg.StartupDelay()) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		default:
		}

		next := s.nextDelay()
		deadline := time.After(next)

		s.runCycle(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-deadline:
		}
	}
}

// nextDelay draws the pause before the next cycle: the cron expression when
// configured, otherwise a uniform draw from the jitter window.
func (s *CycleScheduler) nextDelay() time.Duration {
	if expr := s.cfg.Scheduler.Cron; expr != "" {
		if d := nextCronDuration(expr); d > 0 {
			return d
		}
	}
	min, max := s.cfg.IntervalWindow()
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}

// runCycle executes one cycle's phases in order. Every phase error degrades
// to a logged no-op; a panic is contained to the cycle.
func (s *CycleScheduler) runCycle(ctx context.Context) {
	s.setState(StateRunning)
	defer s.setState(StateIdle)

	summary := CycleSummary{StartedAt: time.Now()}
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: cycle panic: %v", r)
			outcome = "panic"
		}
		summary.Duration = time.Since(summary.StartedAt)
		metrics.CyclesTotal.WithLabelValues(outcome).Inc()
		s.refreshMetrics()
		s.mu.Lock()
		s.lastCycle = &summary
		s.mu.Unlock()
	}()

	classify := s.cfg.Classifier.Enabled

	// Phase 1: discover candidates.
	if classify && !s.BreakerTripped() {
		stats, err := s.scan.Scan()
		summary.Scanned = stats
		if err != nil {
			s.phaseError("scan", err)
			outcome = "degraded"
		}
	}

	// Phase 2: drain reprocess jobs.
	if classify && !s.BreakerTripped() {
		stats, err := s.worker.Drain(ctx, s.cfg.Queue.DrainLimit)
		summary.Drained = stats
		if err != nil {
			s.phaseError("drain", err)
			outcome = "degraded"
		}
		metrics.JobsProcessed.WithLabelValues("completed").Add(float64(stats.Completed))
		metrics.JobsProcessed.WithLabelValues("retried").Add(float64(stats.Retried))
		metrics.JobsProcessed.WithLabelValues("exhausted").Add(float64(stats.Exhausted))
		if stats.Exhausted > 0 {
			s.alert(ctx, "Reprocess jobs exhausted retries",
				fmt.Sprintf("%d job(s) reached terminal failed status this cycle; operator intervention required.", stats.Exhausted))
		}
	}

	// Phase 3: classify assets that have no record at all.
	if classify {
		stats, err := s.pool.Run(ctx)
		summary.Pending = stats
		if err != nil {
			log.Printf("scheduler: pending pool error: %v", err)
			outcome = "degraded"
		}
		metrics.PendingClassified.WithLabelValues("classified").Add(float64(stats.Classified))
		metrics.PendingClassified.WithLabelValues("failed").Add(float64(stats.Failed))
	}

	// Phase 4: deterministic sweep, independent of the classifier.
	if s.cfg.Engine.Enabled {
		stats, err := s.batch.Run()
		summary.Batch = stats
		if err != nil {
			log.Printf("scheduler: batch sweep error: %v", err)
			outcome = "degraded"
		}
		metrics.BatchRecords.WithLabelValues("updated").Add(float64(stats.Updated))
		metrics.BatchRecords.WithLabelValues("skipped").Add(float64(stats.Skipped))
		metrics.BatchRecords.WithLabelValues("failed").Add(float64(stats.Failed))
	}

	fmt.Fprintf(s.out, "Cycle done in %s: scanned=%d drained=%d pending=%d batch=%d\n",
		time.Since(summary.StartedAt).Round(time.Millisecond),
		summary.Scanned.Total(), summary.Drained.Claimed,
		summary.Pending.Classified, summary.Batch.Processed)
}

// phaseError handles a phase 1-2 failure: a missing job-queue table trips
// the breaker for the process lifetime, anything else is logged.
func (s *CycleScheduler) phaseError(phase string, err error) {
	if db.IsMissingTable(err) {
		s.mu.Lock()
		already := s.breaker
		s.breaker = true
		s.mu.Unlock()
		if !already {
			log.Printf("scheduler: job queue table missing; disabling scan/drain phases until restart")
			s.alert(context.Background(), "Reprocess queue schema missing",
				"The reprocess_jobs table is absent (pending migration?). Scan and drain phases are disabled until the process restarts.")
		}
		return
	}
	log.Printf("scheduler: %s error: %v", phase, err)
}

// refreshMetrics publishes queue depth gauges, once per cycle.
func (s *CycleScheduler) refreshMetrics() {
	counts, err := s.store.Counts()
	if err != nil {
		if !db.IsMissingTable(err) {
			log.Printf("scheduler: queue counts: %v", err)
		}
		return
	}
	metrics.RefreshQueueDepth(counts)
}

func (s *CycleScheduler) alert(ctx context.Context, subject, body string) {
	if s.dispatch == nil {
		return
	}
	s.dispatch.Send(ctx, subject, body)
}

func (s *CycleScheduler) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// sleep waits for d, returning false if the context was cancelled or the
// scheduler stopped first.
func (s *CycleScheduler) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}
