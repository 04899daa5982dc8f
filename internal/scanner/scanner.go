// Package scanner discovers reclassification candidates and enqueues
// deduplicated reprocess jobs for them.
package scanner

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/models"
	"github.com/stickerpress/curator/internal/queue"
	"gorm.io/gorm"
)

// Stats summarizes one scan pass.
type Stats struct {
	ModelUpgrade  int
	LowConfidence int
	Backfill      int
}

// Total is the number of jobs enqueued across all passes.
func (s Stats) Total() int { return s.ModelUpgrade + s.LowConfidence + s.Backfill }

// Scanner runs the three discovery queries. Each is scan-limited and
// reason-scoped; re-running never double-enqueues an active job.
type Scanner struct {
	db     *gorm.DB
	store  *queue.Store
	cfg    *config.Config
	logger *log.Logger
}

// New creates a Scanner writing its log lines to out.
func New(gdb *gorm.DB, store *queue.Store, cfg *config.Config, out io.Writer) *Scanner {
	return &Scanner{
		db:     gdb,
		store:  store,
		cfg:    cfg,
		logger: log.New(out, "[scanner] ", log.LstdFlags),
	}
}

// Scan runs all three discovery passes in priority-ascending order.
func (s *Scanner) Scan() (Stats, error) {
	var stats Stats
	var err error

	if stats.ModelUpgrade, err = s.scanModelUpgrade(); err != nil {
		return stats, err
	}
	if stats.LowConfidence, err = s.scanLowConfidence(); err != nil {
		return stats, err
	}
	if stats.Backfill, err = s.scanBackfill(); err != nil {
		return stats, err
	}

	if stats.Total() > 0 {
		s.logger.Printf("enqueued %d jobs (model_upgrade=%d low_confidence=%d backfill=%d)",
			stats.Total(), stats.ModelUpgrade, stats.LowConfidence, stats.Backfill)
	}
	return stats, nil
}

// activeJobsFor is the subquery of asset ids with a live job for a reason.
func (s *Scanner) activeJobsFor(reason string) *gorm.DB {
	return s.db.Model(&models.ReprocessJob{}).
		Select("asset_id").
		Where("reason = ? AND status IN ?", reason,
			[]string{models.JobStatusPending, models.JobStatusProcessing})
}

// scanModelUpgrade finds records classified by an older model version,
// oldest first.
func (s *Scanner) scanModelUpgrade() (int, error) {
	var assetIDs []string
	err := s.db.Model(&models.ClassificationRecord{}).
		Where("classification_version <> ?", s.cfg.Classifier.ModelVersion).
		Where("asset_id NOT IN (?)", s.activeJobsFor(models.ReasonModelUpgrade)).
		Order("updated_at ASC").
		Limit(s.cfg.Scanner.ModelUpgradeLimit).
		Pluck("asset_id", &assetIDs).Error
	if err != nil {
		return 0, fmt.Errorf("scanner: model upgrade query: %w", err)
	}
	return s.enqueueAll(assetIDs, models.ReasonModelUpgrade, s.cfg.Scanner.ModelUpgradePriority)
}

// scanLowConfidence finds stale low-confidence records, weakest first.
// NSFW-flagged rows are skipped; those go through NSFW_REVIEW when an
// operator enqueues them.
func (s *Scanner) scanLowConfidence() (int, error) {
	cutoff := time.Now().Add(-s.cfg.Staleness())

	var assetIDs []string
	err := s.db.Model(&models.ClassificationRecord{}).
		Where("confidence < ?", s.cfg.Scanner.LowConfidenceThreshold).
		Where("updated_at < ?", cutoff).
		Where("is_nsfw = ?", false).
		Where("asset_id NOT IN (?)", s.activeJobsFor(models.ReasonLowConfidence)).
		Order("confidence ASC, updated_at ASC").
		Limit(s.cfg.Scanner.LowConfidenceLimit).
		Pluck("asset_id", &assetIDs).Error
	if err != nil {
		return 0, fmt.Errorf("scanner: low confidence query: %w", err)
	}
	return s.enqueueAll(assetIDs, models.ReasonLowConfidence, s.cfg.Scanner.LowConfidencePriority)
}

// scanBackfill finds records missing derived signals, ranked so publicly
// visible and heavily used content reprocesses first. Backfill jobs are
// enqueued under MODEL_UPGRADE.
func (s *Scanner) scanBackfill() (int, error) {
	var assetIDs []string
	err := s.db.Model(&models.ClassificationRecord{}).
		Joins("JOIN assets ON assets.id = classification_records.asset_id").
		Where("assets.status = ?", models.AssetStatusReady).
		Where("classification_records.entropy IS NULL"+
			" OR classification_records.confidence_margin IS NULL"+
			" OR classification_records.image_hash = ''"+
			" OR classification_records.top_labels = ''"+
			" OR classification_records.subtags = ''").
		Where("classification_records.asset_id NOT IN (?)", s.activeJobsFor(models.ReasonModelUpgrade)).
		Order("CASE WHEN assets.visibility = 'public' THEN 0 ELSE 1 END, assets.usage_count DESC, assets.id ASC").
		Limit(s.cfg.Scanner.BackfillLimit).
		Pluck("classification_records.asset_id", &assetIDs).Error
	if err != nil {
		return 0, fmt.Errorf("scanner: backfill query: %w", err)
	}
	return s.enqueueAll(assetIDs, models.ReasonModelUpgrade, s.cfg.Scanner.BackfillPriority)
}

// enqueueAll pushes every candidate through the store's dedup gate and
// returns how many were actually inserted.
func (s *Scanner) enqueueAll(assetIDs []string, reason string, priority int) (int, error) {
	inserted := 0
	for _, id := range assetIDs {
		ok, err := s.store.Enqueue(id, reason, queue.EnqueueOpts{
			Priority:    priority,
			MaxAttempts: s.cfg.Queue.MaxAttempts,
		})
		if err != nil {
			return inserted, fmt.Errorf("scanner: enqueue %s: %w", id, err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
