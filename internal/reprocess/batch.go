package reprocess

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/models"
	"gorm.io/gorm"
)

// BatchStats summarizes one deterministic sweep.
type BatchStats struct {
	Processed  int
	Updated    int
	Skipped    int
	Failed     int
	Batches    int
	LastCursor string
}

// BatchReprocessor re-derives subtags, theme, and cohesion for existing
// records without touching the classifier. Writes happen only when the
// engine output differs from the persisted state, so a sweep over unchanged
// data performs zero writes.
type BatchReprocessor struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *log.Logger
}

// NewBatchReprocessor wires a BatchReprocessor.
func NewBatchReprocessor(gdb *gorm.DB, cfg *config.Config, out io.Writer) *BatchReprocessor {
	return &BatchReprocessor{
		db:     gdb,
		cfg:    cfg,
		logger: log.New(out, "[batch] ", log.LstdFlags),
	}
}

// Run sweeps records in asset-id order, paging by batch_size up to
// max_items. Per-row failures increment a counter and never abort the page.
func (b *BatchReprocessor) Run() (BatchStats, error) {
	var stats BatchStats

	for stats.Processed < b.cfg.Engine.MaxItems {
		pageSize := b.cfg.Engine.BatchSize
		if remaining := b.cfg.Engine.MaxItems - stats.Processed; pageSize > remaining {
			pageSize = remaining
		}

		var page []models.ClassificationRecord
		err := b.db.
			Where("asset_id > ?", stats.LastCursor).
			Order("asset_id ASC").
			Limit(pageSize).
			Find(&page).Error
		if err != nil {
			return stats, fmt.Errorf("reprocess: batch page after %q: %w", stats.LastCursor, err)
		}
		if len(page) == 0 {
			break
		}
		stats.Batches++

		for i := range page {
			rec := &page[i]
			stats.Processed++
			stats.LastCursor = rec.AssetID

			updated, err := b.reprocessOne(rec)
			if err != nil {
				b.logger.Printf("record %s: %v", rec.AssetID, err)
				stats.Failed++
				continue
			}
			if updated {
				stats.Updated++
			} else {
				stats.Skipped++
			}
		}

		if len(page) < pageSize {
			break
		}
	}

	b.logger.Printf("sweep done: processed=%d updated=%d skipped=%d failed=%d batches=%d",
		stats.Processed, stats.Updated, stats.Skipped, stats.Failed, stats.Batches)
	return stats, nil
}

// reprocessOne runs the engine on one record and writes back only when the
// derived state actually changed. Comparison is order-sensitive on subtags
// and tolerance-bounded on affinity.
func (b *BatchReprocessor) reprocessOne(rec *models.ClassificationRecord) (bool, error) {
	origSubtags := rec.Subtags
	origAffinity := rec.AffinityWeight
	origAmbiguous := rec.Ambiguous

	deriveStable(rec)

	changed := rec.Subtags != origSubtags ||
		math.Abs(rec.AffinityWeight-origAffinity) > affinityTolerance ||
		rec.Ambiguous != origAmbiguous
	if !changed {
		return false, nil
	}

	updates := map[string]interface{}{
		"subtags":         rec.Subtags,
		"dominant_theme":  rec.DominantTheme,
		"cohesion_score":  rec.CohesionScore,
		"ambiguous":       rec.Ambiguous,
		"affinity_weight": rec.AffinityWeight,
	}
	err := b.db.Model(&models.ClassificationRecord{}).
		Where("id = ?", rec.ID).
		Updates(updates).Error
	if err != nil {
		return false, fmt.Errorf("write derived state: %w", err)
	}
	return true, nil
}
