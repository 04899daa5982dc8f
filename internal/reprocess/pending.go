package reprocess

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/stickerpress/curator/internal/assets"
	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/models"
	"gorm.io/gorm"
)

// PendingStats summarizes one fan-out pass over never-classified assets.
type PendingStats struct {
	Fetched    int
	Classified int
	Failed     int
}

// PendingPool classifies assets that have no classification row at all.
// One batch is loaded into memory per pass; workers share an atomic cursor
// over it rather than a second persisted queue. Duplicate work across
// cycles is tolerated because classification is idempotent.
type PendingPool struct {
	db      *gorm.DB
	storage assets.Storage
	client  Classifier
	cfg     *config.Config
	logger  *log.Logger
}

// NewPendingPool wires a PendingPool.
func NewPendingPool(gdb *gorm.DB, storage assets.Storage, client Classifier, cfg *config.Config, out io.Writer) *PendingPool {
	return &PendingPool{
		db:      gdb,
		storage: storage,
		client:  client,
		cfg:     cfg,
		logger:  log.New(out, "[pending] ", log.LstdFlags),
	}
}

// Run fetches one batch and fans it out over min(concurrency, batch length)
// workers. Per-item failures are counted, never propagated.
func (p *PendingPool) Run(ctx context.Context) (PendingStats, error) {
	batch, err := p.fetchBatch()
	if err != nil {
		return PendingStats{}, err
	}

	stats := PendingStats{Fetched: len(batch)}
	if len(batch) == 0 {
		return stats, nil
	}

	workers := p.cfg.Pending.Concurrency
	if workers > len(batch) {
		workers = len(batch)
	}

	var cursor atomic.Int64
	var classified, failed atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(batch) || ctx.Err() != nil {
					return
				}
				if err := p.classifyOne(ctx, &batch[idx]); err != nil {
					p.logger.Printf("asset %s: %v", batch[idx].ID, err)
					failed.Add(1)
					continue
				}
				classified.Add(1)
			}
		}()
	}
	wg.Wait()

	stats.Classified = int(classified.Load())
	stats.Failed = int(failed.Load())
	p.logger.Printf("batch done: fetched=%d classified=%d failed=%d",
		stats.Fetched, stats.Classified, stats.Failed)
	return stats, nil
}

// fetchBatch loads up to batch_size ready assets lacking any record.
func (p *PendingPool) fetchBatch() ([]models.Asset, error) {
	classified := p.db.Model(&models.ClassificationRecord{}).Select("asset_id")

	var batch []models.Asset
	err := p.db.
		Where("status = ?", models.AssetStatusReady).
		Where("id NOT IN (?)", classified).
		Order("created_at ASC, id ASC").
		Limit(p.cfg.Pending.BatchSize).
		Find(&batch).Error
	if err != nil {
		return nil, fmt.Errorf("reprocess: fetch pending batch: %w", err)
	}
	return batch, nil
}

func (p *PendingPool) classifyOne(ctx context.Context, asset *models.Asset) error {
	data, err := p.storage.Read(asset.FilePath)
	if err != nil {
		return err
	}
	res, err := p.client.Classify(ctx, filepath.Base(asset.FilePath), data)
	if err != nil {
		return err
	}
	return saveVerdict(p.db, asset.ID, res, p.cfg.Classifier.NSFWThreshold)
}
