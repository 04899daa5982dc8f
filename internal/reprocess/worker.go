package reprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/stickerpress/curator/internal/assets"
	"github.com/stickerpress/curator/internal/classifier"
	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/models"
	"github.com/stickerpress/curator/internal/queue"
	"gorm.io/gorm"
)

// Classifier is the slice of the classifier client the workers need.
type Classifier interface {
	Classify(ctx context.Context, filename string, data []byte) (*classifier.Result, error)
}

// WorkerStats summarizes one drain pass over the job queue.
type WorkerStats struct {
	Claimed   int
	Completed int
	Retried   int
	Exhausted int // jobs that hit terminal failed status this pass
}

// Worker drains reprocess jobs: claim, read bytes, classify, persist the
// verdict, then complete or fail the job. Per-job failures never abort the
// drain.
type Worker struct {
	db      *gorm.DB
	store   *queue.Store
	storage assets.Storage
	client  Classifier
	cfg     *config.Config
	logger  *log.Logger
}

// NewWorker wires a Worker.
func NewWorker(gdb *gorm.DB, store *queue.Store, storage assets.Storage, client Classifier, cfg *config.Config, out io.Writer) *Worker {
	return &Worker{
		db:      gdb,
		store:   store,
		storage: storage,
		client:  client,
		cfg:     cfg,
		logger:  log.New(out, "[worker] ", log.LstdFlags),
	}
}

// Drain claims and processes up to limit jobs, stopping early when the
// queue is empty or the context is done.
func (w *Worker) Drain(ctx context.Context, limit int) (WorkerStats, error) {
	var stats WorkerStats

	for stats.Claimed < limit {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		job, err := w.store.Claim(nil, w.cfg.Queue.RetryFailed)
		if errors.Is(err, queue.ErrNoJob) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("reprocess: claim: %w", err)
		}
		stats.Claimed++

		if procErr := w.processJob(ctx, job); procErr != nil {
			w.logger.Printf("job %d (%s/%s) failed: %v", job.ID, job.AssetID, job.Reason, procErr)
			if failErr := w.store.Fail(job.ID, procErr.Error(), w.cfg.RetryDelay()); failErr != nil {
				return stats, failErr
			}
			if job.Attempts >= job.MaxAttempts {
				stats.Exhausted++
			} else {
				stats.Retried++
			}
			continue
		}

		if err := w.store.Complete(job.ID); err != nil {
			return stats, err
		}
		stats.Completed++
	}
	return stats, nil
}

// processJob runs one job end to end: asset lookup, byte read, classifier
// call, verdict persistence.
func (w *Worker) processJob(ctx context.Context, job *models.ReprocessJob) error {
	var asset models.Asset
	result := w.db.Where("id = ?", job.AssetID).Limit(1).Find(&asset)
	if result.Error != nil {
		return fmt.Errorf("load asset %s: %w", job.AssetID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("asset %s not found", job.AssetID)
	}
	if asset.Status == models.AssetStatusRemoved {
		return fmt.Errorf("asset %s is removed", job.AssetID)
	}

	data, err := w.storage.Read(asset.FilePath)
	if err != nil {
		return err
	}

	res, err := w.client.Classify(ctx, filepath.Base(asset.FilePath), data)
	if err != nil {
		return err
	}

	return saveVerdict(w.db, asset.ID, res, w.cfg.Classifier.NSFWThreshold)
}
