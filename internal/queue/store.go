// Package queue persists reprocess jobs and implements the lease-based
// claim protocol that guarantees at most one active worker per job.
package queue

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/stickerpress/curator/internal/db"
	"github.com/stickerpress/curator/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoJob is returned by Claim when no eligible job exists.
var ErrNoJob = errors.New("queue: no eligible job")

// maxErrorLen bounds the stored last_error message.
const maxErrorLen = 512

// Store provides persisted access to the reprocess job queue.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on an open database handle.
func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// EnqueueOpts carries the optional fields of a new job.
type EnqueueOpts struct {
	Priority    int
	ScheduledAt time.Time
	MaxAttempts int
}

// Enqueue inserts a job for (assetID, reason) unless one is already active
// (pending or processing). Returns whether a row was inserted. The check is
// backed by the ActiveKey unique index, so concurrent enqueuers cannot
// create duplicate active jobs: the loser of the race sees a duplicate-key
// error and reports inserted=false.
func (s *Store) Enqueue(assetID, reason string, opts EnqueueOpts) (bool, error) {
	if assetID == "" {
		return false, fmt.Errorf("queue: assetID is required")
	}
	if !models.ValidReason(reason) {
		return false, fmt.Errorf("queue: unknown reason %q", reason)
	}

	if opts.Priority <= 0 {
		opts.Priority = 50
	}
	if opts.Priority > 100 {
		opts.Priority = 100
	}
	if opts.ScheduledAt.IsZero() {
		opts.ScheduledAt = time.Now()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	var active int64
	err := s.db.Model(&models.ReprocessJob{}).
		Where("asset_id = ? AND reason = ? AND status IN ?",
			assetID, reason, []string{models.JobStatusPending, models.JobStatusProcessing}).
		Count(&active).Error
	if err != nil {
		return false, fmt.Errorf("queue: enqueue check for %s: %w", assetID, err)
	}
	if active > 0 {
		return false, nil
	}

	key := models.ActiveKeyFor(assetID, reason)
	job := models.ReprocessJob{
		AssetID:     assetID,
		Reason:      reason,
		Priority:    opts.Priority,
		ScheduledAt: opts.ScheduledAt,
		Status:      models.JobStatusPending,
		MaxAttempts: opts.MaxAttempts,
		ActiveKey:   &key,
	}
	if err := s.db.Create(&job).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("queue: enqueue %s/%s: %w", assetID, reason, err)
	}
	return true, nil
}

// Claim atomically selects the single most eligible job and transitions it
// to processing under a fresh lease token, incrementing attempts. Eligible
// means status pending, or failed with attempts below max when
// allowRetryFailed is set, with scheduled_at due. Ordering is priority
// desc, scheduled_at asc, id asc. Uses SELECT ... FOR UPDATE SKIP LOCKED so
// concurrent claimers never receive the same row.
//
// Returns ErrNoJob when nothing is eligible.
func (s *Store) Claim(reasons []string, allowRetryFailed bool) (*models.ReprocessJob, error) {
	var claimed models.ReprocessJob

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		q := tx.Where("scheduled_at <= ?", now)
		if len(reasons) > 0 {
			q = q.Where("reason IN ?", reasons)
		}
		if allowRetryFailed {
			q = q.Where("status = ? OR (status = ? AND attempts < max_attempts)",
				models.JobStatusPending, models.JobStatusFailed)
		} else {
			q = q.Where("status = ?", models.JobStatusPending)
		}

		result := q.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Order("priority DESC, scheduled_at ASC, id ASC").
			Limit(1).
			Find(&claimed)
		if result.Error != nil {
			return fmt.Errorf("queue: find eligible job: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNoJob
		}

		token, err := newLeaseToken()
		if err != nil {
			return fmt.Errorf("queue: lease token: %w", err)
		}
		key := models.ActiveKeyFor(claimed.AssetID, claimed.Reason)

		updates := map[string]interface{}{
			"status":       models.JobStatusProcessing,
			"attempts":     claimed.Attempts + 1,
			"worker_token": token,
			"locked_at":    now,
			"active_key":   key,
		}
		if err := tx.Model(&models.ReprocessJob{}).Where("id = ?", claimed.ID).Updates(updates).Error; err != nil {
			if db.IsDuplicateKey(err) {
				// A newer active job for the same (asset, reason) exists;
				// leave this terminal row alone.
				return ErrNoJob
			}
			return fmt.Errorf("queue: claim job %d: %w", claimed.ID, err)
		}

		claimed.Status = models.JobStatusProcessing
		claimed.Attempts++
		claimed.WorkerToken = &token
		claimed.LockedAt = &now
		claimed.ActiveKey = &key
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// Complete marks a job completed and clears its lease fields.
func (s *Store) Complete(jobID uint) error {
	now := time.Now()
	err := s.db.Model(&models.ReprocessJob{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"worker_token": nil,
		"locked_at":    nil,
		"active_key":   nil,
		"processed_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("queue: complete job %d: %w", jobID, err)
	}
	return nil
}

// Fail records a job failure. When attempts have reached max the job goes
// terminal (failed); otherwise it returns to pending with a fixed delay.
// The delay is fixed rather than exponential; permanent failure requires
// attempts >= max_attempts.
func (s *Store) Fail(jobID uint, cause string, retryDelay time.Duration) error {
	if len(cause) > maxErrorLen {
		cause = cause[:maxErrorLen]
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var job models.ReprocessJob
		result := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", jobID).
			Find(&job)
		if result.Error != nil {
			return fmt.Errorf("queue: fail job %d: %w", jobID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("queue: fail job %d: not found", jobID)
		}

		updates := map[string]interface{}{
			"worker_token": nil,
			"locked_at":    nil,
			"last_error":   cause,
		}
		if job.Attempts >= job.MaxAttempts {
			updates["status"] = models.JobStatusFailed
			updates["active_key"] = nil
		} else {
			updates["status"] = models.JobStatusPending
			updates["scheduled_at"] = time.Now().Add(retryDelay)
		}

		if err := tx.Model(&models.ReprocessJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
			return fmt.Errorf("queue: fail job %d: %w", jobID, err)
		}
		return nil
	})
}

// CountByStatus returns the number of jobs with the given status.
func (s *Store) CountByStatus(status string) (int64, error) {
	var count int64
	err := s.db.Model(&models.ReprocessJob{}).Where("status = ?", status).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("queue: count %s: %w", status, err)
	}
	return count, nil
}

// Counts returns job counts keyed by status for observability.
func (s *Store) Counts() (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.Model(&models.ReprocessJob{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("queue: counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// newLeaseToken generates an opaque worker token for a claim.
func newLeaseToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
