package models

import (
	"fmt"
	"time"
)

// Reprocess reasons. PriorityBackfill candidates are enqueued under
// ReasonModelUpgrade; there is no dedicated backfill reason.
const (
	ReasonModelUpgrade  = "MODEL_UPGRADE"
	ReasonLowConfidence = "LOW_CONFIDENCE"
	ReasonTrendShift    = "TREND_SHIFT"
	ReasonNSFWReview    = "NSFW_REVIEW"
)

// Reprocess job statuses.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ReprocessJob is one queued reclassification of an asset. At most one job
// per (asset, reason) may be active (pending or processing) at a time; the
// ActiveKey unique index enforces this even under concurrent enqueuers.
type ReprocessJob struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	AssetID     string    `gorm:"size:32;not null;index"`
	Reason      string    `gorm:"size:24;not null"`
	Priority    int       `gorm:"default:50"`
	ScheduledAt time.Time `gorm:"index"`
	Status      string    `gorm:"size:16;default:pending;index"`
	Attempts    int       `gorm:"default:0"`
	MaxAttempts int       `gorm:"default:3"`
	WorkerToken *string   `gorm:"size:64"`
	LastError   string    `gorm:"type:text"`
	ActiveKey   *string   `gorm:"size:64;uniqueIndex"`
	LockedAt    *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveKeyFor builds the ActiveKey value for an active (asset, reason) pair.
func ActiveKeyFor(assetID, reason string) string {
	return fmt.Sprintf("%s:%s", assetID, reason)
}

// ValidReason reports whether reason is one of the known reprocess reasons.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonModelUpgrade, ReasonLowConfidence, ReasonTrendShift, ReasonNSFWReview:
		return true
	}
	return false
}
