package models

import "time"

// Asset statuses.
const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusRemoved = "removed"
)

// Asset visibility values.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Asset is one content item (sticker, image) known to the platform.
// Curator only reads assets; ingestion and storage writes happen upstream.
type Asset struct {
	ID         string `gorm:"primaryKey;size:32"`
	FilePath   string `gorm:"size:512;not null"`
	SHA256     string `gorm:"size:64;index"`
	Status     string `gorm:"size:16;default:pending;index"`
	Visibility string `gorm:"size:16;default:private;index"`
	Theme      string `gorm:"size:120"`
	UsageCount int64  `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
