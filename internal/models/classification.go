package models

import (
	"encoding/json"
	"time"
)

// ClassificationRecord stores the latest classifier output for one asset,
// plus the derived fields curator maintains. One row per asset, upserted.
type ClassificationRecord struct {
	ID                    uint   `gorm:"primaryKey;autoIncrement"`
	AssetID               string `gorm:"size:32;uniqueIndex;not null"`
	Category              string `gorm:"size:120"`
	Confidence            float64
	Entropy               *float64
	ConfidenceMargin      *float64
	AffinityWeight        float64
	NSFWScore             float64
	IsNSFW                bool
	Ambiguous             bool
	DominantTheme         string `gorm:"size:32"`
	CohesionScore         int
	Subtags               string `gorm:"type:json"`
	StyleTraits           string `gorm:"type:json"`
	Emotions              string `gorm:"type:json"`
	PackSuggestions       string `gorm:"type:json"`
	TopLabels             string `gorm:"type:json"`
	ImageHash             string `gorm:"size:64"`
	ClassificationVersion string `gorm:"size:64;index"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SubtagList decodes the Subtags JSON column. Malformed or empty values
// decode to nil.
func (c *ClassificationRecord) SubtagList() []string { return DecodeList(c.Subtags) }

// StyleTraitList decodes the StyleTraits JSON column.
func (c *ClassificationRecord) StyleTraitList() []string { return DecodeList(c.StyleTraits) }

// EmotionList decodes the Emotions JSON column.
func (c *ClassificationRecord) EmotionList() []string { return DecodeList(c.Emotions) }

// PackSuggestionList decodes the PackSuggestions JSON column.
func (c *ClassificationRecord) PackSuggestionList() []string { return DecodeList(c.PackSuggestions) }

// TopLabelList decodes the TopLabels JSON column.
func (c *ClassificationRecord) TopLabelList() []string { return DecodeList(c.TopLabels) }

// EncodeList marshals a string list for storage in a JSON text column.
// A nil or empty list encodes to the empty string, not "[]".
func EncodeList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeList unmarshals a JSON text column into a string list.
func DecodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}
