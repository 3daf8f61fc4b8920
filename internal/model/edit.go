package model

import "time"

// Edit is one generated or locally enhanced revision of an analyzed photo.
// MetricsJSON holds the before/after quality comparison for the revision.
type Edit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContentHash string    `gorm:"size:64;not null;index" json:"content_hash"`
	Title       string    `gorm:"size:64;not null" json:"title"`
	OutputPath  string    `gorm:"size:512;not null" json:"output_path"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	MetricsJSON string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
