package model

import (
	"encoding/json"
	"time"
)

// Analysis is one cached critique, keyed by the SHA-256 content hash of the
// uploaded photo. RequesterKey is "user:<id>" for logged-in photographers and
// "ip:<addr>" for anonymous uploads.
type Analysis struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RequesterKey   string    `gorm:"size:128;not null;uniqueIndex:idx_requester_hash" json:"-"`
	Filename       string    `gorm:"size:256;not null" json:"filename"`
	ContentHash    string    `gorm:"size:64;not null;index;uniqueIndex:idx_requester_hash" json:"content_hash"`
	PerceptualHash string    `gorm:"size:20" json:"-"`
	Critique       string    `gorm:"type:text;not null" json:"critique"`
	ExifJSON       string    `gorm:"type:text" json:"-"`
	ImagePath      string    `gorm:"size:512" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExifFields returns the stored EXIF map; nil on parse error or when absent.
func (a *Analysis) ExifFields() map[string]string {
	if a.ExifJSON == "" {
		return nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(a.ExifJSON), &fields); err != nil {
		return nil
	}
	return fields
}

// SetExifFields stores the EXIF map as JSON.
func (a *Analysis) SetExifFields(fields map[string]string) {
	if len(fields) == 0 {
		a.ExifJSON = ""
		return
	}
	b, _ := json.Marshal(fields)
	a.ExifJSON = string(b)
}
