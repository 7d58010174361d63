package storage

import "time"

// FetchLog is one poll of the changes source. It is history only; the
// grouped view is never rebuilt from it.
type FetchLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Events     int    `json:"events"`
	Sectors    int    `json:"sectors"`
	DurationMs int64  `json:"duration_ms"`
	Success    bool   `gorm:"not null" json:"success"`
	Error      string `json:"error,omitempty"`
}
