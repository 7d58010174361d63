package storage

import (
	"time"

	"gorm.io/gorm"
)

const MaxHistoryLimit = 500

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Fetch logs

func (r *Repository) SaveFetchLog(log *FetchLog) error {
	return r.db.Create(log).Error
}

// RecordFetch satisfies the poller's recorder hook.
func (r *Repository) RecordFetch(events, sectors int, took time.Duration, fetchErr error) error {
	log := &FetchLog{
		Events:     events,
		Sectors:    sectors,
		DurationMs: took.Milliseconds(),
		Success:    fetchErr == nil,
	}
	if fetchErr != nil {
		log.Error = fetchErr.Error()
	}
	return r.SaveFetchLog(log)
}

// RecentFetchLogs returns the newest rows first. limit is clamped to
// [1, MaxHistoryLimit].
func (r *Repository) RecentFetchLogs(limit int) ([]FetchLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	var logs []FetchLog
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *Repository) CountFailuresSince(since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&FetchLog{}).
		Where("success = ? AND created_at >= ?", false, since).
		Count(&n).Error
	return n, err
}

// Prune deletes rows older than before and reports how many went.
func (r *Repository) Prune(before time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", before).Delete(&FetchLog{})
	return res.RowsAffected, res.Error
}
