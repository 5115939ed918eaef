// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores engagement metric snapshots and provides
// the small aggregate queries behind the daily report. Each function is
// context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/domain"
)

// SaveMetrics appends an engagement snapshot for the post identified by its
// platform ID. CollectedAt defaults to now (UTC) when left zero.
func SaveMetrics(ctx context.Context, db *gorm.DB, m *domain.PostMetrics) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CollectedAt.IsZero() {
		m.CollectedAt = time.Now().UTC()
	}
	m.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return "", err
	}
	return m.ID, nil
}

// DeleteMetricsOlderThan hard-deletes snapshots collected before the cutoff
// and returns the number of rows removed.
func DeleteMetricsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Unscoped().
		Where("collected_at < ?", cutoff).
		Delete(&domain.PostMetrics{})
	return res.RowsAffected, res.Error
}

// DailyReport aggregates activity between from (inclusive) and to (exclusive).
// It is read by the daily report job and the admin status endpoint.
type DailyReport struct {
	Posts        int64 `json:"posts"`
	Replies      int64 `json:"replies"`
	LikesGiven   int64 `json:"likes_given"`
	RepliesSent  int64 `json:"replies_sent"`
	LikesEarned  int64 `json:"likes_earned"`
	Impressions  int64 `json:"impressions"`
}

// ReportBetween computes the DailyReport aggregates for the given interval.
//
// LikesEarned and Impressions are summed from the latest engagement snapshot
// columns on posts published in the interval; zero rows yield zero sums.
func ReportBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (*DailyReport, error) {
	var rep DailyReport

	if err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("posted_at >= ? AND posted_at < ?", from, to).
		Count(&rep.Posts).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("replied_at >= ? AND replied_at < ?", from, to).
		Count(&rep.Replies).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("liked = ? AND updated_at >= ? AND updated_at < ?", true, from, to).
		Count(&rep.LikesGiven).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("responded = ? AND responded_at >= ? AND responded_at < ?", true, from, to).
		Count(&rep.RepliesSent).Error; err != nil {
		return nil, err
	}

	var sums struct {
		Likes       int64
		Impressions int64
	}
	if err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Select("COALESCE(SUM(likes),0) AS likes, COALESCE(SUM(impressions),0) AS impressions").
		Where("posted_at >= ? AND posted_at < ?", from, to).
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	rep.LikesEarned = sums.Likes
	rep.Impressions = sums.Impressions

	return &rep, nil
}
