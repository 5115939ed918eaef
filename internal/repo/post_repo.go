// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a post is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SavePost inserts a new Post row for a successfully published post.
// The local ID is a randomly generated UUID; PostedAt defaults to now (UTC)
// when the caller leaves it zero.
//
// On success, it returns the persisted Post. On failure, it returns a DB error.
func SavePost(ctx context.Context, db *gorm.DB, platformID, content, mediaRef string, postedAt time.Time) (*domain.Post, error) {
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	p := &domain.Post{
		ID:         uuid.NewString(),
		PlatformID: platformID,
		Content:    content,
		MediaRef:   mediaRef,
		PostedAt:   postedAt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// RecentPosts returns posts published within the given lookback window,
// ordered most recent first. The discovery engine processes posts in this
// order within one polling cycle.
func RecentPosts(ctx context.Context, db *gorm.DB, lookback time.Duration) ([]domain.Post, error) {
	cutoff := time.Now().UTC().Add(-lookback)
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("posted_at >= ?", cutoff).
		Order("posted_at desc").
		Find(&out).Error
	return out, err
}

// GetPostByPlatformID fetches a post by its platform identifier.
// Returns ErrNotFound when no such post exists.
func GetPostByPlatformID(ctx context.Context, db *gorm.DB, platformID string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).
		Where("platform_id = ?", platformID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePostEngagement overwrites the engagement snapshot columns of the post
// identified by platformID. If no rows are affected (post missing), it
// returns ErrNotFound.
func UpdatePostEngagement(ctx context.Context, db *gorm.DB, platformID string, likes, reposts, replies, impressions int) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("platform_id = ?", platformID).
		Updates(map[string]any{
			"likes":       likes,
			"reposts":     reposts,
			"replies":     replies,
			"impressions": impressions,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountPosts returns the total number of stored posts.
func CountPosts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Count(&total).Error
	return total, err
}

// ListPostsPage returns a paginated slice of posts ordered by publication
// time descending. Use CountPosts to obtain the total for pagination
// metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListPostsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Order("posted_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeletePostsOlderThan hard-deletes posts published before the cutoff and
// returns the number of rows removed. Used by the retention cleanup job.
func DeletePostsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Unscoped().
		Where("posted_at < ?", cutoff).
		Delete(&domain.Post{})
	return res.RowsAffected, res.Error
}
