package main

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/domain"
	"github.com/tbourn/go-xbot/internal/repo"
)

// engageStoreShim adapts the repository free functions to the engage.Store
// interface. This keeps the engine decoupled from the concrete repo
// package while reusing its functions.
type engageStoreShim struct{}

// RecentPosts proxies repo.RecentPosts.
func (engageStoreShim) RecentPosts(ctx context.Context, db *gorm.DB, lookback time.Duration) ([]domain.Post, error) {
	return repo.RecentPosts(ctx, db, lookback)
}

// SaveReply proxies repo.SaveReply, assembling the domain record.
func (engageStoreShim) SaveReply(ctx context.Context, db *gorm.DB, platformID, postID, authorID, text string, repliedAt time.Time) (string, error) {
	return repo.SaveReply(ctx, db, &domain.Reply{
		PlatformID: platformID,
		PostID:     postID,
		AuthorID:   authorID,
		Content:    text,
		RepliedAt:  repliedAt,
	})
}

// ExistingReplyIDs proxies repo.ExistingReplyIDs.
func (engageStoreShim) ExistingReplyIDs(ctx context.Context, db *gorm.DB, ids []string) ([]string, error) {
	return repo.ExistingReplyIDs(ctx, db, ids)
}

// MarkReplyLiked proxies repo.MarkReplyLiked.
func (engageStoreShim) MarkReplyLiked(ctx context.Context, db *gorm.DB, platformID string) error {
	return repo.MarkReplyLiked(ctx, db, platformID)
}

// IsReplyLiked proxies repo.IsReplyLiked.
func (engageStoreShim) IsReplyLiked(ctx context.Context, db *gorm.DB, platformID string) (bool, error) {
	return repo.IsReplyLiked(ctx, db, platformID)
}

// MarkReplyResponded proxies repo.MarkReplyResponded.
func (engageStoreShim) MarkReplyResponded(ctx context.Context, db *gorm.DB, platformID string) error {
	return repo.MarkReplyResponded(ctx, db, platformID)
}

// CountRespondedInConversation proxies repo.CountRespondedInConversation.
func (engageStoreShim) CountRespondedInConversation(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	return repo.CountRespondedInConversation(ctx, db, postID)
}

// CountRespondedSince proxies repo.CountRespondedSince.
func (engageStoreShim) CountRespondedSince(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.CountRespondedSince(ctx, db, cutoff)
}

// postingStoreShim adapts the repository free functions to the
// posting.Store interface.
type postingStoreShim struct{}

// SavePost proxies repo.SavePost.
func (postingStoreShim) SavePost(ctx context.Context, db *gorm.DB, platformID, text, mediaRef string, postedAt time.Time) (*domain.Post, error) {
	return repo.SavePost(ctx, db, platformID, text, mediaRef, postedAt)
}

// RecentPosts proxies repo.RecentPosts.
func (postingStoreShim) RecentPosts(ctx context.Context, db *gorm.DB, lookback time.Duration) ([]domain.Post, error) {
	return repo.RecentPosts(ctx, db, lookback)
}

// UpdatePostEngagement proxies repo.UpdatePostEngagement.
func (postingStoreShim) UpdatePostEngagement(ctx context.Context, db *gorm.DB, platformID string, likes, reposts, replies, impressions int) error {
	return repo.UpdatePostEngagement(ctx, db, platformID, likes, reposts, replies, impressions)
}

// SaveMetrics proxies repo.SaveMetrics, assembling the history row.
func (postingStoreShim) SaveMetrics(ctx context.Context, db *gorm.DB, postID string, likes, reposts, replies, impressions int, collectedAt time.Time) error {
	_, err := repo.SaveMetrics(ctx, db, &domain.PostMetrics{
		PostID:      postID,
		Likes:       likes,
		Reposts:     reposts,
		Replies:     replies,
		Impressions: impressions,
		CollectedAt: collectedAt,
	})
	return err
}

// ReportBetween proxies repo.ReportBetween.
func (postingStoreShim) ReportBetween(ctx context.Context, db *gorm.DB, from, to time.Time) (repo.DailyReport, error) {
	rep, err := repo.ReportBetween(ctx, db, from, to)
	if err != nil {
		return repo.DailyReport{}, err
	}
	return *rep, nil
}

// DeletePostsOlderThan proxies repo.DeletePostsOlderThan.
func (postingStoreShim) DeletePostsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.DeletePostsOlderThan(ctx, db, cutoff)
}

// DeleteRepliesOlderThan proxies repo.DeleteRepliesOlderThan.
func (postingStoreShim) DeleteRepliesOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.DeleteRepliesOlderThan(ctx, db, cutoff)
}

// DeleteMetricsOlderThan proxies repo.DeleteMetricsOlderThan.
func (postingStoreShim) DeleteMetricsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.DeleteMetricsOlderThan(ctx, db, cutoff)
}
