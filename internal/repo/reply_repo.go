// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Reply model,
// including the insert-or-ignore semantics and batch existence lookups that
// the discovery engine relies on for cross-restart deduplication.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/domain"
)

// SaveReply inserts a reply row with insert-or-ignore semantics keyed on the
// platform identifier. If a row with the same PlatformID already exists, the
// conflict is not an error: the existing row's local ID is returned instead,
// so callers can treat "already stored" exactly like a fresh insert.
//
// The unique index on replies.platform_id is the authoritative cross-process
// duplicate guard; the in-memory processed cache is only an optimization in
// front of it.
func SaveReply(ctx context.Context, db *gorm.DB, r *domain.Reply) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RepliedAt.IsZero() {
		r.RepliedAt = time.Now().UTC()
	}
	r.CreatedAt = time.Now().UTC()

	err := db.WithContext(ctx).Create(r).Error
	if err == nil {
		return r.ID, nil
	}
	if !isUniqueViolation(err) {
		return "", err
	}

	var existing domain.Reply
	if lookupErr := db.WithContext(ctx).
		Select("id").
		Where("platform_id = ?", r.PlatformID).
		First(&existing).Error; lookupErr != nil {
		return "", lookupErr
	}
	return existing.ID, nil
}

// ReplyExists reports whether a reply with the given platform identifier is
// already stored.
func ReplyExists(ctx context.Context, db *gorm.DB, platformID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("platform_id = ?", platformID).
		Count(&n).Error
	return n > 0, err
}

// ExistingReplyIDs returns the subset of platformIDs that are already stored,
// resolved with a single query. The discovery engine calls this once per page
// of candidate replies instead of issuing one existence check per reply.
func ExistingReplyIDs(ctx context.Context, db *gorm.DB, platformIDs []string) ([]string, error) {
	if len(platformIDs) == 0 {
		return nil, nil
	}
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("platform_id IN ?", platformIDs).
		Pluck("platform_id", &out).Error
	return out, err
}

// MarkReplyLiked sets the liked flag on the reply identified by platformID.
// Marking an already-liked reply is a no-op success, which keeps the like
// path idempotent. Returns ErrNotFound when the reply is not stored.
func MarkReplyLiked(ctx context.Context, db *gorm.DB, platformID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("platform_id = ?", platformID).
		Update("liked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish "row missing" from "row already liked": the update
		// touches the row either way under GORM, so a zero count means
		// the reply was never stored.
		exists, err := ReplyExists(ctx, db, platformID)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// MarkReplyResponded records that an auto-reply was issued in response to the
// reply identified by platformID, stamping responded_at on the first call
// only so the per-day cap never re-dates an old response. The responded flags
// per conversation are what the policy engine re-derives its per-conversation
// count from after a cache eviction or restart.
func MarkReplyResponded(ctx context.Context, db *gorm.DB, platformID string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("platform_id = ? AND responded = ?", platformID, false).
		Updates(map[string]any{"responded": true, "responded_at": now})
	if res.Error != nil {
		return res.Error
	}
	return nil
}

// IsReplyLiked reports whether the stored reply has already been liked.
// Returns ErrNotFound when the reply is not stored.
func IsReplyLiked(ctx context.Context, db *gorm.DB, platformID string) (bool, error) {
	var r domain.Reply
	err := db.WithContext(ctx).
		Select("liked").
		Where("platform_id = ?", platformID).
		First(&r).Error
	if err != nil {
		return false, err
	}
	return r.Liked, nil
}

// CountRespondedInConversation returns how many stored replies under the
// given root post have already been answered by the bot.
func CountRespondedInConversation(ctx context.Context, db *gorm.DB, postID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("post_id = ? AND responded = ?", postID, true).
		Count(&n).Error
	return n, err
}

// CountRespondedSince returns how many auto-replies were issued since the
// cutoff, across all conversations. Drives the per-day reply cap.
func CountRespondedSince(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Where("responded = ? AND responded_at >= ?", true, cutoff).
		Count(&n).Error
	return n, err
}

// CountReplies returns the total number of stored replies.
func CountReplies(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Reply{}).
		Count(&total).Error
	return total, err
}

// ListRepliesPage returns a paginated slice of replies ordered by their
// platform creation time descending.
func ListRepliesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Reply, error) {
	var out []domain.Reply
	err := db.WithContext(ctx).
		Order("replied_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// DeleteRepliesOlderThan hard-deletes replies created before the cutoff and
// returns the number of rows removed. Used by the retention cleanup job.
func DeleteRepliesOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Unscoped().
		Where("replied_at < ?", cutoff).
		Delete(&domain.Reply{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation reports whether err originates from a unique-constraint
// conflict. GORM surfaces gorm.ErrDuplicatedKey for dialects with translation
// enabled; the sqlite driver may also bubble the raw constraint message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
