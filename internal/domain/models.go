// Package domain defines the persistence models for posts published by the
// bot, replies discovered under those posts, and periodic engagement metric
// snapshots. These types are mapped with GORM and form the core data layer
// of the automation service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a piece of content published by the bot on the platform.
// The platform-assigned identifier is kept separate from the local primary
// key so the row can be joined with metric snapshots and survives local
// re-imports.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - PlatformID: identifier assigned by the platform; unique, indexed.
//   - Content: full text of the post.
//   - MediaRef: optional reference to an attached media asset.
//   - PostedAt: publication timestamp (UTC); indexed for lookback queries.
//   - Likes/Reposts/Replies/Impressions: engagement snapshot as of the last
//     metrics collection run.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (rows removed by retention cleanup).
type Post struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	PlatformID  string         `json:"platform_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_posts_platform_id"`
	Content     string         `json:"content"     gorm:"type:text;not null"`
	MediaRef    string         `json:"media_ref,omitempty" gorm:"type:varchar(255)"`
	PostedAt    time.Time      `json:"posted_at"   gorm:"index:idx_posts_posted_at"`
	Likes       int            `json:"likes"       gorm:"not null;default:0"`
	Reposts     int            `json:"reposts"     gorm:"not null;default:0"`
	Replies     int            `json:"replies"     gorm:"not null;default:0"`
	Impressions int            `json:"impressions" gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Reply represents a reply authored by another account under one of the
// bot's posts. A row is created the first time the discovery engine sees the
// platform identifier; the unique index on PlatformID is what makes
// insert-or-ignore deduplication authoritative across process restarts.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PlatformID: platform identifier of the reply; unique, indexed.
//   - PostID: platform identifier of the root post the reply belongs to
//     (the conversation key); indexed.
//   - AuthorID: platform identifier of the reply author.
//   - Content: reply text.
//   - RepliedAt: creation timestamp reported by the platform.
//   - Liked: whether the bot has liked this reply (set at most once).
//   - Responded: whether the bot posted an auto-reply in response to this
//     reply (drives the per-conversation cap re-derivation).
//   - RespondedAt: when the auto-reply was issued; keys the per-day reply
//     cap, independent of later row updates such as liking.
type Reply struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	PlatformID  string         `json:"platform_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_replies_platform_id"`
	PostID      string         `json:"post_id"      gorm:"type:varchar(64);not null;index:idx_replies_post"`
	AuthorID    string         `json:"author_id"    gorm:"type:varchar(64);not null"`
	Content     string         `json:"content"      gorm:"type:text;not null"`
	RepliedAt   time.Time      `json:"replied_at"   gorm:"index:idx_replies_replied_at"`
	Liked       bool           `json:"liked"        gorm:"not null;default:false"`
	Responded   bool           `json:"responded"    gorm:"not null;default:false"`
	RespondedAt *time.Time     `json:"responded_at,omitempty" gorm:"index:idx_replies_responded_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Reply.
func (Reply) TableName() string { return "replies" }

// PostMetrics is a point-in-time engagement snapshot for a post, written by
// the periodic metrics collection job. Snapshots are append-only; the daily
// report reads the series and retention cleanup prunes it.
type PostMetrics struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	PostID      string         `json:"post_id"      gorm:"type:varchar(64);not null;index:idx_metrics_post"`
	Likes       int            `json:"likes"        gorm:"not null;default:0"`
	Reposts     int            `json:"reposts"      gorm:"not null;default:0"`
	Replies     int            `json:"replies"      gorm:"not null;default:0"`
	Impressions int            `json:"impressions"  gorm:"not null;default:0"`
	CollectedAt time.Time      `json:"collected_at" gorm:"index:idx_metrics_collected_at"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for PostMetrics.
func (PostMetrics) TableName() string { return "post_metrics" }
