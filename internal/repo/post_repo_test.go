package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/domain"
)

// newTestDB opens a migrated throwaway database in a temp directory.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestSavePost_AndGetByPlatformID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p, err := SavePost(ctx, db, "plat-1", "hello world", "", time.Time{})
	if err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if p.ID == "" || p.PostedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", p)
	}

	got, err := GetPostByPlatformID(ctx, db, "plat-1")
	if err != nil {
		t.Fatalf("GetPostByPlatformID: %v", err)
	}
	if got.Content != "hello world" {
		t.Fatalf("unexpected content: %q", got.Content)
	}

	if _, err := GetPostByPlatformID(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentPosts_WindowAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := SavePost(ctx, db, "old", "old", "", now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if _, err := SavePost(ctx, db, "mid", "mid", "", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if _, err := SavePost(ctx, db, "new", "new", "", now.Add(-time.Minute)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}

	got, err := RecentPosts(ctx, db, 24*time.Hour)
	if err != nil {
		t.Fatalf("RecentPosts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 posts inside the lookback, got %d", len(got))
	}
	if got[0].PlatformID != "new" || got[1].PlatformID != "mid" {
		t.Fatalf("expected newest first, got %s then %s", got[0].PlatformID, got[1].PlatformID)
	}
}

func TestUpdatePostEngagement(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := SavePost(ctx, db, "plat-1", "hello", "", time.Time{}); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if err := UpdatePostEngagement(ctx, db, "plat-1", 10, 2, 3, 500); err != nil {
		t.Fatalf("UpdatePostEngagement: %v", err)
	}

	got, err := GetPostByPlatformID(ctx, db, "plat-1")
	if err != nil {
		t.Fatalf("GetPostByPlatformID: %v", err)
	}
	if got.Likes != 10 || got.Reposts != 2 || got.Replies != 3 || got.Impressions != 500 {
		t.Fatalf("snapshot not applied: %+v", got)
	}

	if err := UpdatePostEngagement(ctx, db, "missing", 1, 1, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing post, got %v", err)
	}
}

func TestListPostsPage_AndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if _, err := SavePost(ctx, db, id, "post "+id, "", now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("SavePost: %v", err)
		}
	}

	total, err := CountPosts(ctx, db)
	if err != nil || total != 5 {
		t.Fatalf("CountPosts = %d, %v", total, err)
	}

	page, err := ListPostsPage(ctx, db, 2, 2)
	if err != nil {
		t.Fatalf("ListPostsPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	// Newest first: e,d | c,b | a.
	if page[0].PlatformID != "c" || page[1].PlatformID != "b" {
		t.Fatalf("unexpected page: %s, %s", page[0].PlatformID, page[1].PlatformID)
	}
}

func TestDeletePostsOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := SavePost(ctx, db, "stale", "stale", "", now.AddDate(0, 0, -100)); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if _, err := SavePost(ctx, db, "fresh", "fresh", "", now); err != nil {
		t.Fatalf("SavePost: %v", err)
	}

	n, err := DeletePostsOlderThan(ctx, db, now.AddDate(0, 0, -90))
	if err != nil || n != 1 {
		t.Fatalf("DeletePostsOlderThan = %d, %v", n, err)
	}

	// Hard delete: the row must be gone even for unscoped reads.
	var count int64
	if err := db.Unscoped().Model(&domain.Post{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 surviving row, got %d", count)
	}
}
