package posting

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-xbot/internal/domain"
	"github.com/tbourn/go-xbot/internal/platform"
	"github.com/tbourn/go-xbot/internal/quota"
	"github.com/tbourn/go-xbot/internal/repo"
)

func recentPosts(ids ...string) []domain.Post {
	out := make([]domain.Post, len(ids))
	for i, id := range ids {
		out[i] = domain.Post{ID: "row-" + id, PlatformID: id, Content: "post " + id, PostedAt: time.Now().UTC()}
	}
	return out
}

func TestCollectMetrics_UpdatesEveryRecentPost(t *testing.T) {
	store := &fakeStore{posts: recentPosts("p1", "p2")}
	gw := &fakeGateway{metrics: platform.PostMetrics{Likes: 7, Reposts: 1, Replies: 2, Impressions: 90}}
	svc := newTestService(t, store, gw, &fakeContent{}, nil, openWindow(), Options{})

	if err := svc.CollectMetrics(context.Background()); err != nil {
		t.Fatalf("CollectMetrics: %v", err)
	}
	if len(store.updated) != 2 || len(store.metrics) != 2 {
		t.Fatalf("expected both posts refreshed, got updated=%v history=%v", store.updated, store.metrics)
	}
}

func TestCollectMetrics_StopsWhenReadQuotaRunsOut(t *testing.T) {
	store := &fakeStore{posts: recentPosts("p1", "p2", "p3")}
	gw := &fakeGateway{}
	tracker := quota.New(quota.Limits{Reads: 2})
	svc := newTestService(t, store, gw, &fakeContent{}, tracker, openWindow(), Options{})

	if err := svc.CollectMetrics(context.Background()); err != nil {
		t.Fatalf("CollectMetrics: %v", err)
	}
	if len(store.updated) != 2 {
		t.Fatalf("expected early stop after 2 reads, got %v", store.updated)
	}
	if got := tracker.Status().Usage[quota.KindRead]; got != 2 {
		t.Fatalf("expected 2 reads consumed, got %d", got)
	}
}

func TestCollectMetrics_AllFetchesFailingIsAnError(t *testing.T) {
	store := &fakeStore{posts: recentPosts("p1", "p2")}
	gw := &fakeGateway{metricsErr: platform.ErrQuotaExceeded}
	svc := newTestService(t, store, gw, &fakeContent{}, nil, openWindow(), Options{})

	if err := svc.CollectMetrics(context.Background()); err == nil {
		t.Fatal("expected an error when every fetch fails")
	}
	if len(store.updated) != 0 {
		t.Fatalf("no updates expected, got %v", store.updated)
	}
}

func TestDailyReport_CoversThePreviousUTCDay(t *testing.T) {
	store := &fakeStore{report: repo.DailyReport{Posts: 3, Replies: 5, LikesGiven: 4, RepliesSent: 2}}
	svc := newTestService(t, store, &fakeGateway{}, &fakeContent{}, nil, openWindow(), Options{})

	if err := svc.DailyReport(context.Background()); err != nil {
		t.Fatalf("DailyReport: %v", err)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !store.reportTo.Equal(today) {
		t.Fatalf("report should end at today's UTC midnight, got %v", store.reportTo)
	}
	if !store.reportFrom.Equal(today.AddDate(0, 0, -1)) {
		t.Fatalf("report should start at yesterday's UTC midnight, got %v", store.reportFrom)
	}
	if store.reportTo.Sub(store.reportFrom) != 24*time.Hour {
		t.Fatalf("report span must be one day, got %v", store.reportTo.Sub(store.reportFrom))
	}
}

func TestCleanup_UsesRetentionHorizon(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store, &fakeGateway{}, &fakeContent{}, nil, openWindow(), Options{KeepHistoryDays: 30})

	if err := svc.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	want := time.Now().UTC().AddDate(0, 0, -30)
	if diff := store.cleanupCutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff %v not near %v", store.cleanupCutoff, want)
	}
}

func TestCleanup_PropagatesStoreErrors(t *testing.T) {
	svc := newTestService(t, &failingCleanupStore{}, &fakeGateway{}, &fakeContent{}, nil, openWindow(), Options{})
	if err := svc.Cleanup(context.Background()); err == nil {
		t.Fatal("expected cleanup error")
	}
}

// failingCleanupStore embeds the happy-path fake and fails only deletion.
type failingCleanupStore struct{ fakeStore }

func (f *failingCleanupStore) DeletePostsOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return 0, errors.New("locked")
}
