package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/tbourn/go-xbot/internal/platform"
	"github.com/tbourn/go-xbot/internal/quota"
)

// CollectMetrics refreshes the engagement snapshot of every post inside
// the stats lookback and appends a metrics history row per post. Each
// fetch consumes one read from the quota tracker; the job stops early
// when reads run out.
func (s *Service) CollectMetrics(ctx context.Context) error {
	posts, err := s.Store.RecentPosts(ctx, s.DB, s.opts.StatsLookback)
	if err != nil {
		return fmt.Errorf("load recent posts: %w", err)
	}

	var updated, failed int
	for _, post := range posts {
		if !s.Quota.Check(quota.KindRead, 1) {
			s.log.Info().Int("updated", updated).Msg("read quota exhausted, stats collection stopped early")
			break
		}
		m, err := platform.RetryResult(ctx, func() (platform.PostMetrics, error) {
			return s.Platform.Metrics(ctx, post.PlatformID)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			s.log.Warn().Err(err).Str("platform_id", post.PlatformID).Msg("metrics fetch failed")
			continue
		}
		s.Quota.Consume(quota.KindRead, 1)

		now := time.Now().UTC()
		if err := s.Store.UpdatePostEngagement(ctx, s.DB, post.PlatformID, m.Likes, m.Reposts, m.Replies, m.Impressions); err != nil {
			failed++
			s.log.Warn().Err(err).Str("platform_id", post.PlatformID).Msg("engagement update failed")
			continue
		}
		if err := s.Store.SaveMetrics(ctx, s.DB, post.PlatformID, m.Likes, m.Reposts, m.Replies, m.Impressions, now); err != nil {
			failed++
			s.log.Warn().Err(err).Str("platform_id", post.PlatformID).Msg("metrics history insert failed")
			continue
		}
		updated++
	}

	s.log.Info().Int("posts", len(posts)).Int("updated", updated).Int("failed", failed).Msg("stats collection finished")
	if failed > 0 && updated == 0 && len(posts) > 0 {
		return fmt.Errorf("stats collection: all %d posts failed", failed)
	}
	return nil
}

// DailyReport aggregates the previous full day's activity and logs it as
// the operator-facing summary.
func (s *Service) DailyReport(ctx context.Context) error {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	rep, err := s.Store.ReportBetween(ctx, s.DB, yesterday, today)
	if err != nil {
		return fmt.Errorf("daily report: %w", err)
	}

	s.log.Info().
		Str("day", yesterday.Format("2006-01-02")).
		Int64("posts", rep.Posts).
		Int64("replies_discovered", rep.Replies).
		Int64("likes_given", rep.LikesGiven).
		Int64("replies_sent", rep.RepliesSent).
		Int64("likes_earned", rep.LikesEarned).
		Int64("impressions", rep.Impressions).
		Msg("daily report")
	return nil
}

// Cleanup hard-deletes posts, replies, and metrics history older than the
// retention horizon.
func (s *Service) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.opts.KeepHistoryDays)

	posts, err := s.Store.DeletePostsOlderThan(ctx, s.DB, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup posts: %w", err)
	}
	replies, err := s.Store.DeleteRepliesOlderThan(ctx, s.DB, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup replies: %w", err)
	}
	metrics, err := s.Store.DeleteMetricsOlderThan(ctx, s.DB, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup metrics: %w", err)
	}

	s.log.Info().
		Time("cutoff", cutoff).
		Int64("posts", posts).
		Int64("replies", replies).
		Int64("metrics", metrics).
		Msg("retention cleanup finished")
	return nil
}
