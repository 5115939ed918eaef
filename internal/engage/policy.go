package engage

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-xbot/internal/content"
	"github.com/tbourn/go-xbot/internal/events"
	"github.com/tbourn/go-xbot/internal/platform"
	"github.com/tbourn/go-xbot/internal/quota"
	"github.com/tbourn/go-xbot/internal/repo"
)

// applyPolicy runs the like and reply decisions for one discovered reply.
// The two actions are independent: either may fail or be skipped without
// affecting the other, and neither failure reaches the caller.
func (e *Engine) applyPolicy(ctx context.Context, r platform.Reply, postText string, opts Options, stats *CycleStats) {
	if opts.AutoLike {
		liked, err := e.maybeLike(ctx, r)
		if err != nil {
			stats.Failures++
			e.log.Warn().Err(err).Str("reply_id", r.ID).Msg("auto-like failed")
		} else if liked {
			stats.Liked++
		}
	}
	if opts.AutoReply {
		sent, err := e.maybeReply(ctx, r, postText, opts)
		if err != nil {
			stats.Failures++
			e.log.Warn().Err(err).Str("reply_id", r.ID).Msg("auto-reply failed")
		} else if sent {
			stats.Responded++
		}
	}
}

// maybeLike likes the reply unless it is already liked, authored by the
// bot, or over quota. The author is re-verified through the platform
// before liking: if the author cannot be resolved the like is skipped
// rather than risk liking the bot's own content. Returns true only when a
// like was actually issued.
func (e *Engine) maybeLike(ctx context.Context, r platform.Reply) (bool, error) {
	liked, err := e.Store.IsReplyLiked(ctx, e.DB, r.ID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	if liked {
		return false, nil
	}

	profile, err := e.Platform.ResolveAuthor(ctx, r.AuthorID)
	if err != nil {
		return false, err
	}
	if profile == nil || profile.ID == e.Platform.Self() {
		e.log.Debug().Str("reply_id", r.ID).Msg("author unverified or self, like skipped")
		return false, nil
	}

	if !e.Quota.Check(quota.KindLike, 1) {
		e.log.Debug().Str("reply_id", r.ID).Msg("like quota exhausted")
		return false, nil
	}
	if err := platform.Retry(ctx, func() error {
		return e.Platform.Like(ctx, r.ID)
	}); err != nil {
		return false, err
	}
	e.Quota.Consume(quota.KindLike, 1)

	if err := e.Store.MarkReplyLiked(ctx, e.DB, r.ID); err != nil {
		return false, err
	}
	e.Bus.Publish(events.Event{Type: events.ReplyLiked, Job: "reply-poll", Fields: map[string]string{"reply_id": r.ID}})
	return true, nil
}

// maybeReply generates and posts a response to the reply, subject to the
// per-day and per-conversation caps and the platform character limit.
// Returns true only when a response was actually posted.
func (e *Engine) maybeReply(ctx context.Context, r platform.Reply, postText string, opts Options) (bool, error) {
	over, err := e.dailyReplyCapReached(ctx, opts.MaxRepliesPerDay)
	if err != nil {
		return false, err
	}
	if over {
		e.log.Debug().Str("reply_id", r.ID).Msg("daily reply cap reached")
		return false, nil
	}

	count, err := e.conversationCount(ctx, r.PostID)
	if err != nil {
		return false, err
	}
	if opts.RepliesPerConversation > 0 && count >= opts.RepliesPerConversation {
		e.log.Debug().Str("post_id", r.PostID).Int("count", count).Msg("conversation cap reached")
		return false, nil
	}

	if !e.Quota.Check(quota.KindPost, 1) {
		e.log.Debug().Str("reply_id", r.ID).Msg("post quota exhausted, reply skipped")
		return false, nil
	}

	// Username is cosmetic; the prompt falls back to a generic address
	// when the author cannot be resolved.
	var username string
	if profile, err := e.Platform.ResolveAuthor(ctx, r.AuthorID); err == nil && profile != nil {
		username = profile.Username
	}

	text, err := e.Content.GenerateReply(ctx, content.ReplyContext{
		Text:           r.Content,
		AuthorUsername: username,
		PostText:       postText,
	})
	if err != nil {
		return false, err
	}
	if n := utf8.RuneCountInString(text); n == 0 || n > opts.MaxReplyRunes {
		return false, errors.Join(content.ErrNoContent, errors.New("generated reply failed length validation"))
	}

	if _, err := platform.RetryResult(ctx, func() (string, error) {
		return e.Platform.Post(ctx, text, "", r.ID)
	}); err != nil {
		return false, err
	}
	e.Quota.Consume(quota.KindPost, 1)

	if err := e.Store.MarkReplyResponded(ctx, e.DB, r.ID); err != nil {
		return false, err
	}
	e.conversations.Increment(r.PostID)
	e.Bus.Publish(events.Event{Type: events.ReplySent, Job: "reply-poll", Fields: map[string]string{
		"reply_id": r.ID,
		"post_id":  r.PostID,
	}})
	return true, nil
}

// dailyReplyCapReached counts today's auto-replies from the store rather
// than an in-memory counter so the cap survives restarts.
func (e *Engine) dailyReplyCapReached(ctx context.Context, maxPerDay int) (bool, error) {
	if maxPerDay <= 0 {
		return false, nil
	}
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := e.Store.CountRespondedSince(ctx, e.DB, midnight)
	if err != nil {
		return false, err
	}
	return n >= int64(maxPerDay), nil
}

// conversationCount resolves the auto-reply count for a conversation,
// re-deriving from the store when the bounded tracker has no entry (first
// sight or evicted). The store-derived value is cached for next time.
func (e *Engine) conversationCount(ctx context.Context, postID string) (int, error) {
	if n, ok := e.conversations.Count(postID); ok {
		return n, nil
	}
	n, err := e.Store.CountRespondedInConversation(ctx, e.DB, postID)
	if err != nil {
		return 0, err
	}
	e.conversations.Set(postID, int(n))
	return int(n), nil
}
