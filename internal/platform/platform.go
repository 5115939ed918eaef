// Package platform defines the contract between the automation core and the
// social platform's API. The core never talks HTTP itself: it consumes this
// gateway interface, which concrete adapters (and test fakes) implement.
//
// Error semantics:
//   - ErrRateLimited marks the platform's quota/rate-limit condition and is
//     distinguishable from other failures via errors.Is. Callers treat it as
//     transient and retryable.
//   - ErrQuotaExceeded marks the local daily quota check; it is expected,
//     never retried, and surfaces as a counted skip rather than a failure.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned by gateway implementations when the platform
// rejects a call for rate/quota reasons. It is transient: the retry policy
// backs off and tries again.
var ErrRateLimited = errors.New("platform rate limit exceeded")

// ErrQuotaExceeded is returned when the local quota tracker refuses an
// operation. It is expected and must not be retried.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// Reply is a platform-side reply to one of the bot's posts, as returned by
// Gateway.Replies. The discovery engine converts surviving entries into
// domain.Reply rows.
type Reply struct {
	ID        string    // platform identifier of the reply
	PostID    string    // platform identifier of the root post (conversation key)
	AuthorID  string    // platform identifier of the author
	Content   string    // reply text
	CreatedAt time.Time // creation time reported by the platform
}

// PostMetrics is the engagement snapshot the platform reports for a post.
type PostMetrics struct {
	Likes       int
	Reposts     int
	Replies     int
	Impressions int
}

// Profile is the minimal author information needed for self-like protection
// and reply personalization.
type Profile struct {
	ID       string
	Username string
}

// Gateway wraps the platform's read/write operations. Implementations must
// be safe for concurrent use: multiple scheduler jobs may call into the same
// gateway at once.
//
// All methods honor context cancellation. Write operations return
// ErrRateLimited (possibly wrapped) when the platform signals throttling.
type Gateway interface {
	// Post publishes text, optionally attaching a media reference and/or
	// threading under inReplyTo. It returns the platform identifier of the
	// new post.
	Post(ctx context.Context, text, mediaRef, inReplyTo string) (string, error)

	// Like likes the post or reply identified by id.
	Like(ctx context.Context, id string) error

	// Replies fetches up to max replies under the given post.
	Replies(ctx context.Context, postID string, max int) ([]Reply, error)

	// Metrics fetches the current engagement snapshot for a post.
	Metrics(ctx context.Context, postID string) (PostMetrics, error)

	// ResolveAuthor looks up the profile of an account. A nil profile with
	// nil error means the account could not be resolved; callers requiring
	// author verification must then fail safe.
	ResolveAuthor(ctx context.Context, authorID string) (*Profile, error)

	// Self returns the bot's own account identifier, used to filter the
	// bot's posts out of discovered replies.
	Self() string
}
