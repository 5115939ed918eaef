package platform

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DryRun is a Gateway that performs no network I/O: writes log what would
// have happened and return synthetic identifiers, reads return empty pages.
// It is the default adapter when no platform credentials are configured,
// letting the full pipeline (scheduling, quota accounting, persistence) run
// end to end in a sandbox.
type DryRun struct {
	self string
	log  zerolog.Logger
}

// NewDryRun builds a dry-run gateway posing as the given account ID.
func NewDryRun(self string, log zerolog.Logger) *DryRun {
	if self == "" {
		self = "dry-run-self"
	}
	return &DryRun{self: self, log: log.With().Str("component", "platform.dryrun").Logger()}
}

// Post logs the text and returns a synthetic post ID.
func (d *DryRun) Post(ctx context.Context, text, mediaRef, inReplyTo string) (string, error) {
	id := "dry-" + uuid.NewString()
	d.log.Info().Str("post_id", id).Str("in_reply_to", inReplyTo).Str("text", text).Msg("dry-run post")
	return id, nil
}

// Like logs the like.
func (d *DryRun) Like(ctx context.Context, id string) error {
	d.log.Info().Str("post_id", id).Msg("dry-run like")
	return nil
}

// Replies returns an empty page; nothing replies to a dry-run post.
func (d *DryRun) Replies(ctx context.Context, postID string, max int) ([]Reply, error) {
	return nil, nil
}

// Metrics returns zeroes.
func (d *DryRun) Metrics(ctx context.Context, postID string) (PostMetrics, error) {
	return PostMetrics{}, nil
}

// ResolveAuthor resolves only the bot's own synthetic profile.
func (d *DryRun) ResolveAuthor(ctx context.Context, authorID string) (*Profile, error) {
	if authorID == d.self {
		return &Profile{ID: d.self, Username: "dry_run_bot"}, nil
	}
	return nil, nil
}

// Self returns the configured account ID.
func (d *DryRun) Self() string { return d.self }
