// Package content produces post and reply text for the automation core. The
// core consumes the Gateway interface; the concrete implementation chains
// one or more OpenAI-compatible chat-completion providers with ordered
// fallback, mirroring a primary hosted model backed by an optional local
// endpoint.
package content

import (
	"context"
	"errors"
	"strings"
)

// ErrNoContent is returned when every provider failed or produced an empty
// or invalid completion. Callers treat it as a content-generation failure
// (skip or count, never crash).
var ErrNoContent = errors.New("no content generated")

// ReplyContext carries what the reply generator needs to know about the
// comment it is answering.
type ReplyContext struct {
	// Text is the content of the reply being answered.
	Text string
	// AuthorUsername is the display handle of the reply author; "friend"
	// when the author could not be resolved.
	AuthorUsername string
	// PostText is the bot's own root post, for topical grounding.
	PostText string
}

// Gateway generates post and reply text. Implementations may chain several
// backing providers; the core treats generation as a single synchronous call
// that can fail with ErrNoContent.
type Gateway interface {
	// Generate produces the text for a new standalone post about topic.
	// An empty topic lets the provider pick its own angle.
	Generate(ctx context.Context, topic string) (string, error)

	// GenerateReply produces a conversational answer to the given reply.
	GenerateReply(ctx context.Context, rc ReplyContext) (string, error)
}

// sanitize trims whitespace and strips the wrapping quotes chat models like
// to add around short completions.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}
