package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// scripted is a Gateway whose answers are fixed per call.
type scripted struct {
	text  string
	err   error
	calls int
}

func (s *scripted) Generate(ctx context.Context, topic string) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *scripted) GenerateReply(ctx context.Context, rc ReplyContext) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestChain_FirstProviderWins(t *testing.T) {
	primary := &scripted{text: "from primary"}
	fallback := &scripted{text: "from fallback"}
	chain := NewChain(zerolog.Nop(), primary, fallback)

	out, err := chain.Generate(context.Background(), "go")
	if err != nil || out != "from primary" {
		t.Fatalf("got %q, %v", out, err)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback must not be consulted when the primary succeeds")
	}
}

func TestChain_FallsBackInOrder(t *testing.T) {
	primary := &scripted{err: errors.New("api down")}
	fallback := &scripted{text: "from fallback"}
	chain := NewChain(zerolog.Nop(), primary, fallback)

	out, err := chain.GenerateReply(context.Background(), ReplyContext{Text: "hi"})
	if err != nil || out != "from fallback" {
		t.Fatalf("got %q, %v", out, err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected both providers tried once, got %d/%d", primary.calls, fallback.calls)
	}
}

func TestChain_AllProvidersFailing(t *testing.T) {
	chain := NewChain(zerolog.Nop(),
		&scripted{err: errors.New("api down")},
		&scripted{err: errors.New("also down")},
	)

	_, err := chain.Generate(context.Background(), "")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestChain_EmptyCompletionFallsThrough(t *testing.T) {
	chain := NewChain(zerolog.Nop(), &scripted{text: ""}, &scripted{text: "second"})

	out, err := chain.Generate(context.Background(), "go")
	if err != nil || out != "second" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestChain_SkipsNilProviders(t *testing.T) {
	chain := NewChain(zerolog.Nop(), nil, &scripted{text: "only"})
	out, err := chain.Generate(context.Background(), "go")
	if err != nil || out != "only" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	second := &scripted{text: "never"}
	chain := NewChain(zerolog.Nop(), &scripted{err: errors.New("down")}, second)

	_, err := chain.Generate(ctx, "go")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if second.calls != 0 {
		t.Fatal("cancelled chain must not consult further providers")
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		`"quoted post"`:        "quoted post",
		"  padded  ":           "padded",
		"\n\"  both  \"\n":     "both",
		"it's \"fine\" inside": `it's "fine" inside`,
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplyUserPrompt_FallsBackToFriend(t *testing.T) {
	p := replyUserPrompt(ReplyContext{Text: "love this"})
	if !strings.Contains(p, "@friend") {
		t.Fatalf("unresolved author should be addressed as friend: %q", p)
	}

	p = replyUserPrompt(ReplyContext{Text: "love this", AuthorUsername: "alice", PostText: "my post"})
	if !strings.Contains(p, "@alice") || !strings.Contains(p, "my post") {
		t.Fatalf("prompt missing context: %q", p)
	}
}

func TestPostUserPrompt(t *testing.T) {
	if p := postUserPrompt("distributed systems"); !strings.Contains(p, "distributed systems") {
		t.Fatalf("topic not rendered: %q", p)
	}
	if p := postUserPrompt(""); strings.Contains(p, "about:") {
		t.Fatalf("empty topic must use the open-ended prompt: %q", p)
	}
}
