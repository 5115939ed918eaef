// Package content — OpenAI-backed provider and the ordered fallback chain.
package content

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Options configures a single chat-completion provider.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string // empty uses the default OpenAI endpoint
	MaxTokens   int
	Temperature float32
}

// OpenAIProvider generates text through one OpenAI-compatible endpoint.
// A custom BaseURL points the same client at a local model server.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	log         zerolog.Logger
}

// NewOpenAIProvider constructs a provider from the given options.
func NewOpenAIProvider(opts Options, log zerolog.Logger) *OpenAIProvider {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		log:         log.With().Str("component", "content").Str("model", opts.Model).Logger(),
	}
}

// Generate produces the text for a new standalone post about topic.
func (p *OpenAIProvider) Generate(ctx context.Context, topic string) (string, error) {
	return p.complete(ctx, postSystemPrompt, postUserPrompt(topic))
}

// GenerateReply produces a conversational answer to the given reply.
func (p *OpenAIProvider) GenerateReply(ctx context.Context, rc ReplyContext) (string, error) {
	return p.complete(ctx, replySystemPrompt, replyUserPrompt(rc))
}

// complete issues one chat completion and sanitizes the result.
func (p *OpenAIProvider) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoContent
	}
	out := sanitize(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrNoContent
	}
	return out, nil
}

// Chain tries each provider in order and returns the first non-empty result.
// It satisfies Gateway itself, so callers never see the fallback topology.
type Chain struct {
	providers []Gateway
	log       zerolog.Logger
}

// NewChain builds a fallback chain over the given providers. At least one
// provider is required; nil entries are skipped.
func NewChain(log zerolog.Logger, providers ...Gateway) *Chain {
	kept := make([]Gateway, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &Chain{
		providers: kept,
		log:       log.With().Str("component", "content_chain").Logger(),
	}
}

// Generate implements Gateway.
func (c *Chain) Generate(ctx context.Context, topic string) (string, error) {
	return c.each(ctx, func(p Gateway) (string, error) { return p.Generate(ctx, topic) })
}

// GenerateReply implements Gateway.
func (c *Chain) GenerateReply(ctx context.Context, rc ReplyContext) (string, error) {
	return c.each(ctx, func(p Gateway) (string, error) { return p.GenerateReply(ctx, rc) })
}

func (c *Chain) each(ctx context.Context, call func(Gateway) (string, error)) (string, error) {
	var lastErr error
	for i, p := range c.providers {
		out, err := call(p)
		if err == nil && out != "" {
			return out, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("provider", i).Msg("content provider failed, trying next")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoContent, lastErr)
	}
	return "", ErrNoContent
}
