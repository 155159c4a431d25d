// Package openai implements an OpenAI-compatible backend for the rotator.
// With a custom base URL it also fronts Groq and other compatible
// gateways, which expose the same chat completion API.
package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	sdk "github.com/sashabaranov/go-openai"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/provider"
)

// DefaultModel is used unless overridden at construction.
const DefaultModel = "gpt-4o-mini"

// Backend holds one client per credential against a single endpoint.
type Backend struct {
	name    string
	model   string
	baseURL string
	clients []*sdk.Client
}

// Option configures the backend.
type Option func(*Backend)

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(b *Backend) { b.model = model }
}

// WithBaseURL points the backend at an OpenAI-compatible endpoint
// (e.g. https://api.groq.com/openai/v1).
func WithBaseURL(url string) Option {
	return func(b *Backend) { b.baseURL = url }
}

// WithName overrides the backend name reported in status and logs,
// useful when the endpoint is a compatible gateway rather than OpenAI.
func WithName(name string) Option {
	return func(b *Backend) { b.name = name }
}

// New creates a backend with one client per API key.
func New(keys []string, opts ...Option) *Backend {
	b := &Backend{name: "openai", model: DefaultModel}
	for _, opt := range opts {
		opt(b)
	}
	for _, key := range keys {
		cfg := sdk.DefaultConfig(key)
		if b.baseURL != "" {
			cfg.BaseURL = b.baseURL
		}
		b.clients = append(b.clients, sdk.NewClientWithConfig(cfg))
	}
	return b
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) PoolSize() int { return len(b.clients) }

// Complete runs one chat completion against the credential at slot.
func (b *Backend) Complete(ctx context.Context, slot int, req *provider.Request) (string, error) {
	if slot < 0 || slot >= len(b.clients) {
		return "", goerr.New("credential slot out of range", goerr.V("slot", slot))
	}

	msgs := make([]sdk.ChatCompletionMessage, 0, len(req.Turns)+1)
	msgs = append(msgs, sdk.ChatCompletionMessage{
		Role:    sdk.ChatMessageRoleSystem,
		Content: req.System,
	})
	for _, t := range req.Turns {
		role := sdk.ChatMessageRoleUser
		if t.Role == core.RoleAssistant {
			role = sdk.ChatMessageRoleAssistant
		}
		msgs = append(msgs, sdk.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	resp, err := b.clients[slot].CreateChatCompletion(ctx, sdk.ChatCompletionRequest{
		Model:       b.model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", goerr.Wrap(err, "chat completion failed",
			goerr.V("backend", b.name), goerr.V("model", b.model))
	}
	if len(resp.Choices) == 0 {
		return "", goerr.New("chat completion returned no choices", goerr.V("backend", b.name))
	}
	return resp.Choices[0].Message.Content, nil
}
