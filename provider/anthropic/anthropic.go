// Package anthropic implements the Anthropic backend for the rotator.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/provider"
)

// DefaultModel is used unless overridden at construction.
const DefaultModel = "claude-sonnet-4-20250514"

// Backend holds one Anthropic client per credential. The pool order is
// the key load order; only the rotator's cursor decides which slot runs.
type Backend struct {
	clients []sdk.Client
	model   string
}

// Option configures the backend.
type Option func(*Backend)

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(b *Backend) { b.model = model }
}

// New creates a backend with one client per API key.
func New(keys []string, opts ...Option) *Backend {
	b := &Backend{model: DefaultModel}
	for _, key := range keys {
		b.clients = append(b.clients, sdk.NewClient(option.WithAPIKey(key)))
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string { return "anthropic" }

func (b *Backend) PoolSize() int { return len(b.clients) }

// Complete runs one completion against the credential at slot.
func (b *Backend) Complete(ctx context.Context, slot int, req *provider.Request) (string, error) {
	if slot < 0 || slot >= len(b.clients) {
		return "", goerr.New("credential slot out of range", goerr.V("slot", slot))
	}

	msgs := make([]sdk.MessageParam, 0, len(req.Turns))
	for _, t := range req.Turns {
		if t.Role == core.RoleAssistant {
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(t.Content)))
		} else {
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(t.Content)))
		}
	}

	resp, err := b.clients[slot].Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(b.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: sdk.Float(req.Temperature),
		Messages:    msgs,
		System: []sdk.TextBlockParam{
			{Text: req.System},
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "anthropic completion failed", goerr.V("model", b.model))
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
