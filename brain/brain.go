// Package brain drives one conversational turn end to end: persist the
// inbound message, recall context, generate a reply, scrub it, persist
// it, and periodically consolidate what was learned into the profile
// and a reflection.
package brain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/logging"
	"github.com/aanya-ai/aanya/memory"
	"github.com/aanya-ai/aanya/persona"
	"github.com/aanya-ai/aanya/provider"
)

const (
	defaultRecallResults    = 3
	defaultContextMessages  = 10
	defaultConsolidateEvery = 5

	conversationTemperature = 0.85
	reflectionTemperature   = 0.7
)

// Generator is the slice of the provider rotator the brain needs.
// Satisfied by *provider.Rotator.
type Generator interface {
	Generate(ctx context.Context, system string, turns []core.Turn, temperature float64) string
	GenerateStructured(ctx context.Context, system string, turns []core.Turn, out any) bool
	Status() provider.Status
}

// Brain runs conversational turns for one user session.
type Brain struct {
	gen     Generator
	memory  *memory.Manager
	persona *persona.Persona

	sessionID string
	turns     atomic.Int64

	recallResults    int
	contextMessages  int
	consolidateEvery int

	wg sync.WaitGroup
}

// Option configures the brain.
type Option func(*Brain)

// WithRecallResults sets how many semantic memories each turn recalls.
func WithRecallResults(n int) Option {
	return func(b *Brain) { b.recallResults = n }
}

// WithContextMessages sets how many recent messages feed the prompt.
func WithContextMessages(n int) Option {
	return func(b *Brain) { b.contextMessages = n }
}

// WithConsolidateEvery sets the turn interval between consolidations.
func WithConsolidateEvery(n int) Option {
	return func(b *Brain) {
		if n > 0 {
			b.consolidateEvery = n
		}
	}
}

// New creates a brain and registers a fresh session.
func New(ctx context.Context, gen Generator, mem *memory.Manager, p *persona.Persona, opts ...Option) *Brain {
	b := &Brain{
		gen:              gen,
		memory:           mem,
		persona:          p,
		sessionID:        newSessionID(),
		recallResults:    defaultRecallResults,
		contextMessages:  defaultContextMessages,
		consolidateEvery: defaultConsolidateEvery,
	}
	for _, opt := range opts {
		opt(b)
	}

	mem.StartSession(ctx, core.Session{ID: b.sessionID, StartedAt: time.Now()})
	logging.From(ctx).Info("brain awake",
		"session", b.sessionID,
		"messages", mem.MessageCount(ctx),
		"vector_memories", mem.VectorCount(ctx),
		"provider", gen.Status().Primary)
	return b
}

// SessionID returns the id attached to this brain's messages.
func (b *Brain) SessionID() string {
	return b.sessionID
}

// TurnRequest is the inbound turn API: the only contract a transport
// layer needs from the core.
type TurnRequest struct {
	Message string `json:"message"`
	// WantAudio is accepted for transport compatibility; synthesis is
	// handled outside the core.
	WantAudio bool `json:"want_audio,omitempty"`
}

// TurnResponse carries the cleaned reply and the number of vector
// memories currently available.
type TurnResponse struct {
	Reply       string `json:"reply"`
	MemoryCount int    `json:"memory_count"`
}

// HandleTurn runs one turn for a transport-layer request.
func (b *Brain) HandleTurn(ctx context.Context, req *TurnRequest) *TurnResponse {
	return &TurnResponse{
		Reply:       b.Chat(ctx, req.Message),
		MemoryCount: b.memory.VectorCount(ctx),
	}
}

// Chat processes one user message and always returns a non-empty reply,
// even under total provider or memory failure. Persistence failures are
// logged, never surfaced.
func (b *Brain) Chat(ctx context.Context, userMessage string) string {
	logger := logging.From(ctx)

	if err := b.memory.SaveMessage(ctx, core.RoleUser, userMessage, b.sessionID, ""); err != nil {
		logger.Warn("failed to persist user message", "error", err)
	}
	turn := b.turns.Add(1)

	memories := b.memory.Recall(ctx, userMessage, b.recallResults)
	system := b.persona.SystemPrompt(b.memory.Profile(), memories)

	turns := core.Turns(b.memory.RecentMessages(ctx, b.contextMessages))
	if len(turns) == 0 {
		// Degraded memory still has to carry the current message.
		turns = []core.Turn{{Role: core.RoleUser, Content: userMessage}}
	}

	raw := b.gen.Generate(ctx, system, turns, conversationTemperature)

	reply := clean(raw)
	if reply == "" {
		reply = strings.TrimSpace(raw)
	}
	if reply == "" {
		reply = provider.FallbackReply
	}

	if err := b.memory.SaveMessage(ctx, core.RoleAssistant, reply, b.sessionID, ""); err != nil {
		logger.Warn("failed to persist assistant message", "error", err)
	}

	if turn%int64(b.consolidateEvery) == 0 {
		b.dispatch(ctx, b.consolidate)
	}
	return reply
}

// Turn returns the number of turns processed so far.
func (b *Brain) Turn() int64 {
	return b.turns.Load()
}

// Stats is a point-in-time snapshot of the brain and its memory.
type Stats struct {
	SessionID string            `json:"session_id"`
	Turn      int64             `json:"conversation_turn"`
	Provider  provider.Status   `json:"provider"`
	Memory    core.MemoryStats  `json:"memory"`
	Profile   *core.UserProfile `json:"profile"`
}

// Stats reports the current session state.
func (b *Brain) Stats(ctx context.Context) Stats {
	return Stats{
		SessionID: b.sessionID,
		Turn:      b.turns.Load(),
		Provider:  b.gen.Status(),
		Memory:    b.memory.Stats(ctx),
		Profile:   b.memory.Profile(),
	}
}

// Close waits for in-flight consolidation to finish, bounded by ctx.
func (b *Brain) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch runs fn in the background, detached from the turn's
// cancellation but keeping its logger. Panics and errors stay inside
// the goroutine; the turn's reply is already committed by now.
func (b *Brain) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in consolidation", "panic", r)
			}
		}()
		fn(bgCtx)
	}()
}

// consolidate regenerates the profile from the recent transcript and
// writes a reflection. Failures in either are logged and isolated.
func (b *Brain) consolidate(ctx context.Context) {
	b.updateProfile(ctx)
	b.writeReflection(ctx)
}

func (b *Brain) updateProfile(ctx context.Context) {
	logger := logging.From(ctx)

	recent := b.memory.RecentMessages(ctx, b.contextMessages)
	if len(recent) == 0 {
		return
	}

	prompt := b.persona.ProfileUpdatePrompt(b.memory.Profile(), transcript(recent))
	var patch core.ProfilePatch
	if !b.gen.GenerateStructured(ctx, prompt, []core.Turn{
		{Role: core.RoleUser, Content: "Update the profile based on the conversation above."},
	}, &patch) {
		return
	}

	if err := b.memory.UpdateProfile(ctx, &patch); err != nil {
		logger.Warn("profile update failed", "error", err)
		return
	}
	logger.Info("profile updated", "session", b.sessionID)
}

func (b *Brain) writeReflection(ctx context.Context) {
	logger := logging.From(ctx)

	recent := b.memory.RecentMessages(ctx, b.contextMessages)
	if len(recent) == 0 {
		return
	}

	prompt := b.persona.ReflectionPrompt(transcript(recent))
	reflection := b.gen.Generate(ctx, prompt, []core.Turn{
		{Role: core.RoleUser, Content: "Write your reflection."},
	}, reflectionTemperature)
	if reflection == "" || reflection == provider.FallbackReply {
		return
	}

	if err := b.memory.SaveReflection(ctx, reflection); err != nil {
		logger.Warn("reflection save failed", "error", err)
		return
	}
	logger.Info("reflection written", "session", b.sessionID)
}

func transcript(msgs []core.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

func newSessionID() string {
	return fmt.Sprintf("session_%s_%s",
		time.Now().Format("20060102_150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
