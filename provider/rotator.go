// Package provider obtains text completions from ranked LLM backends,
// each holding a pool of interchangeable credentials. Any failure rotates
// to the next credential, then to the next backend; total exhaustion
// yields a fixed fallback string instead of an error, so callers always
// have something to say.
package provider

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/logging"
)

// FallbackReply is returned when every backend and credential has failed.
const FallbackReply = "I'm having trouble reaching my brain right now. Give me a moment and try again."

const (
	// DefaultMaxTokens keeps replies short and latency low.
	DefaultMaxTokens = 512

	// DefaultTimeout bounds each credential attempt.
	DefaultTimeout = 30 * time.Second

	// structuredTemperature biases structured extraction toward determinism.
	structuredTemperature = 0.3
)

// Request carries one completion request to a backend.
type Request struct {
	System      string
	Turns       []core.Turn
	Temperature float64
	MaxTokens   int
}

// Backend is one external text-generation capability with a credential
// pool. Slot selects which credential to use; implementations create one
// client per credential at construction and never reorder them.
type Backend interface {
	Name() string
	PoolSize() int
	Complete(ctx context.Context, slot int, req *Request) (string, error)
}

// Rotator drives completions across backends in priority order.
// Credential cursors advance by one on every attempt, successful or not,
// so load spreads evenly and a failing credential is skipped next call.
type Rotator struct {
	backends []Backend

	mu      sync.Mutex
	cursors []int

	maxTokens int
	timeout   time.Duration
	fallback  string
}

// Option configures the rotator.
type Option func(*Rotator)

// WithMaxTokens sets the per-request completion token cap.
func WithMaxTokens(n int) Option {
	return func(r *Rotator) { r.maxTokens = n }
}

// WithTimeout sets the per-credential attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Rotator) { r.timeout = d }
}

// WithFallback overrides the exhaustion reply.
func WithFallback(text string) Option {
	return func(r *Rotator) { r.fallback = text }
}

// NewRotator creates a rotator over the given backends. Backend priority
// is the slice order and never changes at runtime.
func NewRotator(backends []Backend, opts ...Option) *Rotator {
	r := &Rotator{
		backends:  backends,
		cursors:   make([]int, len(backends)),
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultTimeout,
		fallback:  FallbackReply,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate runs the request against the first backend that answers.
// Every credential is tried at most once per call. Generation failure is
// never fatal: exhaustion returns the fallback reply.
func (r *Rotator) Generate(ctx context.Context, system string, turns []core.Turn, temperature float64) string {
	logger := logging.From(ctx)

	for i, backend := range r.backends {
		pool := backend.PoolSize()
		for attempt := 0; attempt < pool; attempt++ {
			slot := r.advance(i, pool)

			cctx, cancel := context.WithTimeout(ctx, r.timeout)
			text, err := backend.Complete(cctx, slot, &Request{
				System:      system,
				Turns:       turns,
				Temperature: temperature,
				MaxTokens:   r.maxTokens,
			})
			cancel()

			if err != nil {
				logger.Warn("provider attempt failed",
					"backend", backend.Name(),
					"slot", slot,
					"error", err)
				continue
			}
			if text = strings.TrimSpace(text); text == "" {
				logger.Warn("provider returned empty completion",
					"backend", backend.Name(),
					"slot", slot)
				continue
			}
			return text
		}
	}

	logger.Error("all provider backends exhausted")
	return r.fallback
}

// GenerateStructured generates with a low temperature and parses the
// reply as JSON into out, tolerating fenced code markers around it.
// A reply that does not parse is reported as absent, not as an error.
func (r *Rotator) GenerateStructured(ctx context.Context, system string, turns []core.Turn, out any) bool {
	text := r.Generate(ctx, system, turns, structuredTemperature)
	if text == r.fallback {
		return false
	}

	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		logging.From(ctx).Warn("structured reply did not parse",
			"error", err,
			"sample", truncate(cleaned, 100))
		return false
	}
	return true
}

// Status reports how many credentials each backend holds and which
// backend is currently primary.
type Status struct {
	Primary  string         `json:"primary"`
	Backends map[string]int `json:"backends"`
}

// Status returns the current provider status.
func (r *Rotator) Status() Status {
	st := Status{Primary: "none", Backends: make(map[string]int, len(r.backends))}
	for _, b := range r.backends {
		st.Backends[b.Name()] = b.PoolSize()
		if st.Primary == "none" && b.PoolSize() > 0 {
			st.Primary = b.Name()
		}
	}
	return st
}

// advance returns the current cursor for backend i and moves it forward.
// Concurrent turns see approximate round-robin, which is all we need.
func (r *Rotator) advance(i, pool int) int {
	if pool <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.cursors[i] % pool
	r.cursors[i] = (slot + 1) % pool
	return slot
}

// stripFences removes optional markdown code fences around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
