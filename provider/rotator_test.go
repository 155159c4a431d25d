package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanya-ai/aanya/core"
)

// fakeBackend records every attempt and answers from a script keyed by
// credential slot. A missing script entry means failure.
type fakeBackend struct {
	name    string
	pool    int
	replies map[int]string
	calls   []int
}

func (f *fakeBackend) Name() string  { return f.name }
func (f *fakeBackend) PoolSize() int { return f.pool }

func (f *fakeBackend) Complete(_ context.Context, slot int, _ *Request) (string, error) {
	f.calls = append(f.calls, slot)
	if text, ok := f.replies[slot]; ok {
		return text, nil
	}
	return "", errors.New("simulated provider failure")
}

var noTurns = []core.Turn{{Role: core.RoleUser, Content: "hi"}}

func TestGenerateFirstCredentialWins(t *testing.T) {
	b := &fakeBackend{name: "groq", pool: 3, replies: map[int]string{0: "hello there"}}
	r := NewRotator([]Backend{b})

	got := r.Generate(context.Background(), "", noTurns, 0.85)
	assert.Equal(t, "hello there", got)
	assert.Equal(t, []int{0}, b.calls)
}

func TestGenerateRotatesPastFailingCredential(t *testing.T) {
	b := &fakeBackend{name: "groq", pool: 3, replies: map[int]string{1: "second key works"}}
	r := NewRotator([]Backend{b})

	got := r.Generate(context.Background(), "", noTurns, 0.85)
	assert.Equal(t, "second key works", got)
	assert.Equal(t, []int{0, 1}, b.calls)
}

func TestGenerateFallsThroughToBackupBackend(t *testing.T) {
	primary := &fakeBackend{name: "groq", pool: 2}
	backup := &fakeBackend{name: "anthropic", pool: 1, replies: map[int]string{0: "backup answered"}}
	r := NewRotator([]Backend{primary, backup})

	got := r.Generate(context.Background(), "", noTurns, 0.85)
	assert.Equal(t, "backup answered", got)
	assert.Equal(t, []int{0, 1}, primary.calls)
	assert.Equal(t, []int{0}, backup.calls)
}

func TestGenerateExhaustionTriesEveryCredentialOnce(t *testing.T) {
	primary := &fakeBackend{name: "groq", pool: 3}
	backup := &fakeBackend{name: "anthropic", pool: 2}
	r := NewRotator([]Backend{primary, backup})

	got := r.Generate(context.Background(), "", noTurns, 0.85)
	assert.Equal(t, FallbackReply, got)
	assert.Len(t, primary.calls, 3)
	assert.Len(t, backup.calls, 2)
}

func TestGenerateCursorAdvancesAcrossCalls(t *testing.T) {
	// Success still moves the cursor, so consecutive turns spread load
	// round-robin over the pool.
	b := &fakeBackend{name: "groq", pool: 3, replies: map[int]string{0: "a", 1: "b", 2: "c"}}
	r := NewRotator([]Backend{b})

	for i := 0; i < 4; i++ {
		r.Generate(context.Background(), "", noTurns, 0.85)
	}
	assert.Equal(t, []int{0, 1, 2, 0}, b.calls)
}

func TestGenerateEmptyCompletionRotates(t *testing.T) {
	b := &fakeBackend{name: "groq", pool: 2, replies: map[int]string{0: "   ", 1: "real reply"}}
	r := NewRotator([]Backend{b})

	got := r.Generate(context.Background(), "", noTurns, 0.85)
	assert.Equal(t, "real reply", got)
}

func TestGenerateNoBackends(t *testing.T) {
	r := NewRotator(nil)
	assert.Equal(t, FallbackReply, r.Generate(context.Background(), "", noTurns, 0.85))
}

func TestGenerateCustomFallback(t *testing.T) {
	r := NewRotator(nil, WithFallback("brb"))
	assert.Equal(t, "brb", r.Generate(context.Background(), "", noTurns, 0.85))
}

func TestGenerateStructured(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		ok    bool
	}{
		{"bare json", `{"name": "Rahul"}`, true},
		{"fenced json", "```json\n{\"name\": \"Rahul\"}\n```", true},
		{"plain fence", "```\n{\"name\": \"Rahul\"}\n```", true},
		{"prose instead of json", "Sure! Here is what I learned about the user.", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{name: "groq", pool: 1, replies: map[int]string{0: tc.reply}}
			r := NewRotator([]Backend{b})

			var out struct {
				Name string `json:"name"`
			}
			ok := r.GenerateStructured(context.Background(), "", noTurns, &out)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, "Rahul", out.Name)
			}
		})
	}
}

func TestGenerateStructuredExhaustionIsAbsent(t *testing.T) {
	r := NewRotator([]Backend{&fakeBackend{name: "groq", pool: 1}})

	var out map[string]any
	assert.False(t, r.GenerateStructured(context.Background(), "", noTurns, &out))
}

func TestStatus(t *testing.T) {
	r := NewRotator([]Backend{
		&fakeBackend{name: "groq", pool: 0},
		&fakeBackend{name: "anthropic", pool: 2},
	})

	st := r.Status()
	assert.Equal(t, "anthropic", st.Primary)
	assert.Equal(t, map[string]int{"groq": 0, "anthropic": 2}, st.Backends)

	assert.Equal(t, "none", NewRotator(nil).Status().Primary)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
