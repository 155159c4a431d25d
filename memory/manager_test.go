package memory_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/memory"
	"github.com/aanya-ai/aanya/memory/embedder/mock"
	"github.com/aanya-ai/aanya/memory/store/chromem"
	"github.com/aanya-ai/aanya/memory/store/sqlite"
)

func newManager(t *testing.T) *memory.Manager {
	t.Helper()
	history, err := sqlite.New(filepath.Join(t.TempDir(), "chat_history.db"))
	require.NoError(t, err)
	vectors, err := chromem.New()
	require.NoError(t, err)

	m := memory.NewManager(context.Background(), history, vectors, mock.New())
	t.Cleanup(func() { m.Close() })
	return m
}

func strptr(s string) *string { return &s }

func TestSaveMessageFansOut(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	// A user message lands in both history and the vector index.
	require.NoError(t, m.SaveMessage(ctx, core.RoleUser, "I adopted a cat named Chai", "s1", ""))
	assert.Equal(t, 1, m.MessageCount(ctx))
	assert.Equal(t, 1, m.VectorCount(ctx))

	// Assistant replies are history-only.
	require.NoError(t, m.SaveMessage(ctx, core.RoleAssistant, "A cat! What's Chai like?", "s1", ""))
	assert.Equal(t, 2, m.MessageCount(ctx))
	assert.Equal(t, 1, m.VectorCount(ctx))
}

func TestSaveMessageInvalidRole(t *testing.T) {
	m := newManager(t)
	assert.Error(t, m.SaveMessage(context.Background(), core.Role("system"), "nope", "s1", ""))
}

func TestRecallFindsSavedMessage(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveMessage(ctx, core.RoleUser, "I adopted a cat named Chai", "s1", ""))
	require.NoError(t, m.SaveMessage(ctx, core.RoleUser, "work deadlines are brutal", "s1", ""))

	memories := m.Recall(ctx, "I adopted a cat named Chai", 1)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0], "I adopted a cat named Chai")
	// Snippets are prefixed with a readable timestamp.
	assert.True(t, strings.HasPrefix(memories[0], "["), "got %q", memories[0])
}

func TestRecallEmptyStore(t *testing.T) {
	m := newManager(t)
	assert.Empty(t, m.Recall(context.Background(), "anything at all", 3))
}

func TestDegradedManagerStillWorks(t *testing.T) {
	m := memory.NewManager(context.Background(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, m.SaveMessage(ctx, core.RoleUser, "hello", "s1", ""))
	assert.Empty(t, m.RecentMessages(ctx, 10))
	assert.Empty(t, m.Recall(ctx, "hello", 3))
	assert.Equal(t, 0, m.MessageCount(ctx))
	require.NoError(t, m.UpdateProfile(ctx, &core.ProfilePatch{Name: strptr("Rahul")}))
	require.NoError(t, m.SaveReflection(ctx, "quiet day"))
	require.NoError(t, m.Close())
}

func TestUpdateProfilePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	history, err := sqlite.New(filepath.Join(dir, "chat_history.db"))
	require.NoError(t, err)
	m := memory.NewManager(ctx, history, nil, nil)

	require.NoError(t, m.UpdateProfile(ctx, &core.ProfilePatch{
		Name:  strptr("Rahul"),
		Likes: []string{"filter coffee"},
	}))
	require.NoError(t, m.Close())

	// A fresh manager over the same file sees the merged profile.
	history, err = sqlite.New(filepath.Join(dir, "chat_history.db"))
	require.NoError(t, err)
	m = memory.NewManager(ctx, history, nil, nil)
	defer m.Close()

	p := m.Profile()
	assert.Equal(t, "Rahul", p.Name)
	assert.Equal(t, []string{"filter coffee"}, p.Likes)
}

func TestProfileReturnsCopy(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.UpdateProfile(ctx, &core.ProfilePatch{Likes: []string{"chess"}}))

	p := m.Profile()
	p.Likes[0] = "tampered"
	assert.Equal(t, []string{"chess"}, m.Profile().Likes)
}

func TestSaveReflectionMirrorsToVectors(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveReflection(ctx, "They opened up about the new job today."))

	rs := m.RecentReflections(ctx, 5)
	require.Len(t, rs, 1)
	assert.Equal(t, "They opened up about the new job today.", rs[0].Content)
	assert.Equal(t, 1, m.VectorCount(ctx))
}

func TestStats(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveMessage(ctx, core.RoleUser, "hello", "s1", ""))
	require.NoError(t, m.SaveMessage(ctx, core.RoleAssistant, "hi!", "s1", ""))
	require.NoError(t, m.SaveReflection(ctx, "first chat"))
	require.NoError(t, m.UpdateProfile(ctx, &core.ProfilePatch{Name: strptr("Rahul")}))

	stats := m.Stats(ctx)
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 2, stats.VectorMemories)
	assert.Equal(t, 1, stats.Reflections)
	assert.Equal(t, 1, stats.ProfileFilled)
}
