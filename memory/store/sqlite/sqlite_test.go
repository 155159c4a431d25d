package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanya-ai/aanya/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "chat_history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendMsg(t *testing.T, s *Store, role core.Role, content, session string) core.Message {
	t.Helper()
	msg := core.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		SessionID: session,
	}
	require.NoError(t, s.AppendMessage(context.Background(), &msg))
	return msg
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.db")

	s, err := New(path)
	require.NoError(t, err)
	appendMsg(t, s, core.RoleUser, "remember me", "s1")
	require.NoError(t, s.Close())

	// Migration is idempotent and data survives reopen.
	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.MessageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendMessageAssignsID(t *testing.T) {
	s := newStore(t)
	first := appendMsg(t, s, core.RoleUser, "one", "s1")
	second := appendMsg(t, s, core.RoleAssistant, "two", "s1")
	assert.Positive(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
}

func TestRecentMessagesChronological(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third", "fourth"} {
		appendMsg(t, s, core.RoleUser, content, "s1")
	}

	msgs, err := s.RecentMessages(ctx, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "second", msgs[0].Content)
	assert.Equal(t, "third", msgs[1].Content)
	assert.Equal(t, "fourth", msgs[2].Content)
}

func TestSessionMessages(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	appendMsg(t, s, core.RoleUser, "hello", "s1")
	appendMsg(t, s, core.RoleAssistant, "hi!", "s1")
	appendMsg(t, s, core.RoleUser, "other session", "s2")

	msgs, err := s.SessionMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)

	msgs, err = s.SessionMessages(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEnsureSessionIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	sess := core.Session{ID: "s1", StartedAt: time.Now()}
	require.NoError(t, s.EnsureSession(ctx, sess))
	require.NoError(t, s.EnsureSession(ctx, sess))
}

func TestReflections(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, content := range []string{"quiet day", "talked about goals"} {
		require.NoError(t, s.AppendReflection(ctx, &core.Reflection{
			Content:   content,
			Timestamp: time.Now(),
		}))
	}

	rs, err := s.RecentReflections(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "talked about goals", rs[0].Content)

	n, err := s.ReflectionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestProfileAbsentThenUpsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.SaveProfile(ctx, &core.UserProfile{Name: "Rahul", Likes: []string{"chess"}}))
	require.NoError(t, s.SaveProfile(ctx, &core.UserProfile{Name: "Rahul", Likes: []string{"chess", "rain"}}))

	p, err = s.LoadProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Rahul", p.Name)
	assert.Equal(t, []string{"chess", "rain"}, p.Likes)
}

func TestMessageMoodRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	msg := core.Message{
		Role:      core.RoleUser,
		Content:   "rough day at work",
		Timestamp: time.Now(),
		SessionID: "s1",
		Mood:      "sad",
	}
	require.NoError(t, s.AppendMessage(ctx, &msg))

	msgs, err := s.RecentMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "sad", msgs[0].Mood)
}
