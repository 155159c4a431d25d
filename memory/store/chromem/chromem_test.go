package chromem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/memory"
	"github.com/aanya-ai/aanya/memory/embedder/mock"
)

func addRecord(t *testing.T, s *Store, emb *mock.Embedder, id, content string) {
	t.Helper()
	vec, err := emb.Embed(context.Background(), content)
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), &memory.VectorRecord{
		ID:        id,
		Content:   content,
		Kind:      core.KindUserMessage,
		Embedding: vec,
		CreatedAt: time.Now(),
	}))
}

func TestSearchEmptyStore(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	emb := mock.New()

	vec, err := emb.Embed(context.Background(), "anything")
	require.NoError(t, err)

	records, err := s.Search(context.Background(), vec, 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAddAndSearch(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	emb := mock.New()

	addRecord(t, s, emb, "m1", "I started learning the violin today")
	addRecord(t, s, emb, "m2", "work was exhausting")

	// Identical text embeds identically with the mock, so the exact
	// record must come back first.
	vec, err := emb.Embed(context.Background(), "I started learning the violin today")
	require.NoError(t, err)

	records, err := s.Search(context.Background(), vec, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "m1", records[0].ID)
	assert.Equal(t, core.KindUserMessage, records[0].Kind)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestSearchClampsLimit(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	emb := mock.New()

	addRecord(t, s, emb, "m1", "only record")

	vec, err := emb.Embed(context.Background(), "only record")
	require.NoError(t, err)

	records, err := s.Search(context.Background(), vec, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCount(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	emb := mock.New()

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	addRecord(t, s, emb, "m1", "one")
	addRecord(t, s, emb, "m2", "two")

	n, err = s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	emb := mock.New()

	s, err := NewPersistent(dir)
	require.NoError(t, err)
	addRecord(t, s, emb, "m1", "durable memory")
	require.NoError(t, s.Close())

	s, err = NewPersistent(dir)
	require.NoError(t, err)
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
