package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oklog/ulid/v2"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/logging"
)

// recallTimeFormat prefixes recalled snippets with a readable timestamp.
const recallTimeFormat = "Jan 2, 2006 at 3:04 PM"

// Manager is the single facade over the three memory substrates: exact
// history (primary source of truth), vector recall (auxiliary index),
// and the structured user profile plus reflections.
//
// Either store may be nil or become unreachable; the manager degrades to
// logged no-ops rather than failing, so the conversation keeps working
// with reduced memory.
type Manager struct {
	history  HistoryStore
	vectors  VectorStore
	embedder Embedder

	mu      sync.Mutex
	profile *core.UserProfile
}

// NewManager composes the stores into a manager and loads or initializes
// the user profile. Construction never fails: a missing or unreachable
// store only degrades the operations that need it.
func NewManager(ctx context.Context, history HistoryStore, vectors VectorStore, embedder Embedder) *Manager {
	logger := logging.From(ctx)

	m := &Manager{
		history:  history,
		vectors:  vectors,
		embedder: embedder,
		profile:  &core.UserProfile{},
	}

	if history == nil {
		logger.Warn("history store unavailable, exact memory disabled")
	} else {
		p, err := history.LoadProfile(ctx)
		switch {
		case err != nil:
			logger.Warn("failed to load profile, starting empty", "error", err)
		case p == nil:
			if err := history.SaveProfile(ctx, m.profile); err != nil {
				logger.Warn("failed to initialize profile", "error", err)
			}
		default:
			m.profile = p
		}
	}
	if vectors == nil || embedder == nil {
		logger.Warn("vector store unavailable, semantic recall disabled")
	}

	return m
}

// SaveMessage appends to the exact history and, for user messages,
// mirrors the content into the vector store. The vector write is
// best-effort: its failure never loses the history write.
func (m *Manager) SaveMessage(ctx context.Context, role core.Role, content, sessionID, mood string) error {
	if !role.Valid() {
		return goerr.New("invalid message role", goerr.V("role", role))
	}

	if m.history != nil {
		msg := &core.Message{
			Role:      role,
			Content:   content,
			Timestamp: time.Now(),
			SessionID: sessionID,
			Mood:      mood,
		}
		if err := m.history.AppendMessage(ctx, msg); err != nil {
			return goerr.Wrap(err, "failed to append message")
		}
	}

	if role == core.RoleUser {
		m.index(ctx, content, core.KindUserMessage)
	}
	return nil
}

// RecentMessages returns the most recent messages oldest-first.
// A degraded history store yields an empty slice.
func (m *Manager) RecentMessages(ctx context.Context, limit int) []core.Message {
	if m.history == nil {
		return nil
	}
	msgs, err := m.history.RecentMessages(ctx, limit)
	if err != nil {
		logging.From(ctx).Warn("failed to read recent messages", "error", err)
		return nil
	}
	return msgs
}

// SessionMessages returns every message of one session in order.
func (m *Manager) SessionMessages(ctx context.Context, sessionID string) []core.Message {
	if m.history == nil {
		return nil
	}
	msgs, err := m.history.SessionMessages(ctx, sessionID)
	if err != nil {
		logging.From(ctx).Warn("failed to read session messages", "error", err, "session", sessionID)
		return nil
	}
	return msgs
}

// StartSession records a session row. Best-effort bookkeeping.
func (m *Manager) StartSession(ctx context.Context, s core.Session) {
	if m.history == nil {
		return
	}
	if err := m.history.EnsureSession(ctx, s); err != nil {
		logging.From(ctx).Warn("failed to record session", "error", err, "session", s.ID)
	}
}

// MessageCount returns the total number of stored messages.
func (m *Manager) MessageCount(ctx context.Context) int {
	if m.history == nil {
		return 0
	}
	n, err := m.history.MessageCount(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to count messages", "error", err)
		return 0
	}
	return n
}

// VectorCount returns the number of vector records available for recall.
func (m *Manager) VectorCount(ctx context.Context) int {
	if m.vectors == nil {
		return 0
	}
	n, err := m.vectors.Count(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to count vector records", "error", err)
		return 0
	}
	return n
}

// Recall embeds the query and returns up to n nearest memories, each
// prefixed with a readable timestamp. An empty or degraded vector store
// yields an empty slice, never an error.
func (m *Manager) Recall(ctx context.Context, query string, n int) []string {
	if m.vectors == nil || m.embedder == nil || n <= 0 {
		return nil
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		logging.From(ctx).Warn("failed to embed recall query", "error", err)
		return nil
	}

	records, err := m.vectors.Search(ctx, embedding, n)
	if err != nil {
		logging.From(ctx).Warn("vector search failed", "error", err)
		return nil
	}

	memories := make([]string, 0, len(records))
	for _, rec := range records {
		memories = append(memories, fmt.Sprintf("[%s] %s", rec.CreatedAt.Format(recallTimeFormat), rec.Content))
	}
	return memories
}

// Profile returns a copy of the current profile. Callers may mutate the
// copy freely; only UpdateProfile changes manager state.
func (m *Manager) Profile() *core.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.Clone()
}

// UpdateProfile merges a partial update into the profile under the
// field-type merge policy and persists the result. Fields absent from
// the patch are left untouched. Overlapping consolidation runs are
// serialized here so the read-merge-write cycle never loses updates.
func (m *Manager) UpdateProfile(ctx context.Context, patch *core.ProfilePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.profile.Apply(patch) {
		return nil
	}
	if m.history == nil {
		return nil
	}
	if err := m.history.SaveProfile(ctx, m.profile); err != nil {
		return goerr.Wrap(err, "failed to persist profile")
	}
	return nil
}

// SaveReflection appends a diary entry and mirrors it into the vector
// store for recall. The vector write is best-effort.
func (m *Manager) SaveReflection(ctx context.Context, content string) error {
	if m.history != nil {
		r := &core.Reflection{Content: content, Timestamp: time.Now()}
		if err := m.history.AppendReflection(ctx, r); err != nil {
			return goerr.Wrap(err, "failed to append reflection")
		}
	}
	m.index(ctx, content, core.KindReflection)
	return nil
}

// RecentReflections returns the limit most recent reflections,
// most recent first.
func (m *Manager) RecentReflections(ctx context.Context, limit int) []core.Reflection {
	if m.history == nil {
		return nil
	}
	rs, err := m.history.RecentReflections(ctx, limit)
	if err != nil {
		logging.From(ctx).Warn("failed to read reflections", "error", err)
		return nil
	}
	return rs
}

// Stats aggregates counts across all substrates.
func (m *Manager) Stats(ctx context.Context) core.MemoryStats {
	stats := core.MemoryStats{
		TotalMessages:  m.MessageCount(ctx),
		VectorMemories: m.VectorCount(ctx),
	}
	m.mu.Lock()
	stats.ProfileFilled = m.profile.FilledFields()
	m.mu.Unlock()
	if m.history != nil {
		if n, err := m.history.ReflectionCount(ctx); err == nil {
			stats.Reflections = n
		}
	}
	return stats
}

// Close releases both stores.
func (m *Manager) Close() error {
	var firstErr error
	if m.vectors != nil {
		if err := m.vectors.Close(); err != nil {
			firstErr = err
		}
	}
	if m.history != nil {
		if err := m.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// index embeds text and appends a vector record, logging failures
// instead of surfacing them.
func (m *Manager) index(ctx context.Context, content string, kind core.MemoryKind) {
	if m.vectors == nil || m.embedder == nil {
		return
	}

	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		logging.From(ctx).Warn("failed to embed content", "error", err, "kind", kind)
		return
	}

	rec := &VectorRecord{
		ID:        ulid.Make().String(),
		Content:   content,
		Kind:      kind,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
	if err := m.vectors.Add(ctx, rec); err != nil {
		logging.From(ctx).Warn("failed to index content", "error", err, "kind", kind)
	}
}
