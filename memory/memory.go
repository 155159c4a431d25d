package memory

import (
	"context"
	"time"

	"github.com/aanya-ai/aanya/core"
)

// VectorRecord is one embedded memory for semantic recall. Records are
// append-only: never mutated, never deleted. Embedding dimensionality is
// fixed by the embedding model and must match across all records.
type VectorRecord struct {
	ID        string
	Content   string
	Kind      core.MemoryKind
	Embedding []float32
	CreatedAt time.Time
}

// VectorStore is the nearest-neighbor storage backend.
// Implementations: chromem (embedded, SDK default), with production
// deployments free to swap in a server-backed store.
type VectorStore interface {
	// Add appends a record. The embedding must be set by the caller.
	Add(ctx context.Context, rec *VectorRecord) error

	// Search returns up to limit records nearest to the embedding,
	// most similar first. An empty store yields an empty result.
	Search(ctx context.Context, embedding []float32, limit int) ([]*VectorRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// HistoryStore is the durable exact-history backend: the append-only
// message log, the append-only reflections log, the session index, and
// the single-row user profile.
type HistoryStore interface {
	AppendMessage(ctx context.Context, msg *core.Message) error
	RecentMessages(ctx context.Context, limit int) ([]core.Message, error)
	SessionMessages(ctx context.Context, sessionID string) ([]core.Message, error)
	MessageCount(ctx context.Context) (int, error)

	EnsureSession(ctx context.Context, s core.Session) error

	AppendReflection(ctx context.Context, r *core.Reflection) error
	RecentReflections(ctx context.Context, limit int) ([]core.Reflection, error)
	ReflectionCount(ctx context.Context) (int, error)

	// LoadProfile returns the stored profile, or (nil, nil) when none
	// has been written yet.
	LoadProfile(ctx context.Context) (*core.UserProfile, error)
	SaveProfile(ctx context.Context, p *core.UserProfile) error

	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), ollama (local HTTP), onnx (in-process,
// behind the onnx build tag).
type Embedder interface {
	// Embed converts a single text to an embedding vector. The result is
	// deterministic for the same input and model version.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
