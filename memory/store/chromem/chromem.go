// Package chromem backs the vector store with chromem-go, a pure Go
// embedded vector database.
package chromem

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"

	"github.com/aanya-ai/aanya/core"
	"github.com/aanya-ai/aanya/memory"
)

// collectionName holds every memory; kinds are told apart by metadata.
const collectionName = "memories"

// Store wraps a single chromem collection.
type Store struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New creates an in-memory store. Contents are lost on process exit;
// use NewPersistent for durable recall.
func New() (*Store, error) {
	return open(chromem.NewDB())
}

// NewPersistent creates a store that persists to the given directory.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open chromem db", goerr.V("path", path))
	}
	return open(db)
}

func open(db *chromem.DB) (*Store, error) {
	// Embeddings are provided by the caller, so no embedding func here.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create collection")
	}
	return &Store{db: db, col: col}, nil
}

// Add appends one record.
func (s *Store) Add(ctx context.Context, rec *memory.VectorRecord) error {
	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: rec.Embedding,
		Metadata: map[string]string{
			"kind":       string(rec.Kind),
			"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to add document", goerr.V("id", rec.ID))
	}
	return nil
}

// Search returns up to limit records nearest to the embedding. chromem
// rejects result counts above the collection size, so the limit is
// clamped; an empty collection yields an empty result.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int) ([]*memory.VectorRecord, error) {
	count := s.col.Count()
	if count == 0 || limit <= 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "chromem query failed")
	}

	records := make([]*memory.VectorRecord, 0, len(results))
	for _, res := range results {
		createdAt, _ := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])
		records = append(records, &memory.VectorRecord{
			ID:        res.ID,
			Content:   res.Content,
			Kind:      core.MemoryKind(res.Metadata["kind"]),
			Embedding: res.Embedding,
			CreatedAt: createdAt,
		})
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.col.Count(), nil
}

// Close is a no-op; chromem flushes persistent writes as they happen.
func (s *Store) Close() error {
	return nil
}
