// Package memory layers the companion's three persistence substrates
// behind a single facade.
//
// Substrates:
//   - HistoryStore: exact, append-only transcript plus the user profile
//     and reflections log (SQLite for the local SDK)
//   - VectorStore: embedded nearest-neighbor recall over user messages
//     and reflections (chromem-go locally, swappable for production)
//   - Embedder: text-to-vector conversion (mock for tests, Ollama over
//     HTTP, or in-process ONNX behind the onnx build tag)
//
// The exact history is the primary source of truth; the vector store is
// an auxiliary index. Every user message fans out to both, and a failed
// vector write is logged and absorbed rather than losing the turn.
// A missing or unreachable store degrades the manager to logged no-ops
// so the conversation itself never crashes because memory is down.
package memory
