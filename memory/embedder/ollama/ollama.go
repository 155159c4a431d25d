// Package ollama embeds text through a local Ollama instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultModel is nomic-embed-text (768 dims); all-minilm (384 dims)
// is the lighter alternative.
const DefaultModel = "nomic-embed-text"

// Embedder calls Ollama's embeddings endpoint.
type Embedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// New creates an embedder against the given Ollama base URL
// (e.g. http://localhost:11434). An empty model selects DefaultModel.
func New(baseURL, model string) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	dims := 768
	if model == "all-minilm" {
		dims = 384
	}
	return &Embedder{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests an embedding for the text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build embed request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "ollama request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, goerr.New("ollama returned non-200",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(raw)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embed response")
	}
	if len(out.Embedding) == 0 {
		return nil, goerr.New("ollama returned empty embedding", goerr.V("model", e.model))
	}
	return out.Embedding, nil
}

// Dimensions returns the embedding size for the configured model.
func (e *Embedder) Dimensions() int {
	return e.dims
}
