// Package embedding exposes the text embedding capability consumed by the
// search engine.
//
// The provider is opaque to the rest of the system: callers see only
// Embed/EmbedBatch returning fixed-dimension vectors. Provider failures are
// reported as ErrEmbedding so ingest can abort a whole batch before any row
// is written.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// ErrEmbedding indicates the embedding provider failed to produce vectors.
// Checked with errors.Is by the search engine and the HTTP layer.
var ErrEmbedding = errors.New("embedding provider failure")

// Embedder converts text into fixed-dimension float vectors.
//
// Implementations must be safe for concurrent use and must honor context
// cancellation: a caller disconnect propagates into the provider call.
type Embedder interface {
	// Embed computes the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for all texts in one provider call,
	// returning them in input order. Either every text gets a vector or the
	// call fails as a whole.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the fixed vector dimension of this deployment.
	Dimension() int
}

// genkitEmbedder adapts a Genkit ai.Embedder to the Embedder interface,
// enforcing the configured dimension on every response.
type genkitEmbedder struct {
	embedder  ai.Embedder
	dimension int
}

// NewGenkit wraps a Genkit ai.Embedder.
// dimension is the deployment's fixed vector dimension; responses of any
// other dimension are rejected as ErrEmbedding.
func NewGenkit(embedder ai.Embedder, dimension int) Embedder {
	return &genkitEmbedder{embedder: embedder, dimension: dimension}
}

func (e *genkitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *genkitEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts to embed", ErrEmbedding)
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrEmbedding, i)
		}
		if len(emb.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: dimension %d at index %d, deployment expects %d",
				ErrEmbedding, len(emb.Embedding), i, e.dimension)
		}
		vectors[i] = emb.Embedding
	}

	return vectors, nil
}

func (e *genkitEmbedder) Dimension() int {
	return e.dimension
}
