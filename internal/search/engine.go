// Package search implements ingest and nearest-neighbor retrieval over
// pgvector-backed collections.
//
// Ingest batches all texts into a single embedding call and a single atomic
// multi-row insert; retrieval embeds the query once and delegates the ordered
// scan to the storage backend. Ownership checks happen upstream in the
// registry: by the time a collection ID reaches this package it has been
// authorized.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/embedding"
)

// Engine converts text to vectors and moves them in and out of storage.
//
// Engine is stateless per call and safe for concurrent use.
type Engine struct {
	storage  Storage
	embedder embedding.Embedder
	logger   *slog.Logger
}

// NewEngine creates an Engine. logger may be nil (defaults to slog.Default).
func NewEngine(storage Storage, embedder embedding.Embedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{storage: storage, embedder: embedder, logger: logger}
}

// AddDocuments ingests texts into a collection and returns the generated
// document IDs in input order.
//
// All texts are embedded in one provider call, then inserted in one atomic
// batch: an embedding failure aborts before any row is written, and a storage
// failure commits nothing. metadatas must be nil (every document gets an
// empty map) or the same length as texts.
func (e *Engine) AddDocuments(ctx context.Context, collectionID uuid.UUID, texts []string, metadatas []map[string]any) ([]int64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to ingest")
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("got %d metadata entries for %d texts", len(metadatas), len(texts))
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d texts: %w", len(texts), err)
	}

	docs := make([]DocumentInput, len(texts))
	for i, text := range texts {
		var metadata map[string]any
		if metadatas != nil {
			metadata = metadatas[i]
		}
		docs[i] = DocumentInput{
			Content:   text,
			Metadata:  metadata,
			Embedding: vectors[i],
		}
	}

	ids, err := e.storage.InsertDocuments(ctx, collectionID, docs)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("ingested documents", "collection_id", collectionID, "count", len(ids))
	return ids, nil
}

// Search embeds queryText once and returns the k nearest documents in the
// collection, ordered by descending similarity (ascending document ID on
// ties). Returns fewer than k results if the collection holds fewer
// documents, and an empty slice for an empty collection.
func (e *Engine) Search(ctx context.Context, collectionID uuid.UUID, queryText string, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}
	if queryText == "" {
		return nil, fmt.Errorf("query text must not be empty")
	}

	vector, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.storage.NearestNeighbors(ctx, collectionID, vector, k)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search completed",
		"collection_id", collectionID, "k", k, "results", len(results))
	return results, nil
}
