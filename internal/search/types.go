package search

import (
	"time"

	"github.com/google/uuid"
)

// Document is a stored unit of ingested text. Documents are immutable after
// creation and removed only when their collection is deleted.
type Document struct {
	ID           int64          `json:"id"`
	CollectionID uuid.UUID      `json:"collection_id"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DocumentInput is one row of a batch insert: text, opaque metadata, and the
// embedding computed for the text.
type DocumentInput struct {
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// Result is one nearest-neighbor hit. Similarity is 1 - cosine distance:
// 1.0 means identical direction, 0.0 orthogonal, negative values dissimilar.
type Result struct {
	DocumentID int64          `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity_score"`
}
