package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/corpusd/corpusd/internal/database"
	"github.com/corpusd/corpusd/internal/registry"
)

// Storage defines the persistence operations the engine needs.
// Defined by the consumer so tests can substitute a mock.
type Storage interface {
	// InsertDocuments atomically inserts all rows into the collection and
	// returns the generated document IDs in input order. Either every row
	// commits or none do.
	InsertDocuments(ctx context.Context, collectionID uuid.UUID, docs []DocumentInput) ([]int64, error)

	// NearestNeighbors returns up to k documents in the collection ordered by
	// ascending cosine distance to the query embedding, ID ascending on ties.
	// An empty or unknown collection yields an empty slice, not an error.
	NearestNeighbors(ctx context.Context, collectionID uuid.UUID, embedding []float32, k int) ([]Result, error)

	// GetDocument retrieves a single document by ID.
	GetDocument(ctx context.Context, documentID int64) (*Document, error)
}

// ErrDocumentNotFound indicates the referenced document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// PostgresStorage implements Storage on a pgvector-enabled PostgreSQL pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a PostgresStorage backed by pool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

// InsertDocuments queues one INSERT per row in a pgx batch inside a single
// transaction. Generated BIGSERIAL IDs are scanned per queued statement, so
// the returned slice preserves input order.
func (s *PostgresStorage) InsertDocuments(ctx context.Context, collectionID uuid.UUID, docs []DocumentInput) ([]int64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert transaction: %w", database.Classify(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	batch := &pgx.Batch{}
	for i, doc := range docs {
		metadata := doc.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata for document %d: %w", i, err)
		}
		batch.Queue(
			`INSERT INTO documents (collection_id, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			collectionID, doc.Content, metadataJSON, pgvector.NewVector(doc.Embedding),
		)
	}

	results := tx.SendBatch(ctx, batch)
	ids := make([]int64, len(docs))
	for i := range docs {
		if err := results.QueryRow().Scan(&ids[i]); err != nil {
			results.Close()
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("insert documents: %w", registry.ErrCollectionNotFound)
			}
			return nil, fmt.Errorf("insert document %d: %w", i, database.Classify(err))
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("close insert batch: %w", database.Classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert transaction: %w", database.Classify(err))
	}

	return ids, nil
}

// NearestNeighbors runs the cosine nearest-neighbor scan. The <=> operator is
// cosine distance; similarity is computed as 1 - distance in the same query
// so the ORDER BY and the reported score cannot drift apart.
func (s *PostgresStorage) NearestNeighbors(ctx context.Context, collectionID uuid.UUID, embedding []float32, k int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, 1 - (embedding <=> $2) AS similarity
		 FROM documents
		 WHERE collection_id = $1
		 ORDER BY embedding <=> $2 ASC, id ASC
		 LIMIT $3`,
		collectionID, vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", database.Classify(err))
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var (
			r            Result
			metadataJSON []byte
		)
		if err := rows.Scan(&r.DocumentID, &r.Content, &metadataJSON, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for document %d: %w", r.DocumentID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", database.Classify(err))
	}

	return results, nil
}

// GetDocument retrieves a document by ID.
// Returns ErrDocumentNotFound if absent.
func (s *PostgresStorage) GetDocument(ctx context.Context, documentID int64) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var (
		doc          Document
		metadataJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, collection_id, content, metadata, created_at
		 FROM documents WHERE id = $1`,
		documentID,
	).Scan(&doc.ID, &doc.CollectionID, &doc.Content, &metadataJSON, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get document %d: %w", documentID, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("get document: %w", database.Classify(err))
	}

	if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata for document %d: %w", documentID, err)
	}

	return &doc, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
