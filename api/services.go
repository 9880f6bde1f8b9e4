package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/rag"
	"github.com/corpusd/corpusd/internal/registry"
	"github.com/corpusd/corpusd/internal/search"
)

// RegistryService is the slice of the registry the handlers need.
// *registry.Registry satisfies this.
type RegistryService interface {
	RegisterTenant(ctx context.Context, externalID string) (*registry.Tenant, error)
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*registry.Tenant, error)
	CreateCollection(ctx context.Context, tenantID uuid.UUID, name, description string) (*registry.Collection, error)
	GetCollection(ctx context.Context, collectionID uuid.UUID) (*registry.Collection, error)
	ListCollections(ctx context.Context, tenantID uuid.UUID) ([]*registry.Collection, error)
	AssertOwnership(ctx context.Context, collectionID, tenantID uuid.UUID) error
}

// SearchService is the slice of the search engine the handlers need.
// *search.Engine satisfies this.
type SearchService interface {
	AddDocuments(ctx context.Context, collectionID uuid.UUID, texts []string, metadatas []map[string]any) ([]int64, error)
	Search(ctx context.Context, collectionID uuid.UUID, queryText string, k int) ([]search.Result, error)
}

// QueryService accepts RAG queries.
// *rag.Orchestrator satisfies this.
type QueryService interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.Ack, error)
}

// Pinger reports storage reachability for the readiness probe.
// *pgxpool.Pool satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}
