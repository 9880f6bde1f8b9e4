// Package registry owns tenant and collection lifecycle and enforces the
// ownership model: a tenant exclusively owns its collections, and every
// tenant-scoped request must pass an ownership check here before it reaches
// the search engine.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/corpusd/corpusd/internal/database"
)

// DB defines the database operations the registry needs.
// Interfaces are defined by the consumer, not the provider: *pgxpool.Pool
// satisfies this, and tests substitute a mock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Registry manages tenants and collections backed by PostgreSQL.
//
// Registry is stateless per call and safe for concurrent use.
type Registry struct {
	db     DB
	logger *slog.Logger
}

// New creates a Registry. logger may be nil (defaults to slog.Default).
func New(db DB, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{db: db, logger: logger}
}

// RegisterTenant inserts a tenant for the given external identity.
// Returns ErrTenantExists if the identity is already registered. The insert
// is a single statement, so concurrent registrations of the same identity
// leave exactly one row.
func (r *Registry) RegisterTenant(ctx context.Context, externalID string) (*Tenant, error) {
	if externalID == "" {
		return nil, fmt.Errorf("external id must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var t Tenant
	err := r.db.QueryRow(ctx,
		`INSERT INTO tenants (external_id) VALUES ($1)
		 RETURNING id, external_id, created_at`,
		externalID,
	).Scan(&t.ID, &t.ExternalID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("register tenant %q: %w", externalID, ErrTenantExists)
		}
		return nil, fmt.Errorf("register tenant: %w", database.Classify(err))
	}

	r.logger.Debug("registered tenant", "id", t.ID, "external_id", t.ExternalID)
	return &t, nil
}

// GetTenant retrieves a tenant by ID.
// Returns ErrTenantNotFound if absent.
func (r *Registry) GetTenant(ctx context.Context, tenantID uuid.UUID) (*Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var t Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, external_id, created_at FROM tenants WHERE id = $1`,
		tenantID,
	).Scan(&t.ID, &t.ExternalID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant %s: %w", tenantID, ErrTenantNotFound)
		}
		return nil, fmt.Errorf("get tenant: %w", database.Classify(err))
	}

	return &t, nil
}

// CreateCollection creates a named collection under a tenant.
// An empty description defaults to "Vectorstore for <name>".
// Returns ErrTenantNotFound if the tenant does not exist and
// ErrCollectionExists if the tenant already has a collection with that name.
func (r *Registry) CreateCollection(ctx context.Context, tenantID uuid.UUID, name, description string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name must not be empty")
	}
	if description == "" {
		description = "Vectorstore for " + name
	}

	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var c Collection
	err := r.db.QueryRow(ctx,
		`INSERT INTO collections (tenant_id, name, description) VALUES ($1, $2, $3)
		 RETURNING id, tenant_id, name, description, created_at`,
		tenantID, name, description,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("create collection %q: %w", name, ErrCollectionExists)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("create collection %q: %w", name, ErrTenantNotFound)
		}
		return nil, fmt.Errorf("create collection: %w", database.Classify(err))
	}

	r.logger.Debug("created collection", "id", c.ID, "tenant_id", tenantID, "name", name)
	return &c, nil
}

// GetCollection retrieves a collection by ID, including its document count.
// Returns ErrCollectionNotFound if absent.
func (r *Registry) GetCollection(ctx context.Context, collectionID uuid.UUID) (*Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var c Collection
	err := r.db.QueryRow(ctx,
		`SELECT c.id, c.tenant_id, c.name, c.description, c.created_at,
		        (SELECT count(*) FROM documents d WHERE d.collection_id = c.id)
		 FROM collections c WHERE c.id = $1`,
		collectionID,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt, &c.DocumentCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get collection %s: %w", collectionID, ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("get collection: %w", database.Classify(err))
	}

	return &c, nil
}

// ListCollections returns all collections owned by a tenant, ordered by
// creation time (id breaks ties for determinism).
// Returns ErrTenantNotFound if the tenant does not exist; an existing tenant
// with no collections yields an empty slice.
func (r *Registry) ListCollections(ctx context.Context, tenantID uuid.UUID) ([]*Collection, error) {
	if _, err := r.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.tenant_id, c.name, c.description, c.created_at,
		        (SELECT count(*) FROM documents d WHERE d.collection_id = c.id)
		 FROM collections c WHERE c.tenant_id = $1
		 ORDER BY c.created_at, c.id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", database.Classify(err))
	}
	defer rows.Close()

	collections := make([]*Collection, 0)
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt, &c.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collections = append(collections, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", database.Classify(err))
	}

	r.logger.Debug("listed collections", "tenant_id", tenantID, "count", len(collections))
	return collections, nil
}

// ResolveCollection looks up a collection by logical name within a tenant.
// This is the only resolution path the orchestrator uses for untrusted
// callers: a raw collection ID supplied by one tenant can never reach
// another tenant's data through it.
// Returns ErrCollectionNotFound if no such name exists under the tenant.
func (r *Registry) ResolveCollection(ctx context.Context, tenantID uuid.UUID, name string) (*Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var c Collection
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, name, description, created_at
		 FROM collections WHERE tenant_id = $1 AND name = $2`,
		tenantID, name,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("resolve collection %q: %w", name, ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("resolve collection: %w", database.Classify(err))
	}

	return &c, nil
}

// AssertOwnership verifies that a collection belongs to a tenant.
// Returns ErrCollectionNotFound if the collection does not exist and
// ErrNotOwner if it belongs to a different tenant. Used as a guard before
// any ingest or query that names a collection directly.
func (r *Registry) AssertOwnership(ctx context.Context, collectionID, tenantID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, database.DefaultQueryTimeout)
	defer cancel()

	var owner uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT tenant_id FROM collections WHERE id = $1`,
		collectionID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("assert ownership %s: %w", collectionID, ErrCollectionNotFound)
		}
		return fmt.Errorf("assert ownership: %w", database.Classify(err))
	}

	if owner != tenantID {
		r.logger.Warn("cross-tenant access rejected",
			"collection_id", collectionID, "owner", owner, "caller", tenantID)
		return fmt.Errorf("collection %s: %w", collectionID, ErrNotOwner)
	}

	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (duplicate tenant identity or collection name).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation (referenced tenant or collection row absent).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
