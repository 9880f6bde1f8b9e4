package registry

import "errors"

// Sentinel errors for registry operations. Callers match with errors.Is;
// the HTTP layer maps them to status codes.
var (
	// ErrTenantNotFound indicates the referenced tenant does not exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantExists indicates the external identity is already registered.
	ErrTenantExists = errors.New("tenant already registered")

	// ErrCollectionNotFound indicates the referenced collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists indicates the tenant already has a collection with
	// that name.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrNotOwner indicates a cross-tenant access attempt: the collection
	// exists but belongs to a different tenant.
	ErrNotOwner = errors.New("collection not owned by tenant")
)
