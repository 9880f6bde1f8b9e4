package registry

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a principal that owns collections. ExternalID is the opaque
// account identifier supplied at registration and is unique across tenants.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Collection is a named container of documents owned by exactly one tenant.
// (TenantID, Name) is unique: a tenant cannot have two collections with the
// same name, but the same name may exist under different tenants.
type Collection struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	DocumentCount int64     `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}
