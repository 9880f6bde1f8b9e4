package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/log"
)

// MaxExternalIDLength bounds the tenant external identity.
const MaxExternalIDLength = 255

// TenantHandler handles tenant registration and lookup.
type TenantHandler struct {
	registry RegistryService
	logger   log.Logger
}

// NewTenantHandler creates a tenant handler.
func NewTenantHandler(registry RegistryService, logger log.Logger) *TenantHandler {
	return &TenantHandler{registry: registry, logger: logger}
}

// RegisterRoutes registers tenant routes on the given mux.
func (h *TenantHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tenants", h.register)
	mux.HandleFunc("GET /api/tenants/{tenantID}", h.get)
}

// RegisterTenantRequest is the request body for registering a tenant.
type RegisterTenantRequest struct {
	ExternalID string `json:"external_id"`
}

// register registers a tenant for an external identity.
func (h *TenantHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "external_id is required")
		return
	}
	if len(req.ExternalID) > MaxExternalIDLength {
		writeError(w, http.StatusBadRequest, "bad_request", "external_id too long")
		return
	}

	tenant, err := h.registry.RegisterTenant(r.Context(), req.ExternalID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// get fetches a tenant by ID.
func (h *TenantHandler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid tenant id")
		return
	}

	tenant, err := h.registry.GetTenant(r.Context(), tenantID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
