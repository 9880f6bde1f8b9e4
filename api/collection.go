package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/log"
)

// Collection validation constants.
const (
	MaxCollectionNameLength = 100
	MaxDescriptionLength    = 1000
)

// CollectionHandler handles collection lifecycle endpoints.
type CollectionHandler struct {
	registry RegistryService
	logger   log.Logger
}

// NewCollectionHandler creates a collection handler.
func NewCollectionHandler(registry RegistryService, logger log.Logger) *CollectionHandler {
	return &CollectionHandler{registry: registry, logger: logger}
}

// RegisterRoutes registers collection routes on the given mux.
func (h *CollectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tenants/{tenantID}/collections", h.create)
	mux.HandleFunc("GET /api/tenants/{tenantID}/collections", h.list)
	mux.HandleFunc("GET /api/collections/{collectionID}", h.get)
}

// CreateCollectionRequest is the request body for creating a collection.
type CreateCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// create creates a collection under a tenant.
func (h *CollectionHandler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid tenant id")
		return
	}

	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}
	if len(req.Name) > MaxCollectionNameLength {
		writeError(w, http.StatusBadRequest, "bad_request", "name too long")
		return
	}
	if len(req.Description) > MaxDescriptionLength {
		writeError(w, http.StatusBadRequest, "bad_request", "description too long")
		return
	}

	collection, err := h.registry.CreateCollection(r.Context(), tenantID, req.Name, req.Description)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, collection)
}

// list returns all collections owned by a tenant.
func (h *CollectionHandler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid tenant id")
		return
	}

	collections, err := h.registry.ListCollections(r.Context(), tenantID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collections": collections,
		"total":       len(collections),
	})
}

// get fetches a collection by ID, including its document count. The
// caller names its tenant in the tenant_id query parameter and must own
// the collection, same as the document endpoints.
func (h *CollectionHandler) get(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(r.PathValue("collectionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid collection id")
		return
	}

	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id query parameter is required")
		return
	}

	if err := h.registry.AssertOwnership(r.Context(), collectionID, tenantID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	collection, err := h.registry.GetCollection(r.Context(), collectionID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}
