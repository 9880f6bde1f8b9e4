package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/log"
)

// Ingest and search validation constants.
const (
	MaxBatchSize      = 500
	MaxQueryLength    = 10000
	DefaultSearchTopK = 5
	MaxSearchTopK     = 100
)

// DocumentHandler handles ingest and similarity search endpoints.
// Every request names its tenant, and the collection must belong to that
// tenant before the engine is touched.
type DocumentHandler struct {
	registry RegistryService
	engine   SearchService
	logger   log.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(registry RegistryService, engine SearchService, logger log.Logger) *DocumentHandler {
	return &DocumentHandler{registry: registry, engine: engine, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/collections/{collectionID}/documents", h.ingest)
	mux.HandleFunc("POST /api/collections/{collectionID}/search", h.search)
}

// IngestRequest is the request body for adding documents.
// Metadatas must be absent or the same length as Texts.
type IngestRequest struct {
	TenantID  uuid.UUID        `json:"tenant_id"`
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas"`
}

// ingest embeds and stores a batch of texts in one atomic insert.
func (h *DocumentHandler) ingest(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(r.PathValue("collectionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid collection id")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.TenantID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "texts must not be empty")
		return
	}
	if len(req.Texts) > MaxBatchSize {
		writeError(w, http.StatusBadRequest, "bad_request", "too many texts in one batch")
		return
	}
	if req.Metadatas != nil && len(req.Metadatas) != len(req.Texts) {
		writeError(w, http.StatusBadRequest, "bad_request", "metadatas length must match texts")
		return
	}

	if err := h.registry.AssertOwnership(r.Context(), collectionID, req.TenantID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	ids, err := h.engine.AddDocuments(r.Context(), collectionID, req.Texts, req.Metadatas)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"document_ids": ids,
		"count":        len(ids),
	})
}

// SearchRequest is the request body for a similarity search.
type SearchRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Query    string    `json:"query"`
	K        int       `json:"k"`
}

// search returns the k nearest documents in descending similarity order.
func (h *DocumentHandler) search(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(r.PathValue("collectionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid collection id")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.TenantID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "tenant_id is required")
		return
	}
	if req.Query == "" || len(req.Query) > MaxQueryLength {
		writeError(w, http.StatusBadRequest, "bad_request", "query must be 1 to 10000 characters")
		return
	}
	if req.K == 0 {
		req.K = DefaultSearchTopK
	}
	if req.K < 1 || req.K > MaxSearchTopK {
		writeError(w, http.StatusBadRequest, "bad_request", "k out of range")
		return
	}

	if err := h.registry.AssertOwnership(r.Context(), collectionID, req.TenantID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	results, err := h.engine.Search(r.Context(), collectionID, req.Query, req.K)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}
