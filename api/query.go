package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/log"
	"github.com/corpusd/corpusd/internal/rag"
)

// QueryHandler handles RAG queries. The response is an acknowledgement:
// retrieval and filtering happen synchronously, delivery to the generation
// sink does not.
type QueryHandler struct {
	orchestrator QueryService
	logger       log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(orchestrator QueryService, logger log.Logger) *QueryHandler {
	return &QueryHandler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers the RAG query route on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rag/query", h.query)
}

// RagQueryRequest is the request body for a RAG query. The collection is
// addressed by name within the tenant; collection_id is an optional
// ownership-checked fast path.
type RagQueryRequest struct {
	TenantID       uuid.UUID  `json:"tenant_id"`
	CollectionName string     `json:"collection_name"`
	CollectionID   *uuid.UUID `json:"collection_id"`
	Query          string     `json:"query"`
	K              int        `json:"k"`
}

// query accepts a RAG query and returns 202 once the payload is queued for
// background dispatch.
func (h *QueryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req RagQueryRequest
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
	if req.CollectionName == "" && req.CollectionID == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "collection_name or collection_id is required")
		return
	}
	if req.K < 0 || req.K > MaxSearchTopK {
		writeError(w, http.StatusBadRequest, "bad_request", "k out of range")
		return
	}

	ack, err := h.orchestrator.Query(r.Context(), rag.QueryRequest{
		TenantID:       req.TenantID,
		CollectionName: req.CollectionName,
		CollectionID:   req.CollectionID,
		Query:          req.Query,
		K:              req.K,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
