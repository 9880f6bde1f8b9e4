package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corpusd/corpusd/internal/database"
	"github.com/corpusd/corpusd/internal/embedding"
	"github.com/corpusd/corpusd/internal/log"
	"github.com/corpusd/corpusd/internal/rag"
	"github.com/corpusd/corpusd/internal/registry"
	"github.com/corpusd/corpusd/internal/search"
)

// writeJSON writes a JSON response with the given status code.
// Note: if encoding fails after WriteHeader is called there is no way to
// notify the client, so the error is only logged by the caller's middleware.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// respondError maps a domain error to an HTTP status and writes it.
// 5xx causes are logged; 4xx are the caller's fault and only surfaced.
func respondError(w http.ResponseWriter, logger log.Logger, err error) {
	status, label := statusFromErr(err)
	if status >= 500 {
		logger.Error("request failed", "status", status, "error", err)
		// do not leak internals to the client
		writeError(w, status, label, "")
		return
	}
	writeError(w, status, label, err.Error())
}

// statusFromErr maps the domain error taxonomy to HTTP status codes.
func statusFromErr(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrTenantNotFound),
		errors.Is(err, registry.ErrCollectionNotFound),
		errors.Is(err, search.ErrDocumentNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, registry.ErrTenantExists),
		errors.Is(err, registry.ErrCollectionExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, registry.ErrNotOwner):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, rag.ErrInvalidRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, embedding.ErrEmbedding):
		return http.StatusBadGateway, "embedding_failed"
	case errors.Is(err, database.ErrUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
