package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/database"
	"github.com/corpusd/corpusd/internal/embedding"
	"github.com/corpusd/corpusd/internal/log"
	"github.com/corpusd/corpusd/internal/rag"
	"github.com/corpusd/corpusd/internal/registry"
	"github.com/corpusd/corpusd/internal/search"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockRegistry struct {
	tenant        *registry.Tenant
	tenantErr     error
	collection    *registry.Collection
	collectionErr error
	collections   []*registry.Collection
	listErr       error
	ownershipErr  error
}

func (m *mockRegistry) RegisterTenant(_ context.Context, externalID string) (*registry.Tenant, error) {
	if m.tenantErr != nil {
		return nil, m.tenantErr
	}
	return &registry.Tenant{ID: uuid.New(), ExternalID: externalID}, nil
}

func (m *mockRegistry) GetTenant(_ context.Context, _ uuid.UUID) (*registry.Tenant, error) {
	return m.tenant, m.tenantErr
}

func (m *mockRegistry) CreateCollection(_ context.Context, tenantID uuid.UUID, name, description string) (*registry.Collection, error) {
	if m.collectionErr != nil {
		return nil, m.collectionErr
	}
	return &registry.Collection{ID: uuid.New(), TenantID: tenantID, Name: name, Description: description}, nil
}

func (m *mockRegistry) GetCollection(_ context.Context, _ uuid.UUID) (*registry.Collection, error) {
	return m.collection, m.collectionErr
}

func (m *mockRegistry) ListCollections(_ context.Context, _ uuid.UUID) ([]*registry.Collection, error) {
	return m.collections, m.listErr
}

func (m *mockRegistry) AssertOwnership(_ context.Context, _, _ uuid.UUID) error {
	return m.ownershipErr
}

type mockEngine struct {
	ids       []int64
	addErr    error
	results   []search.Result
	searchErr error
	lastTexts []string
}

func (m *mockEngine) AddDocuments(_ context.Context, _ uuid.UUID, texts []string, _ []map[string]any) ([]int64, error) {
	m.lastTexts = texts
	return m.ids, m.addErr
}

func (m *mockEngine) Search(_ context.Context, _ uuid.UUID, _ string, _ int) ([]search.Result, error) {
	return m.results, m.searchErr
}

type mockOrchestrator struct {
	ack     *rag.Ack
	err     error
	lastReq rag.QueryRequest
}

func (m *mockOrchestrator) Query(_ context.Context, req rag.QueryRequest) (*rag.Ack, error) {
	m.lastReq = req
	return m.ack, m.err
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func newTestServer(reg RegistryService, engine SearchService, orch QueryService, pinger Pinger) http.Handler {
	if reg == nil {
		reg = &mockRegistry{}
	}
	if engine == nil {
		engine = &mockEngine{}
	}
	if orch == nil {
		orch = &mockOrchestrator{ack: &rag.Ack{RequestID: uuid.New()}}
	}
	if pinger == nil {
		pinger = &mockPinger{}
	}
	return NewServer(reg, engine, orch, pinger, log.NewNop()).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// Health Tests
// ============================================================================

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReady_StorageDown(t *testing.T) {
	handler := newTestServer(nil, nil, nil, &mockPinger{err: errors.New("unreachable")})
	rec := doJSON(t, handler, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// ============================================================================
// Tenant Tests
// ============================================================================

func TestRegisterTenant(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodPost, "/api/tenants",
		map[string]string{"external_id": "acct-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var tenant registry.Tenant
	if err := json.Unmarshal(rec.Body.Bytes(), &tenant); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if tenant.ExternalID != "acct-1" {
		t.Errorf("external_id = %q", tenant.ExternalID)
	}
}

func TestRegisterTenant_Duplicate(t *testing.T) {
	handler := newTestServer(&mockRegistry{tenantErr: registry.ErrTenantExists}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodPost, "/api/tenants", map[string]string{"external_id": "acct-1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRegisterTenant_MissingExternalID(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodPost, "/api/tenants", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetTenant_InvalidID(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodGet, "/api/tenants/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetTenant_NotFound(t *testing.T) {
	handler := newTestServer(&mockRegistry{tenantErr: registry.ErrTenantNotFound}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodGet, "/api/tenants/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// ============================================================================
// Collection Tests
// ============================================================================

func TestCreateCollection(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodPost,
		"/api/tenants/"+uuid.NewString()+"/collections",
		map[string]string{"name": "notes"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
}

func TestCreateCollection_DuplicateName(t *testing.T) {
	handler := newTestServer(&mockRegistry{collectionErr: registry.ErrCollectionExists}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodPost,
		"/api/tenants/"+uuid.NewString()+"/collections",
		map[string]string{"name": "notes"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateCollection_UnknownTenant(t *testing.T) {
	handler := newTestServer(&mockRegistry{collectionErr: registry.ErrTenantNotFound}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodPost,
		"/api/tenants/"+uuid.NewString()+"/collections",
		map[string]string{"name": "notes"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListCollections(t *testing.T) {
	handler := newTestServer(&mockRegistry{collections: []*registry.Collection{
		{ID: uuid.New(), Name: "a"},
		{ID: uuid.New(), Name: "b"},
	}}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodGet, "/api/tenants/"+uuid.NewString()+"/collections", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestGetCollection(t *testing.T) {
	tenantID := uuid.New()
	collection := &registry.Collection{ID: uuid.New(), TenantID: tenantID, Name: "notes", DocumentCount: 3}
	handler := newTestServer(&mockRegistry{collection: collection}, nil, nil, nil)

	rec := doJSON(t, handler, http.MethodGet,
		"/api/collections/"+collection.ID.String()+"?tenant_id="+tenantID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var got registry.Collection
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if got.Name != "notes" || got.DocumentCount != 3 {
		t.Errorf("unexpected collection: %+v", got)
	}
}

func TestGetCollection_CrossTenant(t *testing.T) {
	handler := newTestServer(&mockRegistry{ownershipErr: registry.ErrNotOwner}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodGet,
		"/api/collections/"+uuid.NewString()+"?tenant_id="+uuid.NewString(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestGetCollection_MissingTenant(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodGet,
		"/api/collections/"+uuid.NewString(), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ============================================================================
// Document Tests
// ============================================================================

func TestIngest(t *testing.T) {
	engine := &mockEngine{ids: []int64{1, 2}}
	handler := newTestServer(nil, engine, nil, nil)
	rec := doJSON(t, handler, http.MethodPost,
		"/api/collections/"+uuid.NewString()+"/documents",
		map[string]any{"tenant_id": uuid.New(), "texts": []string{"a", "b"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if len(engine.lastTexts) != 2 {
		t.Errorf("engine received %d texts, want 2", len(engine.lastTexts))
	}
}

func TestIngest_CrossTenant(t *testing.T) {
	handler := newTestServer(&mockRegistry{ownershipErr: registry.ErrNotOwner}, nil, nil, nil)
	rec := doJSON(t, handler, http.MethodPost,
		"/api/collections/"+uuid.NewString()+"/documents",
		map[string]any{"tenant_id": uuid.New(), "texts": []string{"a"}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestIngest_MetadataMismatch(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodPost,
		"/api/collections/"+uuid.NewString()+"/documents",
		map[string]any{
			"tenant_id": uuid.New(),
			"texts":     []string{"a", "b"},
			"metadatas": []map[string]any{{"k": "v"}},
		})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	handler := newTestServer(nil, &mockEngine{addErr: embedding.ErrEmbedding}, nil, nil)
	rec := doJSON(t, handler, http.MethodPost,
		"/api/collections/"+uuid.NewString()+"/documents",
		map[string]any{"tenant_id": uuid.New(), "texts": []string{"a"}})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	engine := &mockEngine{results: []search.Result{
		{DocumentID: 1, Content: "hit", Similarity: 0.9},
	}}
	handler := newTestServer(nil, engine, nil, nil)
	rec := doJSON(t, handler, http.MethodPost,
		"/api/collections/"+uuid.NewString()+"/search",
		map[string]any{"tenant_id": uuid.New(), "query": "q"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodPost,
		"/api/collections/"+uuid.NewString()+"/search",
		map[string]any{"tenant_id": uuid.New()})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ============================================================================
// RAG Query Tests
// ============================================================================

func TestRagQuery_Accepted(t *testing.T) {
	orch := &mockOrchestrator{ack: &rag.Ack{
		RequestID: uuid.New(), CandidateCount: 2,
	}}
	handler := newTestServer(nil, nil, orch, nil)
	rec := doJSON(t, handler, http.MethodPost, "/api/rag/query",
		map[string]any{"tenant_id": uuid.New(), "collection_name": "notes", "query": "q", "k": 7})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	if orch.lastReq.K != 7 || orch.lastReq.CollectionName != "notes" {
		t.Errorf("orchestrator received %+v", orch.lastReq)
	}

	var ack rag.Ack
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if ack.CandidateCount != 2 {
		t.Errorf("candidate_count = %d, want 2", ack.CandidateCount)
	}
}

func TestRagQuery_CrossTenant(t *testing.T) {
	handler := newTestServer(nil, nil, &mockOrchestrator{err: registry.ErrNotOwner}, nil)
	id := uuid.New()
	rec := doJSON(t, handler, http.MethodPost, "/api/rag/query",
		map[string]any{"tenant_id": uuid.New(), "collection_id": id, "query": "q"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRagQuery_MissingCollection(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil, nil), http.MethodPost, "/api/rag/query",
		map[string]any{"tenant_id": uuid.New(), "query": "q"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRagQuery_OrchestratorValidation(t *testing.T) {
	handler := newTestServer(nil, nil, &mockOrchestrator{
		err: fmt.Errorf("%w: k must be >= 1, got -1", rag.ErrInvalidRequest),
	}, nil)
	rec := doJSON(t, handler, http.MethodPost, "/api/rag/query",
		map[string]any{"tenant_id": uuid.New(), "collection_name": "notes", "query": "q"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRagQuery_StorageUnavailable(t *testing.T) {
	handler := newTestServer(nil, nil, &mockOrchestrator{
		err: fmt.Errorf("retrieving candidates: %w", database.ErrUnavailable),
	}, nil)
	rec := doJSON(t, handler, http.MethodPost, "/api/rag/query",
		map[string]any{"tenant_id": uuid.New(), "collection_name": "notes", "query": "q"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
