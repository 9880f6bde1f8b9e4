package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// mockProvider implements ai.Embedder for testing
type mockProvider struct {
	embedErr   error       // error to return
	dimensions []int       // per-input vector dimension, defaults to 4
	short      bool        // return fewer embeddings than inputs
	calls      int         // number of Embed calls
	lastInputs []string    // texts from the last request
}

func (m *mockProvider) Name() string { return "mock-provider" }

func (m *mockProvider) Register(_ api.Registry) {}

func (m *mockProvider) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.calls++
	m.lastInputs = m.lastInputs[:0]
	for _, doc := range req.Input {
		if len(doc.Content) > 0 {
			m.lastInputs = append(m.lastInputs, doc.Content[0].Text)
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	n := len(req.Input)
	if m.short && n > 0 {
		n--
	}

	resp := &ai.EmbedResponse{}
	for i := 0; i < n; i++ {
		dim := 4
		if i < len(m.dimensions) {
			dim = m.dimensions[i]
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(i) + 0.1
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	mock := &mockProvider{}
	e := NewGenkit(mock, 4)

	texts := []string{"first", "second", "third"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if len(vec) != 4 {
			t.Errorf("vector %d has dimension %d, want 4", i, len(vec))
		}
		if vec[0] != float32(i)+0.1 {
			t.Errorf("vector %d out of order: first component %v", i, vec[0])
		}
	}
	if mock.calls != 1 {
		t.Errorf("expected a single provider call, got %d", mock.calls)
	}
	if len(mock.lastInputs) != 3 || mock.lastInputs[0] != "first" {
		t.Errorf("unexpected provider inputs: %v", mock.lastInputs)
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	e := NewGenkit(&mockProvider{}, 4)
	if _, err := e.EmbedBatch(context.Background(), nil); !errors.Is(err, ErrEmbedding) {
		t.Errorf("expected ErrEmbedding for empty input, got %v", err)
	}
}

func TestEmbedBatch_ProviderError(t *testing.T) {
	cause := errors.New("quota exceeded")
	e := NewGenkit(&mockProvider{embedErr: cause}, 4)

	_, err := e.EmbedBatch(context.Background(), []string{"text"})
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	e := NewGenkit(&mockProvider{short: true}, 4)

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("expected ErrEmbedding on count mismatch, got %v", err)
	}
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	e := NewGenkit(&mockProvider{dimensions: []int{4, 3}}, 4)

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("expected ErrEmbedding on dimension mismatch, got %v", err)
	}
}

func TestEmbed_Single(t *testing.T) {
	e := NewGenkit(&mockProvider{}, 4)

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("got dimension %d, want 4", len(vec))
	}
}

func TestDimension(t *testing.T) {
	e := NewGenkit(&mockProvider{}, 1024)
	if got := e.Dimension(); got != 1024 {
		t.Errorf("Dimension() = %d, want 1024", got)
	}
}
