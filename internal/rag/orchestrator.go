// Package rag turns a tenant's query into a filtered retrieval payload and
// hands it to the delivery sink without blocking the caller.
//
// A request moves through authorize, retrieve, filter, dispatch. The caller
// gets an Ack as soon as the payload is queued; delivery runs in the
// background with bounded retries and its failures are logged, never
// surfaced.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corpusd/corpusd/internal/registry"
	"github.com/corpusd/corpusd/internal/search"
)

// ErrInvalidRequest indicates a malformed query request (empty query,
// missing collection, out-of-range k). Callers map it to a client error.
var ErrInvalidRequest = errors.New("invalid query request")

// Resolver authorizes and resolves collection access for a tenant.
// *registry.Registry satisfies this.
type Resolver interface {
	ResolveCollection(ctx context.Context, tenantID uuid.UUID, name string) (*registry.Collection, error)
	AssertOwnership(ctx context.Context, collectionID, tenantID uuid.UUID) error
}

// Searcher answers nearest-neighbor queries.
// *search.Engine satisfies this.
type Searcher interface {
	Search(ctx context.Context, collectionID uuid.UUID, queryText string, k int) ([]search.Result, error)
}

// Options tunes retrieval defaults for the orchestrator.
type Options struct {
	// DefaultTopK is the k used when a request does not override it.
	DefaultTopK int
	// ConfidenceThreshold is the minimum similarity a result needs to become
	// a candidate. Results below it are dropped before dispatch.
	ConfidenceThreshold float64
	// MaxTopK caps per-request k overrides.
	MaxTopK int
}

// Orchestrator coordinates authorization, retrieval, filtering and dispatch
// for RAG queries.
//
// Orchestrator is stateless per request and safe for concurrent use.
type Orchestrator struct {
	resolver   Resolver
	searcher   Searcher
	dispatcher *Dispatcher
	opts       Options
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator. logger may be nil.
func NewOrchestrator(resolver Resolver, searcher Searcher, dispatcher *Dispatcher, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultTopK < 1 {
		opts.DefaultTopK = 5
	}
	if opts.MaxTopK < 1 {
		opts.MaxTopK = 100
	}
	return &Orchestrator{
		resolver:   resolver,
		searcher:   searcher,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
	}
}

// Query authorizes the request, retrieves the top-k nearest documents,
// filters them by the confidence threshold, and queues the resulting payload
// for background delivery.
//
// The returned Ack means "accepted for dispatch", not "delivered": the sink
// outcome is logged only. Authorization or retrieval failures are returned
// synchronously and nothing is dispatched.
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest) (*Ack, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}

	k := req.K
	switch {
	case k == 0:
		k = o.opts.DefaultTopK
	case k < 0:
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidRequest, k)
	case k > o.opts.MaxTopK:
		return nil, fmt.Errorf("%w: k %d exceeds maximum %d", ErrInvalidRequest, k, o.opts.MaxTopK)
	}

	collectionID, err := o.authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	results, err := o.searcher.Search(ctx, collectionID, req.Query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}

	candidates := filterByConfidence(results, o.opts.ConfidenceThreshold)

	payload := &Payload{
		RequestID:         uuid.New(),
		Query:             req.Query,
		TenantID:          req.TenantID,
		CollectionID:      collectionID,
		Candidates:        candidates,
		NoRelevantResults: len(candidates) == 0,
	}

	o.dispatcher.Dispatch(payload)

	o.logger.Info("rag query accepted",
		"request_id", payload.RequestID,
		"tenant_id", req.TenantID,
		"collection_id", collectionID,
		"retrieved", len(results),
		"candidates", len(candidates),
		"no_relevant_results", payload.NoRelevantResults)

	return &Ack{
		RequestID:         payload.RequestID,
		CollectionID:      collectionID,
		CandidateCount:    len(candidates),
		NoRelevantResults: payload.NoRelevantResults,
	}, nil
}

// authorize resolves the target collection within the calling tenant. When a
// raw collection ID is supplied it must pass an ownership check; by default
// the collection is looked up by name scoped to the tenant, which cannot
// cross tenant boundaries.
func (o *Orchestrator) authorize(ctx context.Context, req QueryRequest) (uuid.UUID, error) {
	if req.CollectionID != nil {
		if err := o.resolver.AssertOwnership(ctx, *req.CollectionID, req.TenantID); err != nil {
			return uuid.Nil, err
		}
		return *req.CollectionID, nil
	}

	if req.CollectionName == "" {
		return uuid.Nil, fmt.Errorf("%w: collection name must not be empty", ErrInvalidRequest)
	}
	collection, err := o.resolver.ResolveCollection(ctx, req.TenantID, req.CollectionName)
	if err != nil {
		return uuid.Nil, err
	}
	return collection.ID, nil
}

// filterByConfidence keeps results whose similarity meets the threshold,
// preserving the descending-similarity order of the input.
func filterByConfidence(results []search.Result, threshold float64) []Candidate {
	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Content:         r.Content,
			Metadata:        r.Metadata,
			SimilarityScore: r.Similarity,
		})
	}
	return candidates
}
