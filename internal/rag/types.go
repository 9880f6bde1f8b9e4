package rag

import (
	"github.com/google/uuid"
)

// QueryRequest is one retrieval-augmented query from a tenant.
//
// The collection is addressed by logical name within the calling tenant, so
// an untrusted caller can never reach another tenant's data by guessing an
// identifier. CollectionID is an optional fast path for trusted internal
// callers that already hold an ID; it is always ownership-checked.
type QueryRequest struct {
	TenantID       uuid.UUID
	CollectionName string
	CollectionID   *uuid.UUID
	Query          string
	K              int // 0 means the configured default
}

// Candidate is one retrieved document that passed the confidence filter.
type Candidate struct {
	Content         string         `json:"content"`
	Metadata        map[string]any `json:"metadata"`
	SimilarityScore float64        `json:"similarity_score"`
}

// Payload is the unit handed to the delivery sink. Candidates keep the
// descending-similarity order produced by retrieval.
type Payload struct {
	RequestID         uuid.UUID   `json:"request_id"`
	Query             string      `json:"query"`
	TenantID          uuid.UUID   `json:"tenant_id"`
	CollectionID      uuid.UUID   `json:"collection_id"`
	Candidates        []Candidate `json:"candidates"`
	NoRelevantResults bool        `json:"no_relevant_results"`
}

// Ack is returned to the caller as soon as the payload is queued for
// dispatch. Delivery happens in the background; its outcome is never
// surfaced to the caller.
type Ack struct {
	RequestID         uuid.UUID `json:"request_id"`
	CollectionID      uuid.UUID `json:"collection_id"`
	CandidateCount    int       `json:"candidate_count"`
	NoRelevantResults bool      `json:"no_relevant_results"`
}
