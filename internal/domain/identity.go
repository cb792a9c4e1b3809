// Package domain defines the identity-resolution data model shared by the
// pipeline modules. Records here are normalized snapshots; raw caller input
// lives in RawRecord and only crosses into IdentityRecord through the
// normalize package.
package domain

import (
	"time"

	id "unify/pkg/domain"
)

// VectorDim is the fixed dimensionality of identity embeddings. It must match
// the embedding model and the vector column in storage.
const VectorDim = 512

// RawRecord is caller-supplied identity input before normalization. Empty
// strings mean "not provided".
type RawRecord struct {
	FullName   string `json:"full_name"`
	DOB        string `json:"dob"` // ISO yyyy-mm-dd
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	GovID      string `json:"gov_id"`
	AddrLine   string `json:"addr_line"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IdentityRecord is an immutable normalized snapshot of a person's fields.
// Every present field has passed its normalizer; absent fields are nil, never
// empty strings.
type IdentityRecord struct {
	FullName   *string
	DOB        *time.Time
	PhoneE164  *string
	Email      *string
	GovID      *string
	AddrLine   *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
}

// StoredEntity is a persisted identity: normalized record, its embedding, and
// an opaque identifier. Entities are append-only; a correction is a new
// entity, not a mutation.
type StoredEntity struct {
	ID         id.EntityID
	Record     IdentityRecord
	Vector     []float32
	IngestedAt time.Time
}

// Candidate is one stored entity considered as a possible duplicate during a
// single check, with its vector distance to the query and, once scored, its
// duplicate probability.
type Candidate struct {
	Entity   StoredEntity
	Distance float64
	Score    float64
}

// DuplicateCheckResult is the outcome of one duplicate check. An empty
// candidate list with IsDuplicate=false is a valid non-error outcome.
type DuplicateCheckResult struct {
	IsDuplicate bool
	Score       float64
	BestMatch   *Candidate
	Candidates  []Candidate
	ModelID     id.ModelID
}

// LabeledPair is a training example: two raw records plus whether they refer
// to the same person.
type LabeledPair struct {
	Left  RawRecord `json:"left"`
	Right RawRecord `json:"right"`
	Same  bool      `json:"same"`
}

// Str returns the value of an optional field and whether it is present.
func Str(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// StrPtr wraps a non-empty string as an optional field. Empty input returns
// nil so absent fields never become empty-string placeholders.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
