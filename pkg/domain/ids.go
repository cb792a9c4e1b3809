// Package domain holds identifier types shared across modules. IDs are typed
// wrappers over UUIDs so entity and model identifiers cannot be mixed up at
// compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "unify/pkg/domain-errors"
)

// EntityID identifies a stored identity entity.
// Invariant: must be a valid, non-nil UUID.
//
// Usage: construct via ParseEntityID at trust boundaries; NewEntityID for
// freshly ingested entities.
type EntityID uuid.UUID

// ModelID identifies a published scoring model artifact.
type ModelID uuid.UUID

// NewEntityID returns a fresh random EntityID.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

// NewModelID returns a fresh random ModelID.
func NewModelID() ModelID { return ModelID(uuid.New()) }

// ParseEntityID constructs an EntityID from external input.
//
// Errors: CodeBadRequest when the value is empty, malformed, or the nil UUID.
func ParseEntityID(s string) (EntityID, error) {
	id, err := parseUUID(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(id), nil
}

// ParseModelID constructs a ModelID from external input.
func ParseModelID(s string) (ModelID, error) {
	id, err := parseUUID(s)
	if err != nil {
		return ModelID{}, err
	}
	return ModelID(id), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must be a valid UUID")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id cannot be the nil UUID")
	}
	return id, nil
}

func (id EntityID) String() string { return uuid.UUID(id).String() }
func (id ModelID) String() string  { return uuid.UUID(id).String() }

// IsZero reports whether the ID is unset.
func (id EntityID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id ModelID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
