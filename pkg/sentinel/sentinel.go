package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and upstream adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity or model does not exist in the store
// - ErrTimeout: an upstream call exceeded its deadline
// - ErrUnavailable: embedding provider or store temporarily unreachable
//
// For validation errors (bad input, schema mismatch), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrTimeout     = errors.New("timeout")
	ErrUnavailable = errors.New("unavailable")
)
