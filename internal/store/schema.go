package store

import _ "embed"

// Schema is the DDL for the postgres-backed stores, applied by deploy tooling
// and integration tests.
//
//go:embed schema.sql
var Schema string
