package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unify/internal/candidates"
	"unify/internal/domain"
	"unify/internal/scoring"
	id "unify/pkg/domain"
	"unify/pkg/sentinel"
)

// blockColumns whitelists the columns exact-match blocking may query.
var blockColumns = map[candidates.BlockField]string{
	candidates.BlockPhone: "phone_e164",
	candidates.BlockEmail: "email",
	candidates.BlockGovID: "gov_id",
}

// Postgres persists entities and model artifacts in PostgreSQL with pgvector
// for the k-NN query. Schema lives in schema.sql.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pgx pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Append inserts a new entity row. Entities are immutable; there is no update
// path by design.
func (p *Postgres) Append(ctx context.Context, entity domain.StoredEntity) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO identities
			(id, full_name, dob, phone_e164, email, gov_id, addr_line, city, state, postal_code, country, embedding, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector, $13)`,
		entity.ID.String(),
		entity.Record.FullName, entity.Record.DOB,
		entity.Record.PhoneE164, entity.Record.Email, entity.Record.GovID,
		entity.Record.AddrLine, entity.Record.City, entity.Record.State,
		entity.Record.PostalCode, entity.Record.Country,
		vectorLiteral(entity.Vector), entity.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	return nil
}

// Entity fetches one stored entity by identifier.
func (p *Postgres) Entity(ctx context.Context, entityID id.EntityID) (domain.StoredEntity, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, full_name, dob, phone_e164, email, gov_id, addr_line, city, state, postal_code, country, embedding::text, ingested_at
		FROM identities WHERE id = $1`, entityID.String())
	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredEntity{}, sentinel.ErrNotFound
		}
		return domain.StoredEntity{}, fmt.Errorf("fetch identity: %w", err)
	}
	return entity, nil
}

// LookupExact returns identifiers of entities matching a blocking field value.
func (p *Postgres) LookupExact(ctx context.Context, field candidates.BlockField, value string) ([]id.EntityID, error) {
	column, ok := blockColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported blocking field %q", field)
	}
	rows, err := p.pool.Query(ctx,
		fmt.Sprintf(`SELECT id FROM identities WHERE %s = $1`, column), value)
	if err != nil {
		return nil, fmt.Errorf("exact lookup on %s: %w", column, err)
	}
	defer rows.Close()

	var out []id.EntityID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan exact lookup row: %w", err)
		}
		entityID, err := id.ParseEntityID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q in store: %w", raw, err)
		}
		out = append(out, entityID)
	}
	return out, rows.Err()
}

// TopK runs the pgvector cosine-distance k-NN query.
func (p *Postgres) TopK(ctx context.Context, vec []float32, k int) ([]candidates.Neighbor, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, embedding <=> $1::vector AS dist
		FROM identities
		ORDER BY dist, id
		LIMIT $2`, vectorLiteral(vec), k)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	var out []candidates.Neighbor
	for rows.Next() {
		var raw string
		var dist float64
		if err := rows.Scan(&raw, &dist); err != nil {
			return nil, fmt.Errorf("scan knn row: %w", err)
		}
		entityID, err := id.ParseEntityID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q in store: %w", raw, err)
		}
		out = append(out, candidates.Neighbor{ID: entityID, Distance: dist})
	}
	return out, rows.Err()
}

// PostgresModels archives published scoring models as JSONB artifacts.
type PostgresModels struct {
	pool *pgxpool.Pool
}

// NewPostgresModels wraps an existing pgx pool.
func NewPostgresModels(pool *pgxpool.Pool) *PostgresModels {
	return &PostgresModels{pool: pool}
}

// Save archives a published model artifact.
func (p *PostgresModels) Save(ctx context.Context, model *scoring.Model) error {
	artifact, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO scoring_models (id, artifact, created_at) VALUES ($1, $2, $3)`,
		model.ID.String(), artifact, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Latest loads the most recently published model, or sentinel.ErrNotFound.
func (p *PostgresModels) Latest(ctx context.Context) (*scoring.Model, error) {
	var artifact []byte
	err := p.pool.QueryRow(ctx, `
		SELECT artifact FROM scoring_models ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&artifact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load latest model: %w", err)
	}
	var model scoring.Model
	if err := json.Unmarshal(artifact, &model); err != nil {
		return nil, fmt.Errorf("unmarshal model artifact: %w", err)
	}
	return &model, nil
}

// vectorLiteral renders a float32 slice as a pgvector text literal.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// parseVector parses a pgvector text literal back into floats.
func parseVector(raw string) ([]float32, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]float32, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func scanEntity(row pgx.Row) (domain.StoredEntity, error) {
	var (
		rawID      string
		rawVec     string
		dob        *time.Time
		entity     domain.StoredEntity
		ingestedAt time.Time
	)
	err := row.Scan(&rawID,
		&entity.Record.FullName, &dob,
		&entity.Record.PhoneE164, &entity.Record.Email, &entity.Record.GovID,
		&entity.Record.AddrLine, &entity.Record.City, &entity.Record.State,
		&entity.Record.PostalCode, &entity.Record.Country,
		&rawVec, &ingestedAt,
	)
	if err != nil {
		return domain.StoredEntity{}, err
	}
	entityID, err := id.ParseEntityID(rawID)
	if err != nil {
		return domain.StoredEntity{}, fmt.Errorf("invalid entity id %q in store: %w", rawID, err)
	}
	vec, err := parseVector(rawVec)
	if err != nil {
		return domain.StoredEntity{}, err
	}
	entity.ID = entityID
	entity.Record.DOB = dob
	entity.Vector = vec
	entity.IngestedAt = ingestedAt
	return entity, nil
}
