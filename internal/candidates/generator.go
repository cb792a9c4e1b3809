// Package candidates produces the bounded candidate set for one duplicate
// check by combining exact-match blocking with k-nearest-neighbor vector
// search. Both capabilities are ports so the generator is fully testable
// against in-memory fakes.
package candidates

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"unify/internal/domain"
	"unify/internal/vectors"
	id "unify/pkg/domain"
	dErrors "unify/pkg/domain-errors"
)

// BlockField names a metadata field usable for exact-match blocking.
type BlockField string

const (
	BlockPhone BlockField = "phone"
	BlockEmail BlockField = "email"
	BlockGovID BlockField = "gov_id"
)

// Neighbor is one k-NN result: an entity and its vector distance to the query.
type Neighbor struct {
	ID       id.EntityID
	Distance float64
}

// VectorSearcher is the k-NN oracle over stored identity vectors. Results are
// ordered by ascending distance and bounded by k.
type VectorSearcher interface {
	TopK(ctx context.Context, vec []float32, k int) ([]Neighbor, error)
}

// ExactMatcher resolves exact-match blocking lookups on normalized metadata.
type ExactMatcher interface {
	LookupExact(ctx context.Context, field BlockField, value string) ([]id.EntityID, error)
}

// EntityFetcher loads stored entities by identifier.
type EntityFetcher interface {
	Entity(ctx context.Context, entityID id.EntityID) (domain.StoredEntity, error)
}

// Generator builds candidate sets of at most K entities.
type Generator struct {
	search VectorSearcher
	exact  ExactMatcher
	fetch  EntityFetcher
	k      int
}

// NewGenerator wires a Generator over the store capabilities. k bounds the
// candidate set; typical values trade recall for latency (100-1000).
func NewGenerator(search VectorSearcher, exact ExactMatcher, fetch EntityFetcher, k int) *Generator {
	return &Generator{search: search, exact: exact, fetch: fetch, k: k}
}

// Generate returns up to K candidates for the query, sorted by ascending
// vector distance with entity-ID tie-breaks for determinism.
//
// Blocking lookups (phone, email, government ID) and the k-NN query run
// concurrently. Entities found only via blocking get their distance computed
// on demand so every candidate carries a comparable distance.
//
// Errors: CodeUpstreamTimeout when the store or index misses the deadline.
func (g *Generator) Generate(ctx context.Context, query domain.IdentityRecord, qvec []float32) ([]domain.Candidate, error) {
	var (
		neighbors []Neighbor
		blocked   []id.EntityID
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		neighbors, err = g.search.TopK(egCtx, qvec, g.k)
		return err
	})
	eg.Go(func() error {
		var err error
		blocked, err = g.blockingSet(egCtx, query)
		return err
	})
	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(dErrors.CodeUpstreamTimeout, "candidate query timed out", err)
		}
		return nil, err
	}

	distances := make(map[id.EntityID]float64, len(neighbors))
	for _, n := range neighbors {
		distances[n.ID] = n.Distance
	}

	// Union, deduplicated by entity ID. Blocking hits missing from the k-NN
	// results need a distance before they can be ranked with the rest.
	union := make([]domain.Candidate, 0, len(distances)+len(blocked))
	seen := make(map[id.EntityID]bool, len(distances)+len(blocked))
	for _, n := range neighbors {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		entity, err := g.fetch.Entity(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		union = append(union, domain.Candidate{Entity: entity, Distance: n.Distance})
	}
	for _, entityID := range blocked {
		if seen[entityID] {
			continue
		}
		seen[entityID] = true
		entity, err := g.fetch.Entity(ctx, entityID)
		if err != nil {
			return nil, err
		}
		union = append(union, domain.Candidate{
			Entity:   entity,
			Distance: vectors.CosineDistance(qvec, entity.Vector),
		})
	}

	sort.Slice(union, func(i, j int) bool {
		if union[i].Distance != union[j].Distance {
			return union[i].Distance < union[j].Distance
		}
		return union[i].Entity.ID.String() < union[j].Entity.ID.String()
	})
	if len(union) > g.k {
		union = union[:g.k]
	}
	return union, nil
}

// blockingSet collects exact-match hits across the cheap identifier fields.
// Absent query fields are skipped.
func (g *Generator) blockingSet(ctx context.Context, query domain.IdentityRecord) ([]id.EntityID, error) {
	lookups := []struct {
		field BlockField
		value *string
	}{
		{BlockPhone, query.PhoneE164},
		{BlockEmail, query.Email},
		{BlockGovID, query.GovID},
	}

	var out []id.EntityID
	for _, l := range lookups {
		value, ok := domain.Str(l.value)
		if !ok {
			continue
		}
		ids, err := g.exact.LookupExact(ctx, l.field, value)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}
