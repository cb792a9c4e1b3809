package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unify/internal/candidates"
	"unify/internal/domain"
	"unify/internal/scoring"
	id "unify/pkg/domain"
	"unify/pkg/sentinel"
)

func storedEntity(vec []float32, phone, email string) domain.StoredEntity {
	return domain.StoredEntity{
		ID: id.NewEntityID(),
		Record: domain.IdentityRecord{
			PhoneE164: domain.StrPtr(phone),
			Email:     domain.StrPtr(email),
		},
		Vector:     vec,
		IngestedAt: time.Now(),
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("append then fetch round-trips", func(t *testing.T) {
		m := NewMemory()
		e := storedEntity([]float32{1, 0}, "+15551230000", "a@x.com")
		require.NoError(t, m.Append(ctx, e))
		got, err := m.Entity(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, "+15551230000", *got.Record.PhoneE164)
	})

	t.Run("missing entity returns sentinel", func(t *testing.T) {
		m := NewMemory()
		_, err := m.Entity(ctx, id.NewEntityID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("exact lookup finds all matches for a value", func(t *testing.T) {
		m := NewMemory()
		a := storedEntity([]float32{1, 0}, "+15551230000", "")
		b := storedEntity([]float32{0, 1}, "+15551230000", "")
		c := storedEntity([]float32{0, 1}, "+15559990000", "")
		for _, e := range []domain.StoredEntity{a, b, c} {
			require.NoError(t, m.Append(ctx, e))
		}
		ids, err := m.LookupExact(ctx, candidates.BlockPhone, "+15551230000")
		require.NoError(t, err)
		assert.ElementsMatch(t, []id.EntityID{a.ID, b.ID}, ids)
	})

	t.Run("topk orders by cosine distance and respects k", func(t *testing.T) {
		m := NewMemory()
		near := storedEntity([]float32{1, 0.01}, "", "")
		mid := storedEntity([]float32{1, 1}, "", "")
		far := storedEntity([]float32{-1, 0}, "", "")
		for _, e := range []domain.StoredEntity{far, near, mid} {
			require.NoError(t, m.Append(ctx, e))
		}
		got, err := m.TopK(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, near.ID, got[0].ID)
		assert.Equal(t, mid.ID, got[1].ID)
	})

	t.Run("concurrent appends and reads do not race", func(t *testing.T) {
		m := NewMemory()
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					_ = m.Append(ctx, storedEntity([]float32{1, float32(j)}, "", ""))
				}
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					_, _ = m.TopK(ctx, []float32{1, 0}, 10)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 200, m.Len())
	})
}

func TestMemoryModels(t *testing.T) {
	ctx := context.Background()

	t.Run("empty archive returns sentinel", func(t *testing.T) {
		m := NewMemoryModels()
		_, err := m.Latest(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("latest returns most recent save", func(t *testing.T) {
		m := NewMemoryModels()
		first := scoring.Default(time.Now())
		second := scoring.Default(time.Now())
		require.NoError(t, m.Save(ctx, first))
		require.NoError(t, m.Save(ctx, second))
		got, err := m.Latest(ctx)
		require.NoError(t, err)
		assert.Same(t, second, got)
	})
}

func TestVectorLiteral(t *testing.T) {
	t.Run("round-trips through parse", func(t *testing.T) {
		vec := []float32{0.125, -1.5, 0, 3}
		got, err := parseVector(vectorLiteral(vec))
		require.NoError(t, err)
		assert.Equal(t, vec, got)
	})

	t.Run("rejects malformed component", func(t *testing.T) {
		_, err := parseVector("[1,x]")
		assert.Error(t, err)
	})
}
