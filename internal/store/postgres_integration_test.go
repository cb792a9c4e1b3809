//go:build integration

package store_test

import (
	"context"
	_ "embed"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"unify/internal/candidates"
	"unify/internal/domain"
	"unify/internal/platform/postgres"
	"unify/internal/scoring"
	"unify/internal/store"
	id "unify/pkg/domain"
	"unify/pkg/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	entities  *store.Postgres
	models    *store.PostgresModels
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "pgvector/pgvector:pg16",
		tcpostgres.WithDatabase("unify"),
		tcpostgres.WithUsername("unify"),
		tcpostgres.WithPassword("unify"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	pool, err := postgres.Connect(ctx, url)
	s.Require().NoError(err)

	_, err = pool.Exec(ctx, store.Schema)
	s.Require().NoError(err)

	s.entities = store.NewPostgres(pool)
	s.models = store.NewPostgresModels(pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func testEntity(phone string, fill float32) domain.StoredEntity {
	vec := make([]float32, domain.VectorDim)
	for i := range vec {
		vec[i] = fill
	}
	vec[0] = 1
	return domain.StoredEntity{
		ID: id.NewEntityID(),
		Record: domain.IdentityRecord{
			FullName:  domain.StrPtr("JOHN SMITH"),
			PhoneE164: domain.StrPtr(phone),
		},
		Vector:     vec,
		IngestedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestAppendAndFetch() {
	ctx := context.Background()
	e := testEntity("+15551230001", 0.1)
	s.Require().NoError(s.entities.Append(ctx, e))

	got, err := s.entities.Entity(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal("JOHN SMITH", *got.Record.FullName)
	s.Len(got.Vector, domain.VectorDim)
}

func (s *PostgresStoreSuite) TestMissingEntity() {
	_, err := s.entities.Entity(context.Background(), id.NewEntityID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExactLookup() {
	ctx := context.Background()
	e := testEntity("+15551230002", 0.2)
	s.Require().NoError(s.entities.Append(ctx, e))

	ids, err := s.entities.LookupExact(ctx, candidates.BlockPhone, "+15551230002")
	s.Require().NoError(err)
	s.Contains(ids, e.ID)
}

func (s *PostgresStoreSuite) TestTopKOrdersByDistance() {
	ctx := context.Background()
	near := testEntity("+15551230003", 0.01)
	far := testEntity("+15551230004", 0.9)
	s.Require().NoError(s.entities.Append(ctx, near))
	s.Require().NoError(s.entities.Append(ctx, far))

	got, err := s.entities.TopK(ctx, near.Vector, 100)
	s.Require().NoError(err)
	s.Require().NotEmpty(got)
	s.Equal(near.ID, got[0].ID)
	s.InDelta(0, got[0].Distance, 1e-4)
}

func (s *PostgresStoreSuite) TestModelSaveAndLatest() {
	ctx := context.Background()

	first := scoring.Default(time.Now())
	second := scoring.Default(time.Now())
	s.Require().NoError(s.models.Save(ctx, first))
	s.Require().NoError(s.models.Save(ctx, second))

	got, err := s.models.Latest(ctx)
	s.Require().NoError(err)
	s.Equal(second.ID, got.ID)
	s.Equal(second.Schema, got.Schema)
	s.InDeltaSlice(second.Weights, got.Weights, 1e-12)
}
