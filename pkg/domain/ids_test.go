package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "unify/pkg/domain-errors"
)

func TestParseEntityID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEntityID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseEntityID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEntityID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("round-trips a valid UUID", func(t *testing.T) {
		want := uuid.New()
		id, err := ParseEntityID(want.String())
		require.NoError(t, err)
		assert.Equal(t, want.String(), id.String())
		assert.False(t, id.IsZero())
	})
}

func TestParseModelID(t *testing.T) {
	_, err := ParseModelID("garbage")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	id, err := ParseModelID(uuid.New().String())
	require.NoError(t, err)
	assert.False(t, id.IsZero())
}

func TestNewIDsAreDistinct(t *testing.T) {
	assert.NotEqual(t, NewEntityID().String(), NewEntityID().String())
	assert.NotEqual(t, NewModelID().String(), NewModelID().String())
}
