package vectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance(t *testing.T) {
	t.Run("identical vectors have zero distance", func(t *testing.T) {
		v := []float32{0.3, 0.4, 0.5}
		assert.InDelta(t, 0, CosineDistance(v, v), 1e-9)
	})

	t.Run("orthogonal vectors have distance one", func(t *testing.T) {
		assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposite vectors have distance two", func(t *testing.T) {
		assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("zero vector gets maximum distance", func(t *testing.T) {
		assert.Equal(t, 2.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
	})

	t.Run("scale invariant", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{2, 4, 6}
		assert.InDelta(t, 0, CosineDistance(a, b), 1e-9)
	})
}
