package scoring

import "sync/atomic"

// Ref is the single shared mutable reference to the live scoring model.
// Readers capture a model once per check and keep using it even if a swap
// lands mid-check; swaps publish a complete new model, never partial weights.
type Ref struct {
	p atomic.Pointer[Model]
}

// NewRef creates a Ref pointing at the initial model.
func NewRef(initial *Model) *Ref {
	r := &Ref{}
	r.p.Store(initial)
	return r
}

// Load returns the current live model.
func (r *Ref) Load() *Model {
	return r.p.Load()
}

// Swap atomically publishes a new model and returns the previous one.
func (r *Ref) Swap(next *Model) *Model {
	return r.p.Swap(next)
}
