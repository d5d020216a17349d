package eventmodel

import (
	"errors"

	"github.com/abelbrown/eventseg/internal/logging"
)

// ErrTornDown is returned by registry operations after Teardown.
var ErrTornDown = errors.New("eventmodel: registry torn down")

// Registry owns one model instance per event type. Slots are an arena
// indexed by type, grown by appending; a nil slot means the type has not
// been instantiated yet.
type Registry struct {
	factory Factory
	dim     int
	slots   []Model
	backend *Backend
	down    bool
}

// NewRegistry creates a registry for observations of the given
// dimensionality.
func NewRegistry(dim int, factory Factory) *Registry {
	return &Registry{factory: factory, dim: dim}
}

// Ensure returns the model for event type k, constructing it on first
// use. The first model constructed becomes the template and initializes
// the shared backend; later models attach to it.
func (r *Registry) Ensure(k int) (Model, error) {
	if r.down {
		return nil, ErrTornDown
	}

	for len(r.slots) <= k {
		r.slots = append(r.slots, nil)
	}
	if m := r.slots[k]; m != nil {
		return m, nil
	}

	m := r.factory(r.dim)
	if r.backend == nil {
		r.backend = m.Init()
		logging.Debug("event model template created", "type", k, "dim", r.dim)
	} else {
		if err := m.Attach(r.backend); err != nil {
			return nil, err
		}
	}
	r.slots[k] = m
	return m, nil
}

// Get returns the model for type k, or nil if it was never instantiated.
func (r *Registry) Get(k int) Model {
	if k < 0 || k >= len(r.slots) {
		return nil
	}
	return r.slots[k]
}

// Len returns the number of slots in the arena (instantiated or not).
func (r *Registry) Len() int {
	return len(r.slots)
}

// Teardown releases every model's resources and closes the shared
// backend. The registry is unusable afterward.
func (r *Registry) Teardown() {
	if r.down {
		return
	}
	for i, m := range r.slots {
		if m != nil {
			m.Reset()
			r.slots[i] = nil
		}
	}
	if r.backend != nil {
		r.backend.Close()
		r.backend = nil
	}
	r.slots = nil
	r.down = true
	logging.Debug("event model registry torn down")
}
