// Package eventmodel provides the predictive models that score and learn
// individual event types, and the registry that owns one model instance
// per type.
//
// The first model created in a registry becomes the template: its Init
// builds the shared backend state, and every later instance attaches to
// that backend and starts from a deep copy of the template's parameters.
// Sharing happens at creation time only; instances diverge independently
// through their own updates.
package eventmodel

import "errors"

// ErrBackendClosed is returned when a model is created against a backend
// that has already been torn down.
var ErrBackendClosed = errors.New("eventmodel: backend closed")

// Model is the capability set the segmentation engine consumes.
//
// All likelihoods are natural-log probabilities. "Start" treats the
// observation as the first scene of a fresh event token; "transition"
// conditions on the previous scene of an ongoing token; "sequence"
// conditions on every scene observed so far within the current token.
type Model interface {
	// Init builds the shared backend state and makes this instance the
	// template. Called once per registry, on the first model only.
	Init() *Backend

	// Attach shares an existing template's backend, seeding this
	// instance with a copy of the template's parameters.
	Attach(b *Backend) error

	StartLikelihood(x []float64) float64
	TransitionLikelihood(xPrev, xCurr []float64) float64
	SequenceLikelihood(history [][]float64, xCurr []float64) float64

	UpdateFromStart(x []float64)
	UpdateFromTransition(xPrev, xCurr []float64)

	// NewOccurrence resets within-token bookkeeping without discarding
	// learned parameters.
	NewOccurrence()

	PredictFromStart() []float64
	PredictFromContext(xPrev []float64) []float64
	PredictGenerative(history [][]float64) []float64

	// Variance is the model's current per-dimension predictive variance.
	Variance() []float64

	// Reset releases instance-owned resources.
	Reset()
}

// Factory constructs an unattached model for the given observation
// dimensionality.
type Factory func(dim int) Model

// Backend is the execution state shared by every model instance in one
// registry: the observation dimensionality plus the template's parameter
// snapshot that later instances clone from.
type Backend struct {
	Dim int

	// seed holds the template's initial parameters; concrete model
	// types store and read their own representation here.
	seed   any
	closed bool
}

// Seed stores the template parameter snapshot.
func (b *Backend) Seed(v any) {
	b.seed = v
}

// TemplateSeed returns the template parameter snapshot, or nil.
func (b *Backend) TemplateSeed() any {
	if b == nil {
		return nil
	}
	return b.seed
}

// Close releases the shared state. Models attached to a closed backend
// must not be used.
func (b *Backend) Close() {
	b.seed = nil
	b.closed = true
}

// Closed reports whether the backend has been torn down.
func (b *Backend) Closed() bool {
	return b == nil || b.closed
}
