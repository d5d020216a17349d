// Package prior implements the sticky clustering prior (sCRP) over event
// types: a running count of the clustering process plus concentration mass
// for a brand-new type and stickiness mass for repeating the previous one.
package prior

import (
	"fmt"
)

// NoType marks the absence of a previous event type, before the first
// segmentation decision has been made.
const NoType = -1

// DimensionError reports an observation whose width differs from the
// dimensionality fixed at first use. It is fatal: the run must abort.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("observation dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// State tracks the running clustering process: per-type occurrence counts,
// the observation dimensionality, and the number of known event types.
// It only ever grows.
type State struct {
	counts []float64
	dim    int // 0 until fixed by the first Update
	types  int // K, the current number of known event types
}

// NewState returns an empty clustering state.
func NewState() *State {
	return &State{}
}

// Update registers a batch of n observations of the given width and grows
// the type capacity to max(K, kHint); a negative kHint means "use n".
// The first call fixes the dimensionality; later calls must match it.
func (s *State) Update(n, width, kHint int) error {
	if s.dim == 0 {
		s.dim = width
	} else if s.dim != width {
		return &DimensionError{Want: s.dim, Got: width}
	}

	k := kHint
	if k < 0 {
		k = n
	}
	if k > s.types {
		s.types = k
	}

	// Grow counts by zero-padding; never truncate.
	for len(s.counts) < s.types {
		s.counts = append(s.counts, 0)
	}
	return nil
}

// Observe adds weight to a type's running count.
func (s *State) Observe(k int, weight float64) {
	s.counts[k] += weight
}

// Counts returns the live count slice. Callers must not mutate it.
func (s *State) Counts() []float64 {
	return s.counts
}

// Dim returns the observation dimensionality (0 until fixed).
func (s *State) Dim() int {
	return s.dim
}

// Types returns K, the current number of known event types.
func (s *State) Types() int {
	return s.types
}

// Sticky computes the unnormalized sCRP prior vector.
type Sticky struct {
	// Alpha is the concentration parameter: mass reserved for a
	// brand-new event type.
	Alpha float64

	// Lambda is the stickiness parameter: extra mass for repeating the
	// immediately preceding event type.
	Lambda float64
}

// Unnormalized returns the sCRP prior over the state's K types given the
// previous type (NoType before the first decision). Entries are raw mass;
// log-domain callers take log themselves. The returned slice is owned by
// the caller.
func (p Sticky) Unnormalized(s *State, prev int) []float64 {
	out := make([]float64, len(s.counts))
	copy(out, s.counts)

	// The first never-visited slot gets the new-type mass.
	idx := 0
	for _, c := range s.counts {
		if c != 0 {
			idx++
		}
	}
	if idx < len(out) {
		out[idx] += p.Alpha
	}

	if prev != NoType {
		out[prev] += p.Lambda
	}
	return out
}

// Active returns the number of leading entries of the prior with nonzero
// mass. Counts are filled lowest-index first and the new-type slot sits
// immediately after the visited ones, so the active set is always a prefix.
func Active(unnormed []float64) int {
	n := 0
	for _, v := range unnormed {
		if v == 0 {
			break
		}
		n++
	}
	return n
}
