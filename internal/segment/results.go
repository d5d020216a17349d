package segment

import "math"

// Results accumulates the per-step output of an inference run. Matrices
// are row-per-observation (or row-per-token in token mode) with one
// column per event type; the type dimension grows as new types are
// discovered, padding new columns with 0 (posterior) or -Inf (log
// matrices).
type Results struct {
	// Post holds the normalized diagnostic posterior over types; each
	// populated row sums to 1 over the active types. Nil when memory is
	// minimized.
	Post [][]float64

	// LogLike and LogPrior are the raw log-domain evidence matrices;
	// un-instantiated types carry -Inf.
	LogLike  [][]float64
	LogPrior [][]float64

	// LogBoundary and BoundaryProb are the per-step boundary signal in
	// log and probability domain (streaming mode only).
	LogBoundary  []float64
	BoundaryProb []float64

	// Surprise is the per-step Bayesian surprise; index 0 is 0 by
	// convention.
	Surprise []float64

	// PredErr is the Euclidean distance between the previous model's
	// prediction and the actual observation. Nil when memory is
	// minimized.
	PredErr []float64

	// Predicted and Variances are the optional per-step predicted
	// observation and predictive variance.
	Predicted [][]float64
	Variances [][]float64

	// SceneLogLike is the optional token-mode per-scene likelihood
	// matrix.
	SceneLogLike [][]float64

	// BestType is the MAP event type per row.
	BestType []int

	// LogLoss is logsumexp(LogLike + LogPrior) per row.
	LogLoss []float64
}

func filledRow(k int, fill float64) []float64 {
	row := make([]float64, k)
	if fill != 0 {
		for i := range row {
			row[i] = fill
		}
	}
	return row
}

func newMatrix(n, k int, fill float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = filledRow(k, fill)
	}
	return m
}

// growCols pads every row of m with fill until it has k columns.
func growCols(m [][]float64, k int, fill float64) {
	for i, row := range m {
		for len(row) < k {
			row = append(row, fill)
		}
		m[i] = row
	}
}

// growTypes widens all type-indexed matrices to k columns.
func (r *Results) growTypes(k int) {
	growCols(r.Post, k, 0)
	growCols(r.LogLike, k, math.Inf(-1))
	growCols(r.LogPrior, k, math.Inf(-1))
	growCols(r.SceneLogLike, k, math.Inf(-1))
}

// appendTokenRow adds one token row of width k to the decision matrices.
func (r *Results) appendTokenRow(k int) {
	r.Post = append(r.Post, filledRow(k, 0))
	r.LogLike = append(r.LogLike, filledRow(k, math.Inf(-1)))
	r.LogPrior = append(r.LogPrior, filledRow(k, math.Inf(-1)))
}
