package segment

import (
	"math"
	"testing"
)

func TestLogSumExp(t *testing.T) {
	for _, tc := range []struct {
		in   []float64
		want float64
	}{
		{nil, math.Inf(-1)},
		{[]float64{math.Inf(-1), math.Inf(-1)}, math.Inf(-1)},
		{[]float64{0}, 0},
		{[]float64{math.Log(2), math.Log(3)}, math.Log(5)},
		{[]float64{math.Inf(-1), math.Log(4)}, math.Log(4)},
		{[]float64{-1000, -1000}, -1000 + math.Log(2)},
	} {
		got := logSumExp(tc.in)
		if math.IsInf(tc.want, -1) {
			if !math.IsInf(got, -1) {
				t.Errorf("logSumExp(%v) = %v, want -Inf", tc.in, got)
			}
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("logSumExp(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLogSumExp2MatchesVector(t *testing.T) {
	pairs := [][2]float64{
		{0, 0},
		{-3, 2},
		{math.Inf(-1), -1},
		{-700, -710},
	}
	for _, p := range pairs {
		got := logSumExp2(p[0], p[1])
		want := logSumExp(p[0:2])
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("logSumExp2(%v, %v) = %v, want %v", p[0], p[1], got, want)
		}
	}
	if !math.IsInf(logSumExp2(math.Inf(-1), math.Inf(-1)), -1) {
		t.Error("logSumExp2 of two -Inf should be -Inf")
	}
}

func TestArgmaxLowestTieBreak(t *testing.T) {
	for _, tc := range []struct {
		in   []float64
		want int
	}{
		{[]float64{1, 1, 1}, 0},
		{[]float64{0, 2, 2}, 1},
		{[]float64{-1, -5, -1}, 0},
		{[]float64{math.Inf(-1), 0}, 1},
	} {
		if got := argmaxLowest(tc.in); got != tc.want {
			t.Errorf("argmaxLowest(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEuclidean(t *testing.T) {
	if got := euclidean([]float64{0, 0}, []float64{3, 4}); got != 5 {
		t.Errorf("euclidean = %v, want 5", got)
	}
	if got := euclidean([]float64{1}, []float64{1}); got != 0 {
		t.Errorf("euclidean of identical points = %v, want 0", got)
	}
}

func TestBayesianSurprise(t *testing.T) {
	negInf := math.Inf(-1)

	// Single uncertain type: surprise at step t is exactly the step's
	// log likelihood.
	logLike := [][]float64{
		{0, negInf},
		{-2, negInf},
		{-5, negInf},
	}
	logPrior := [][]float64{
		{math.Log(3), negInf},
		{0, negInf},
		{0, negInf},
	}
	s := bayesianSurprise(logLike, logPrior)
	if s[0] != 0 {
		t.Errorf("surprise at step 0 should be 0, got %v", s[0])
	}
	if math.Abs(s[1]-(-2)) > 1e-9 || math.Abs(s[2]-(-5)) > 1e-9 {
		t.Errorf("single-type surprise should equal the log likelihood, got %v", s)
	}
}

func TestBayesianSurpriseMixesBelief(t *testing.T) {
	negInf := math.Inf(-1)

	// Uniform belief over two types at step 0; step 1 likelihoods differ.
	logLike := [][]float64{
		{0, 0},
		{math.Log(0.8), math.Log(0.2)},
	}
	logPrior := [][]float64{
		{math.Log(0.5), math.Log(0.5)},
		{0, 0},
	}
	s := bayesianSurprise(logLike, logPrior)
	want := math.Log(0.5*0.8 + 0.5*0.2)
	if math.Abs(s[1]-want) > 1e-9 {
		t.Errorf("surprise = %v, want %v", s[1], want)
	}
	if s[1] != 0 && s[0] != 0 {
		t.Errorf("step 0 surprise must stay 0, got %v", s[0])
	}

	// A type with no support contributes nothing.
	logLike[1][1] = negInf
	s = bayesianSurprise(logLike, logPrior)
	want = math.Log(0.5 * 0.8)
	if math.Abs(s[1]-want) > 1e-9 {
		t.Errorf("surprise with one dead type = %v, want %v", s[1], want)
	}
}
