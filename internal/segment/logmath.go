package segment

import "math"

// logSumExp reduces a log-domain vector. Entries of -Inf mean "no
// support" and contribute nothing; an all--Inf input reduces to -Inf.
func logSumExp(xs []float64) float64 {
	max := math.Inf(-1)
	for _, v := range xs {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, v := range xs {
		if math.IsInf(v, -1) {
			continue
		}
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}

// logSumExp2 is logSumExp over two values.
func logSumExp2(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// argmaxLowest returns the index of the maximum, breaking ties toward
// the lowest index.
func argmaxLowest(xs []float64) int {
	best, bestV := 0, math.Inf(-1)
	for i, v := range xs {
		if v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

// euclidean is the L2 distance between two equal-length vectors.
func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
