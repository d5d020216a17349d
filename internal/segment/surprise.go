package segment

import "math"

// bayesianSurprise derives the per-step surprise signal from the cached
// log-likelihood and log-prior history: the log predictive probability
// of each observation under the previous step's belief, marginalized
// over types. Step 0 is 0 by convention, having no prior belief.
func bayesianSurprise(logLike, logPrior [][]float64) []float64 {
	n := len(logLike)
	out := make([]float64, n)

	for t := 1; t < n; t++ {
		belief := make([]float64, len(logLike[t-1]))
		for k := range belief {
			belief[k] = logLike[t-1][k] + logPrior[t-1][k]
		}
		z := logSumExp(belief)
		if math.IsInf(z, -1) {
			continue
		}

		acc := math.Inf(-1)
		for k := range belief {
			if math.IsInf(belief[k], -1) || math.IsInf(logLike[t][k], -1) {
				continue
			}
			acc = logSumExp2(acc, belief[k]-z+logLike[t][k])
		}
		out[t] = acc
	}
	return out
}
