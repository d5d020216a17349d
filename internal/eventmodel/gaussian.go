package eventmodel

import (
	"math"

	"github.com/jinzhu/copier"
)

const log2Pi = 1.8378770664093453

// GaussianParams are the learned parameters of the Gaussian random-walk
// model. Exported so the template snapshot can be deep-copied into newly
// attached instances.
type GaussianParams struct {
	StartMean []float64
	StartVar  []float64
	Coef      []float64
	Bias      []float64
	TransVar  []float64
}

// Gaussian is a diagonal-Gaussian event model with an elementwise linear
// transition: x̂_t = coef ⊙ x_{t-1} + bias, learned by normalized LMS.
// Start scenes are modeled by a running start mean and variance.
type Gaussian struct {
	dim     int
	lr      float64
	noise   float64
	backend *Backend

	p        GaussianParams
	tokenLen int
}

// NewGaussianFactory returns a Factory producing Gaussian models with the
// given LMS learning rate and variance floor.
func NewGaussianFactory(learningRate, noiseFloor float64) Factory {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if noiseFloor <= 0 {
		noiseFloor = 0.05
	}
	return func(dim int) Model {
		return &Gaussian{dim: dim, lr: learningRate, noise: noiseFloor}
	}
}

func defaultGaussianParams(dim int) GaussianParams {
	p := GaussianParams{
		StartMean: make([]float64, dim),
		StartVar:  make([]float64, dim),
		Coef:      make([]float64, dim),
		Bias:      make([]float64, dim),
		TransVar:  make([]float64, dim),
	}
	for i := 0; i < dim; i++ {
		p.StartVar[i] = 1
		p.Coef[i] = 1 // identity transition until trained
		p.TransVar[i] = 1
	}
	return p
}

// Init builds the shared backend, seeds it with this instance's initial
// parameters, and makes this instance the template.
func (g *Gaussian) Init() *Backend {
	g.p = defaultGaussianParams(g.dim)

	var seed GaussianParams
	copier.CopyWithOption(&seed, &g.p, copier.Option{DeepCopy: true})

	b := &Backend{Dim: g.dim}
	b.Seed(seed)
	g.backend = b
	return b
}

// Attach shares the template's backend and clones its parameter seed.
func (g *Gaussian) Attach(b *Backend) error {
	if b.Closed() {
		return ErrBackendClosed
	}
	seed, ok := b.TemplateSeed().(GaussianParams)
	if !ok {
		seed = defaultGaussianParams(b.Dim)
	}
	copier.CopyWithOption(&g.p, &seed, copier.Option{DeepCopy: true})
	g.dim = b.Dim
	g.backend = b
	return nil
}

func (g *Gaussian) StartLikelihood(x []float64) float64 {
	return diagLogPDF(x, g.p.StartMean, g.p.StartVar)
}

func (g *Gaussian) TransitionLikelihood(xPrev, xCurr []float64) float64 {
	return diagLogPDF(xCurr, g.predict(xPrev), g.p.TransVar)
}

func (g *Gaussian) SequenceLikelihood(history [][]float64, xCurr []float64) float64 {
	if len(history) == 0 {
		return g.StartLikelihood(xCurr)
	}
	return g.TransitionLikelihood(history[len(history)-1], xCurr)
}

func (g *Gaussian) UpdateFromStart(x []float64) {
	g.tokenLen = 1
	for i := range x {
		d := x[i] - g.p.StartMean[i]
		g.p.StartMean[i] += g.lr * d
		g.p.StartVar[i] += g.lr * (d*d - g.p.StartVar[i])
		if g.p.StartVar[i] < g.noise {
			g.p.StartVar[i] = g.noise
		}
	}
}

func (g *Gaussian) UpdateFromTransition(xPrev, xCurr []float64) {
	g.tokenLen++
	pred := g.predict(xPrev)
	for i := range xCurr {
		err := xCurr[i] - pred[i]

		// Normalized LMS keeps the step size bounded for large inputs.
		g.p.Coef[i] += g.lr * err * xPrev[i] / (xPrev[i]*xPrev[i] + 1)
		g.p.Bias[i] += g.lr * err

		g.p.TransVar[i] += g.lr * (err*err - g.p.TransVar[i])
		if g.p.TransVar[i] < g.noise {
			g.p.TransVar[i] = g.noise
		}
	}
}

func (g *Gaussian) NewOccurrence() {
	g.tokenLen = 0
}

func (g *Gaussian) PredictFromStart() []float64 {
	out := make([]float64, g.dim)
	copy(out, g.p.StartMean)
	return out
}

func (g *Gaussian) PredictFromContext(xPrev []float64) []float64 {
	return g.predict(xPrev)
}

func (g *Gaussian) PredictGenerative(history [][]float64) []float64 {
	if len(history) == 0 {
		return g.PredictFromStart()
	}
	return g.predict(history[len(history)-1])
}

func (g *Gaussian) Variance() []float64 {
	out := make([]float64, g.dim)
	if g.tokenLen <= 1 {
		copy(out, g.p.StartVar)
	} else {
		copy(out, g.p.TransVar)
	}
	return out
}

func (g *Gaussian) Reset() {
	g.p = GaussianParams{}
	g.backend = nil
}

func (g *Gaussian) predict(xPrev []float64) []float64 {
	out := make([]float64, g.dim)
	for i := range out {
		out[i] = g.p.Coef[i]*xPrev[i] + g.p.Bias[i]
	}
	return out
}

// diagLogPDF is the log density of x under a diagonal Gaussian.
func diagLogPDF(x, mean, variance []float64) float64 {
	ll := 0.0
	for i := range x {
		v := variance[i]
		d := x[i] - mean[i]
		ll += -0.5 * (log2Pi + math.Log(v) + d*d/v)
	}
	return ll
}
