// Package segment implements online event segmentation: a sticky
// clustering prior over a growing set of event types combined with
// per-type predictive models, inferring both type identity and event
// boundaries one observation at a time.
package segment

import (
	"fmt"
	"math"

	"github.com/abelbrown/eventseg/internal/eventmodel"
	"github.com/abelbrown/eventseg/internal/logging"
	"github.com/abelbrown/eventseg/internal/prior"
)

// Config configures an inference run.
type Config struct {
	// Alpha is the sCRP concentration parameter.
	Alpha float64

	// Lambda is the sCRP stickiness parameter.
	Lambda float64

	// Factory constructs the per-type predictive models.
	Factory eventmodel.Factory

	// MinimizeMemory skips the diagnostic matrices (posterior rows,
	// predicted observations, prediction error) and releases every
	// event model at run end.
	MinimizeMemory bool

	// SaveDiagnostics retains per-scene predictions, variances, and
	// scene-level likelihoods in token mode.
	SaveDiagnostics bool
}

// core is the state shared by the streaming and token segmenters: the
// clustering process, the model registry, and the trailing observation
// and type. It is owned by exactly one segmenter and mutated
// incrementally, never rebuilt mid-run.
type core struct {
	cfg    Config
	sticky prior.Sticky
	state  *prior.State
	reg    *eventmodel.Registry
	prevX  []float64
	prevK  int
}

func newCore(cfg Config) core {
	return core{
		cfg:    cfg,
		sticky: prior.Sticky{Alpha: cfg.Alpha, Lambda: cfg.Lambda},
		state:  prior.NewState(),
		prevK:  prior.NoType,
	}
}

// ensure returns the model for type k, creating the registry on first
// use once the dimensionality is known.
func (c *core) ensure(k int) (eventmodel.Model, error) {
	if c.reg == nil {
		c.reg = eventmodel.NewRegistry(c.state.Dim(), c.cfg.Factory)
	}
	return c.reg.Ensure(k)
}

func (c *core) teardown() {
	if c.reg != nil {
		c.reg.Teardown()
	}
}

// StepResult is the per-observation decision of the streaming engine.
type StepResult struct {
	// Type is the MAP event type for this observation.
	Type int

	// Boundary reports whether this observation starts a new event
	// token, either by switching types or by restarting the same one.
	Boundary bool

	// BoundaryProb is the probability mass attributable to anything
	// other than plain continuation, in [0, 1].
	BoundaryProb float64
}

// Segmenter is the streaming engine: one continue/restart/switch
// decision per observation. Use Begin/Step/Finish for live input, or
// Run for a whole observation matrix.
type Segmenter struct {
	core

	res     *Results
	dim     int
	kMax    int
	t       int
	running bool

	// Restart-hypothesis bookkeeping, carried across steps the way the
	// decision rule consumes it.
	likRestart  float64
	restartPost float64
	repeatPost  float64
}

// New creates a streaming segmenter.
func New(cfg Config) *Segmenter {
	return &Segmenter{core: newCore(cfg)}
}

// Teardown releases every event model and the shared backend state. The
// segmenter is unusable afterward.
func (s *Segmenter) Teardown() {
	s.teardown()
}

// Begin starts a run over observations of the given width, with kMax an
// upper bound on the number of event types. Results are accumulated
// step by step until Finish.
func (s *Segmenter) Begin(dim, kMax int) error {
	if kMax <= 0 {
		return fmt.Errorf("segment: kMax must be positive, got %d", kMax)
	}
	if err := s.state.Update(kMax, dim, kMax); err != nil {
		return err
	}
	s.dim = s.state.Dim()
	s.kMax = s.state.Types()
	s.res = &Results{}
	s.t = 0
	s.likRestart = math.Inf(-1)
	s.restartPost = 0
	s.repeatPost = math.Inf(-1)
	s.running = true
	return nil
}

// Step consumes one observation, returning the boundary decision. The
// engine is strictly sequential: every step depends on the mutated state
// of the previous one.
func (s *Segmenter) Step(xCurr []float64) (StepResult, error) {
	if !s.running {
		return StepResult{}, fmt.Errorf("%w: Step before Begin", ErrInvalidState)
	}
	if len(xCurr) != s.dim {
		return StepResult{}, &prior.DimensionError{Want: s.dim, Got: len(xCurr)}
	}

	res := s.res
	t := s.t
	minMem := s.cfg.MinimizeMemory

	res.LogLike = append(res.LogLike, filledRow(s.kMax, math.Inf(-1)))
	res.LogPrior = append(res.LogPrior, filledRow(s.kMax, math.Inf(-1)))
	res.LogBoundary = append(res.LogBoundary, 0)
	if !minMem {
		res.Post = append(res.Post, filledRow(s.kMax, 0))
		res.Predicted = append(res.Predicted, filledRow(s.dim, 0))
		res.PredErr = append(res.PredErr, 0)
	}

	pr := s.sticky.Unnormalized(s.state, s.prevK)
	nActive := prior.Active(pr)

	lik := make([]float64, nActive)
	for k := 0; k < nActive; k++ {
		m, err := s.ensure(k)
		if err != nil {
			return StepResult{}, err
		}
		if k == s.prevK {
			if s.prevX == nil {
				return StepResult{}, fmt.Errorf("%w: transition likelihood at step %d", ErrInvalidState, t)
			}
			lik[k] = m.TransitionLikelihood(s.prevX, xCurr)
			// The same type could also be restarting from scratch.
			s.likRestart = m.StartLikelihood(xCurr)
		} else {
			lik[k] = m.StartLikelihood(xCurr)
		}
	}

	post := make([]float64, nActive)
	for k := 0; k < nActive; k++ {
		post[k] = math.Log(pr[k]) + lik[k]
	}

	if s.prevK != prior.NoType {
		// Restarting forfeits the continuity credit, so the restart
		// hypothesis is priced without the stickiness bonus. The type
		// slot carries the MAP of continue-vs-restart.
		s.restartPost = s.likRestart + math.Log(pr[s.prevK]-s.cfg.Lambda)
		s.repeatPost = post[s.prevK]
		if s.restartPost > s.repeatPost {
			post[s.prevK] = s.restartPost
		}
	}

	kWin := argmaxLowest(post)
	boundary := kWin != s.prevK || s.restartPost > s.repeatPost

	// Boundary probability: everything except plain continuation.
	if s.prevK != prior.NoType {
		post[s.prevK] = s.restartPost
	}
	logBoundary := logSumExp(post) - logSumExp2(logSumExp(post), s.repeatPost)
	res.LogBoundary[t] = logBoundary

	if s.prevK != prior.NoType {
		// Diagnostic posterior over types, ignoring the boundary
		// question. Both hypotheses already received the lambda bonus,
		// so the prior gives half of it back.
		post[s.prevK] = logSumExp2(s.repeatPost, s.restartPost)
		pr[s.prevK] -= s.cfg.Lambda / 2
		lik[s.prevK] = logSumExp2(lik[s.prevK], s.likRestart)

		p := make([]float64, nActive)
		for k := 0; k < nActive; k++ {
			p[k] = math.Log(pr[k]) + lik[k]
		}
		z := logSumExp(p)
		if !minMem {
			for k := 0; k < nActive; k++ {
				res.Post[t][k] = math.Exp(p[k] - z)
			}
		}
		for k := 0; k < nActive; k++ {
			res.LogLike[t][k] = lik[k]
			res.LogPrior[t][k] = math.Log(pr[k])
		}
	} else {
		res.LogLike[t][0] = 0
		res.LogPrior[t][0] = math.Log(s.cfg.Alpha)
		if !minMem {
			res.Post[t][0] = 1
		}
	}

	if !minMem && s.prevK != prior.NoType {
		m := s.reg.Get(s.prevK)
		xHat := m.PredictFromContext(s.prevX)
		copy(res.Predicted[t], xHat)
		res.PredErr[t] = euclidean(xCurr, xHat)
	}

	s.state.Observe(kWin, 1)
	mWin, err := s.ensure(kWin)
	if err != nil {
		return StepResult{}, err
	}
	if boundary {
		mWin.NewOccurrence()
		mWin.UpdateFromStart(xCurr)
	} else {
		if s.prevX == nil {
			return StepResult{}, fmt.Errorf("%w: continuation update at step %d", ErrInvalidState, t)
		}
		mWin.UpdateFromTransition(s.prevX, xCurr)
	}

	s.prevX = cloneVec(xCurr)
	s.prevK = kWin
	s.t++

	return StepResult{
		Type:         kWin,
		Boundary:     boundary,
		BoundaryProb: math.Exp(logBoundary),
	}, nil
}

// Finish derives the post-hoc readouts (boundary probabilities, best
// type per step, log loss, Bayesian surprise) and returns the run's
// results. With MinimizeMemory set, all event models are released.
func (s *Segmenter) Finish() *Results {
	if !s.running {
		return s.res
	}
	s.running = false

	res := s.res
	finalizeStreaming(res)

	logging.Info("segmentation run complete",
		"observations", s.t,
		"types", s.state.Types(),
		"boundaries", countBoundaries(res.BoundaryProb))

	if s.cfg.MinimizeMemory {
		s.teardown()
	}
	return res
}

// Run consumes a whole observation matrix and returns the accumulated
// results. The expected number of event types defaults to the
// observation count.
func (s *Segmenter) Run(x [][]float64) (*Results, error) {
	return s.RunWithHint(x, 0)
}

// RunWithHint is Run with an explicit maximum-type hint; a hint of 0 or
// less falls back to the observation count.
func (s *Segmenter) RunWithHint(x [][]float64, kHint int) (*Results, error) {
	n := len(x)
	if n == 0 {
		return &Results{}, nil
	}
	if kHint <= 0 {
		kHint = n
	}
	if err := s.Begin(len(x[0]), kHint); err != nil {
		return nil, err
	}
	for _, row := range x {
		if _, err := s.Step(row); err != nil {
			return nil, err
		}
	}
	return s.Finish(), nil
}

// Pretrain runs a supervised pass over labeled observations, seeding the
// per-type models and counts before unsupervised inference. types holds
// the event label per observation; boundaries flags the first scene of
// each event token. The trailing observation state is cleared afterward.
func (s *Segmenter) Pretrain(x [][]float64, types []int, boundaries []bool) error {
	if len(x) != len(types) || len(x) != len(boundaries) {
		return fmt.Errorf("segment: pretrain inputs disagree: %d observations, %d types, %d boundaries",
			len(x), len(types), len(boundaries))
	}
	if len(x) == 0 {
		return nil
	}

	maxType := 0
	for _, k := range types {
		if k > maxType {
			maxType = k
		}
	}
	if err := s.state.Update(len(x), len(x[0]), maxType+1); err != nil {
		return err
	}

	for i, xCurr := range x {
		if len(xCurr) != s.state.Dim() {
			return &prior.DimensionError{Want: s.state.Dim(), Got: len(xCurr)}
		}
		k := types[i]
		m, err := s.ensure(k)
		if err != nil {
			return err
		}

		if boundaries[i] {
			m.NewOccurrence()
			m.UpdateFromStart(xCurr)
		} else {
			if s.prevX == nil {
				return fmt.Errorf("%w: pretrain continuation at step %d", ErrInvalidState, i)
			}
			m.UpdateFromTransition(s.prevX, xCurr)
		}
		s.state.Observe(k, 1)

		s.prevX = cloneVec(xCurr)
		s.prevK = k
	}

	// Pretraining must not leak a trailing context into inference.
	s.prevX = nil
	s.prevK = prior.NoType

	logging.Info("pretraining complete", "observations", len(x), "types", maxType+1)
	return nil
}

// finalizeStreaming derives the post-hoc readouts: boundary
// probabilities, best type per step, log loss, and Bayesian surprise.
func finalizeStreaming(res *Results) {
	n := len(res.LogLike)
	res.BoundaryProb = make([]float64, n)
	res.BestType = make([]int, n)
	res.LogLoss = make([]float64, n)
	for t := 0; t < n; t++ {
		res.BoundaryProb[t] = math.Exp(res.LogBoundary[t])

		row := make([]float64, len(res.LogLike[t]))
		for k := range row {
			row[k] = res.LogLike[t][k] + res.LogPrior[t][k]
		}
		res.BestType[t] = argmaxLowest(row)
		res.LogLoss[t] = logSumExp(row)
	}
	res.Surprise = bayesianSurprise(res.LogLike, res.LogPrior)
}

func countBoundaries(probs []float64) int {
	n := 0
	for _, p := range probs {
		if p > 0.5 {
			n++
		}
	}
	return n
}

func cloneVec(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}
