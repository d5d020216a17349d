package segment

import (
	"fmt"
	"math"

	"github.com/abelbrown/eventseg/internal/logging"
	"github.com/abelbrown/eventseg/internal/prior"
)

// TokenSegmenter infers event-type identity for pre-segmented spans:
// each span is known a priori to be one event token, and the type is
// committed only once the whole span has been scored. No model is
// mutated until a span's cumulative likelihoods are complete.
type TokenSegmenter struct {
	core
	res *Results
}

// NewToken creates a token-mode segmenter.
func NewToken(cfg Config) *TokenSegmenter {
	return &TokenSegmenter{core: newCore(cfg)}
}

// Results returns the accumulated per-token results so far.
func (ts *TokenSegmenter) Results() *Results {
	return ts.res
}

// Teardown releases every event model and the shared backend state.
func (ts *TokenSegmenter) Teardown() {
	ts.teardown()
}

// InitSpans fixes the dimensionality from the spans and instantiates the
// template model when no previous token has been committed.
func (ts *TokenSegmenter) InitSpans(spans [][][]float64) error {
	total := 0
	width := 0
	for _, span := range spans {
		total += len(span)
		if width == 0 && len(span) > 0 {
			width = len(span[0])
		}
	}
	if total == 0 {
		return ErrEmptySpan
	}
	if err := ts.state.Update(total, width, 0); err != nil {
		return err
	}
	if ts.prevK == prior.NoType {
		if _, err := ts.ensure(0); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes a list of spans in order and returns the accumulated
// results, one decision row per token.
func (ts *TokenSegmenter) Run(spans [][][]float64) (*Results, error) {
	if err := ts.InitSpans(spans); err != nil {
		return nil, err
	}
	for i, span := range spans {
		if err := ts.ObserveSpan(span); err != nil {
			return nil, fmt.Errorf("span %d: %w", i, err)
		}
	}
	logging.Info("token segmentation complete", "tokens", len(spans), "types", ts.state.Types())
	if ts.cfg.MinimizeMemory {
		ts.teardown()
	}
	return ts.res, nil
}

// ObserveSpan scores one full event token against every active type,
// commits the winner at span end, and replays the span into the winning
// model. Cumulative evidence only: no model update happens mid-span.
func (ts *TokenSegmenter) ObserveSpan(span [][]float64) error {
	nScene := len(span)
	if nScene == 0 {
		return ErrEmptySpan
	}

	// Reserve a slot for "this token is a brand-new type".
	if err := ts.state.Update(nScene, len(span[0]), ts.state.Types()+1); err != nil {
		return err
	}
	kMax := ts.state.Types()
	d := ts.state.Dim()

	if ts.res == nil {
		ts.res = &Results{}
	}
	ts.res.growTypes(kMax)
	ts.res.appendTokenRow(kMax)
	row := len(ts.res.LogLike) - 1

	pr := ts.sticky.Unnormalized(ts.state, ts.prevK)
	nActive := prior.Active(pr)

	for k := 0; k < nActive; k++ {
		if _, err := ts.ensure(k); err != nil {
			return err
		}
	}

	lik := newMatrix(nScene, nActive, 0)
	var xHat, sigma [][]float64
	if ts.cfg.SaveDiagnostics {
		xHat = newMatrix(nScene, d, 0)
		sigma = newMatrix(nScene, d, 0)
	}

	for i, xCurr := range span {
		if len(xCurr) != d {
			return &prior.DimensionError{Want: d, Got: len(xCurr)}
		}
		first := i == 0

		if ts.cfg.SaveDiagnostics {
			// Best guess so far; a readout only, never part of the
			// final decision.
			kWithin := ts.bestGuess(pr, lik, i, nActive)
			m := ts.reg.Get(kWithin)
			if first {
				copy(xHat[i], m.PredictFromStart())
			} else {
				copy(xHat[i], m.PredictGenerative(span[:i]))
			}
			copy(sigma[i], m.Variance())
		}

		for k := 0; k < nActive; k++ {
			m := ts.reg.Get(k)
			if first {
				lik[i][k] = m.StartLikelihood(xCurr)
			} else {
				lik[i][k] = m.SequenceLikelihood(span[:i], xCurr)
			}
		}
	}

	// Commit: cumulative evidence plus the prior, computed once.
	logPost := make([]float64, nActive)
	for k := 0; k < nActive; k++ {
		sum := 0.0
		for i := 0; i < nScene; i++ {
			sum += lik[i][k]
		}
		ts.res.LogLike[row][k] = sum
		ts.res.LogPrior[row][k] = math.Log(pr[k])
		logPost[k] = sum + ts.res.LogPrior[row][k]
	}
	z := logSumExp(logPost)
	for k := 0; k < nActive; k++ {
		ts.res.Post[row][k] = math.Exp(logPost[k] - z)
	}

	kWin := argmaxLowest(logPost)
	ts.state.Observe(kWin, float64(nScene))
	ts.prevK = kWin

	// Replay the span into the winning model only, now that the whole
	// token has been scored.
	m := ts.reg.Get(kWin)
	m.UpdateFromStart(span[0])
	xPrev := span[0]
	for _, xCurr := range span[1:] {
		m.UpdateFromTransition(xPrev, xCurr)
		xPrev = xCurr
	}

	ts.res.BestType = append(ts.res.BestType, kWin)
	ts.res.LogLoss = append(ts.res.LogLoss, z)

	if ts.cfg.SaveDiagnostics {
		ts.res.Predicted = append(ts.res.Predicted, xHat...)
		ts.res.Variances = append(ts.res.Variances, sigma...)
		for i := 0; i < nScene; i++ {
			sceneRow := filledRow(kMax, math.Inf(-1))
			copy(sceneRow, lik[i])
			ts.res.SceneLogLike = append(ts.res.SceneLogLike, sceneRow)
		}
	}
	return nil
}

// bestGuess is the running argmax of prior-plus-cumulative-likelihood
// over the scenes seen so far in the current span.
func (ts *TokenSegmenter) bestGuess(pr []float64, lik [][]float64, upto, nActive int) int {
	if upto == 0 {
		return argmaxLowest(pr[:nActive])
	}
	score := make([]float64, nActive)
	for k := 0; k < nActive; k++ {
		score[k] = math.Log(pr[k])
		for i := 0; i < upto; i++ {
			score[k] += lik[i][k]
		}
	}
	return argmaxLowest(score)
}
