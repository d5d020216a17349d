package segment

import (
	"errors"
	"math"
	"testing"

	"github.com/abelbrown/eventseg/internal/eventmodel"
)

// flatModel scores every observation identically, so decisions are
// driven purely by the clustering prior.
type flatModel struct {
	dim int
	ll  float64
}

func flatFactory(ll float64) eventmodel.Factory {
	return func(dim int) eventmodel.Model {
		return &flatModel{dim: dim, ll: ll}
	}
}

func (f *flatModel) Init() *eventmodel.Backend {
	return &eventmodel.Backend{Dim: f.dim}
}

func (f *flatModel) Attach(b *eventmodel.Backend) error {
	if b.Closed() {
		return eventmodel.ErrBackendClosed
	}
	return nil
}

func (f *flatModel) StartLikelihood(x []float64) float64 { return f.ll }
func (f *flatModel) TransitionLikelihood(xPrev, xCurr []float64) float64 {
	return f.ll
}
func (f *flatModel) SequenceLikelihood(history [][]float64, xCurr []float64) float64 {
	return f.ll
}
func (f *flatModel) UpdateFromStart(x []float64)                 {}
func (f *flatModel) UpdateFromTransition(xPrev, xCurr []float64) {}
func (f *flatModel) NewOccurrence()                              {}
func (f *flatModel) PredictFromStart() []float64                 { return make([]float64, f.dim) }
func (f *flatModel) PredictFromContext(xPrev []float64) []float64 {
	out := make([]float64, f.dim)
	copy(out, xPrev)
	return out
}
func (f *flatModel) PredictGenerative(history [][]float64) []float64 {
	return make([]float64, f.dim)
}
func (f *flatModel) Variance() []float64 {
	out := make([]float64, f.dim)
	for i := range out {
		out[i] = 1
	}
	return out
}
func (f *flatModel) Reset() {}

func constantRows(n, dim int, v float64) [][]float64 {
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, dim)
		for j := range x[i] {
			x[i][j] = v
		}
	}
	return x
}

func TestHighConcentrationSpawnsNewTypes(t *testing.T) {
	seg := New(Config{Alpha: 1e8, Lambda: 0, Factory: flatFactory(0)})
	defer seg.Teardown()

	res, err := seg.Run(constantRows(6, 2, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for i, k := range res.BestType {
		if i >= 1 && k != i {
			// Every observation opens a fresh type when the new-type
			// mass dwarfs the counts.
			t.Errorf("step %d: expected type %d, got %d", i, i, k)
		}
	}
	for i, p := range res.BoundaryProb {
		if p < 0.5 {
			t.Errorf("step %d: expected boundary, got prob %v", i, p)
		}
	}
}

func TestHighStickinessNeverSwitches(t *testing.T) {
	seg := New(Config{Alpha: 1, Lambda: 1e8, Factory: flatFactory(0)})
	defer seg.Teardown()

	res, err := seg.Run(constantRows(8, 2, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for i, k := range res.BestType {
		if k != 0 {
			t.Errorf("step %d: expected type 0, got %d", i, k)
		}
	}
	for i, p := range res.BoundaryProb[1:] {
		if p > 0.5 {
			t.Errorf("step %d: boundary prob %v despite overwhelming stickiness", i+1, p)
		}
	}
}

func TestFirstStepConventions(t *testing.T) {
	seg := New(Config{Alpha: 3, Lambda: 1, Factory: flatFactory(0)})
	defer seg.Teardown()

	res, err := seg.Run(constantRows(4, 2, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.BoundaryProb[0] != 1 {
		t.Errorf("first observation is always a boundary, got prob %v", res.BoundaryProb[0])
	}
	if res.Surprise[0] != 0 {
		t.Errorf("surprise at step 0 should be 0, got %v", res.Surprise[0])
	}
	if res.LogLike[0][0] != 0 {
		t.Errorf("step 0 log likelihood should be 0, got %v", res.LogLike[0][0])
	}
	if got, want := res.LogPrior[0][0], math.Log(3); math.Abs(got-want) > 1e-12 {
		t.Errorf("step 0 log prior should be log(alpha)=%v, got %v", want, got)
	}
	if res.Post[0][0] != 1 {
		t.Errorf("step 0 posterior should be a point mass, got %v", res.Post[0])
	}
}

func TestPosteriorRowsNormalized(t *testing.T) {
	seg := New(Config{Alpha: 5, Lambda: 2, Factory: flatFactory(-1)})
	defer seg.Teardown()

	res, err := seg.Run(constantRows(10, 3, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for t0, row := range res.Post {
		sum := 0.0
		for _, p := range row {
			if p < 0 || p > 1 {
				t.Errorf("step %d: posterior entry %v outside [0,1]", t0, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("step %d: posterior row sums to %v", t0, sum)
		}
	}
	for t0, p := range res.BoundaryProb {
		if p < 0 || p > 1 {
			t.Errorf("step %d: boundary prob %v outside [0,1]", t0, p)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	x := make([][]float64, 20)
	for i := range x {
		x[i] = []float64{math.Sin(float64(i)), math.Cos(float64(i) * 0.7)}
	}

	run := func() *Results {
		seg := New(Config{Alpha: 2, Lambda: 1, Factory: eventmodel.NewGaussianFactory(0.1, 0.05)})
		defer seg.Teardown()
		res, err := seg.Run(x)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	a, b := run(), run()
	for i := range a.BestType {
		if a.BestType[i] != b.BestType[i] {
			t.Errorf("step %d: type %d vs %d across identical runs", i, a.BestType[i], b.BestType[i])
		}
		if a.BoundaryProb[i] != b.BoundaryProb[i] {
			t.Errorf("step %d: boundary prob %v vs %v across identical runs", i, a.BoundaryProb[i], b.BoundaryProb[i])
		}
	}
}

func TestStepDimensionMismatch(t *testing.T) {
	seg := New(Config{Alpha: 1, Lambda: 1, Factory: flatFactory(0)})
	defer seg.Teardown()

	if err := seg.Begin(3, 10); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := seg.Step([]float64{1, 2, 3}); err != nil {
		t.Fatalf("step: %v", err)
	}
	if _, err := seg.Step([]float64{1, 2}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestStepBeforeBegin(t *testing.T) {
	seg := New(Config{Alpha: 1, Lambda: 1, Factory: flatFactory(0)})
	if _, err := seg.Step([]float64{1}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestMinimizeMemory(t *testing.T) {
	seg := New(Config{Alpha: 1, Lambda: 1, Factory: flatFactory(0), MinimizeMemory: true})

	res, err := seg.Run(constantRows(5, 2, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Post != nil {
		t.Error("posterior matrix should be skipped when memory is minimized")
	}
	if res.PredErr != nil {
		t.Error("prediction error should be skipped when memory is minimized")
	}
	if len(res.BestType) != 5 || len(res.BoundaryProb) != 5 {
		t.Errorf("decision outputs must survive: %d types, %d probs", len(res.BestType), len(res.BoundaryProb))
	}

	// Finish released the models; the segmenter is done.
	if _, err := seg.Step([]float64{1, 1}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after Finish, got %v", err)
	}
}

func TestPretrainInputMismatch(t *testing.T) {
	seg := New(Config{Alpha: 1, Lambda: 1, Factory: flatFactory(0)})
	defer seg.Teardown()

	err := seg.Pretrain(constantRows(3, 1, 0), []int{0, 0}, []bool{true, false, false})
	if err == nil {
		t.Fatal("expected length mismatch error")
	}
}

// twoRegime builds an observation stream that oscillates around zero for
// nA steps, then sits at a constant level for nB steps.
func twoRegime(nA, nB int) [][]float64 {
	x := make([][]float64, 0, nA+nB)
	v := 2.0
	for i := 0; i < nA; i++ {
		x = append(x, []float64{v})
		v = -v
	}
	for i := 0; i < nB; i++ {
		x = append(x, []float64{10})
	}
	return x
}

func TestPretrainedEngineRecoversSwitch(t *testing.T) {
	seg := New(Config{Alpha: 1, Lambda: 30, Factory: eventmodel.NewGaussianFactory(0.2, 0.05)})
	defer seg.Teardown()

	// Three labeled repetitions of each regime, each a fresh token.
	var x [][]float64
	var types []int
	var bounds []bool
	for rep := 0; rep < 3; rep++ {
		regime := twoRegime(10, 0)
		for i, row := range regime {
			x = append(x, row)
			types = append(types, 0)
			bounds = append(bounds, i == 0)
		}
		for i := 0; i < 10; i++ {
			x = append(x, []float64{10})
			types = append(types, 1)
			bounds = append(bounds, i == 0)
		}
	}
	if err := seg.Pretrain(x, types, bounds); err != nil {
		t.Fatalf("pretrain: %v", err)
	}

	res, err := seg.RunWithHint(twoRegime(15, 15), 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for i, k := range res.BestType {
		want := 0
		if i >= 15 {
			want = 1
		}
		if k != want {
			t.Errorf("step %d: expected type %d, got %d", i, want, k)
		}
	}

	if res.BoundaryProb[15] < 0.5 {
		t.Errorf("regime switch at step 15 should be a boundary, got prob %v", res.BoundaryProb[15])
	}
	for i := 1; i < 30; i++ {
		if i == 15 {
			continue
		}
		if res.BoundaryProb[i] > 0.5 {
			t.Errorf("step %d: spurious boundary with prob %v", i, res.BoundaryProb[i])
		}
	}

	// The switch is where prediction error spikes.
	if res.PredErr[15] < res.PredErr[14] {
		t.Errorf("prediction error should spike at the switch: %v vs %v", res.PredErr[15], res.PredErr[14])
	}
}
