package eventmodel

import (
	"github.com/coder/hnsw"
	"github.com/jinzhu/copier"
)

// NearestParams is the template parameter snapshot for the Nearest model.
// The transition memory itself (the HNSW graph) is per-instance and never
// shared; only the start statistics seed new instances.
type NearestParams struct {
	StartMean []float64
	StartVar  []float64
	ResVar    []float64
}

// Nearest is a nonparametric event model: it remembers observed
// transitions in an HNSW index keyed by the predecessor scene and
// predicts the successor of the nearest stored predecessor. Likelihoods
// are diagonal Gaussians around that prediction with a running residual
// variance.
type Nearest struct {
	dim       int
	neighbors int
	noise     float64
	lr        float64
	backend   *Backend

	p      NearestParams
	graph  *hnsw.Graph[int]
	succ   map[int][]float64
	nextID int
}

// NewNearestFactory returns a Factory producing Nearest models searching
// the given number of neighbors.
func NewNearestFactory(neighbors int, noiseFloor float64) Factory {
	if neighbors <= 0 {
		neighbors = 5
	}
	if noiseFloor <= 0 {
		noiseFloor = 0.05
	}
	return func(dim int) Model {
		return &Nearest{dim: dim, neighbors: neighbors, noise: noiseFloor, lr: 0.1}
	}
}

func defaultNearestParams(dim int) NearestParams {
	p := NearestParams{
		StartMean: make([]float64, dim),
		StartVar:  make([]float64, dim),
		ResVar:    make([]float64, dim),
	}
	for i := 0; i < dim; i++ {
		p.StartVar[i] = 1
		p.ResVar[i] = 1
	}
	return p
}

func (m *Nearest) initGraph() {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance
	g.M = 16
	g.EfSearch = 32
	m.graph = g
	m.succ = make(map[int][]float64)
}

// Init builds the shared backend and makes this instance the template.
func (m *Nearest) Init() *Backend {
	m.p = defaultNearestParams(m.dim)
	m.initGraph()

	var seed NearestParams
	copier.CopyWithOption(&seed, &m.p, copier.Option{DeepCopy: true})

	b := &Backend{Dim: m.dim}
	b.Seed(seed)
	m.backend = b
	return b
}

// Attach shares the template's backend and clones its start statistics.
func (m *Nearest) Attach(b *Backend) error {
	if b.Closed() {
		return ErrBackendClosed
	}
	seed, ok := b.TemplateSeed().(NearestParams)
	if !ok {
		seed = defaultNearestParams(b.Dim)
	}
	copier.CopyWithOption(&m.p, &seed, copier.Option{DeepCopy: true})
	m.dim = b.Dim
	m.backend = b
	m.initGraph()
	return nil
}

func (m *Nearest) StartLikelihood(x []float64) float64 {
	return diagLogPDF(x, m.p.StartMean, m.p.StartVar)
}

func (m *Nearest) TransitionLikelihood(xPrev, xCurr []float64) float64 {
	return diagLogPDF(xCurr, m.PredictFromContext(xPrev), m.p.ResVar)
}

func (m *Nearest) SequenceLikelihood(history [][]float64, xCurr []float64) float64 {
	if len(history) == 0 {
		return m.StartLikelihood(xCurr)
	}
	return m.TransitionLikelihood(history[len(history)-1], xCurr)
}

func (m *Nearest) UpdateFromStart(x []float64) {
	for i := range x {
		d := x[i] - m.p.StartMean[i]
		m.p.StartMean[i] += m.lr * d
		m.p.StartVar[i] += m.lr * (d*d - m.p.StartVar[i])
		if m.p.StartVar[i] < m.noise {
			m.p.StartVar[i] = m.noise
		}
	}
}

func (m *Nearest) UpdateFromTransition(xPrev, xCurr []float64) {
	// Score the residual against the pre-update prediction, then store
	// the new transition.
	pred := m.PredictFromContext(xPrev)
	for i := range xCurr {
		err := xCurr[i] - pred[i]
		m.p.ResVar[i] += m.lr * (err*err - m.p.ResVar[i])
		if m.p.ResVar[i] < m.noise {
			m.p.ResVar[i] = m.noise
		}
	}

	id := m.nextID
	m.nextID++
	m.graph.Add(hnsw.MakeNode(id, toFloat32(xPrev)))
	stored := make([]float64, len(xCurr))
	copy(stored, xCurr)
	m.succ[id] = stored
}

func (m *Nearest) NewOccurrence() {}

func (m *Nearest) PredictFromStart() []float64 {
	out := make([]float64, m.dim)
	copy(out, m.p.StartMean)
	return out
}

// PredictFromContext returns the successor of the nearest stored
// predecessor scene. With an empty memory the best guess is persistence:
// the context scene itself.
func (m *Nearest) PredictFromContext(xPrev []float64) []float64 {
	out := make([]float64, m.dim)
	if m.graph == nil || m.graph.Len() == 0 {
		copy(out, xPrev)
		return out
	}
	nodes := m.graph.Search(toFloat32(xPrev), m.neighbors)
	if len(nodes) == 0 {
		copy(out, xPrev)
		return out
	}
	succ := m.succ[nodes[0].Key]
	copy(out, succ)
	return out
}

func (m *Nearest) PredictGenerative(history [][]float64) []float64 {
	if len(history) == 0 {
		return m.PredictFromStart()
	}
	return m.PredictFromContext(history[len(history)-1])
}

func (m *Nearest) Variance() []float64 {
	out := make([]float64, m.dim)
	copy(out, m.p.ResVar)
	return out
}

func (m *Nearest) Reset() {
	m.p = NearestParams{}
	m.graph = nil
	m.succ = nil
	m.backend = nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
