// Package source loads observation sequences for the segmentation CLI:
// plain numeric CSVs, YAML manifests describing multi-file datasets, and
// a rate-limited replayer that simulates a live observation stream.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/eventseg/internal/logging"
)

// Manifest describes a dataset: a streaming observation file, or a list
// of pre-segmented span files, with an optional supervised pretraining
// section. Relative paths resolve against the manifest's directory.
type Manifest struct {
	// Observations is a CSV of rows × dimensions for streaming mode.
	Observations string `yaml:"observations,omitempty"`

	// Spans lists one CSV per event token for token mode.
	Spans []string `yaml:"spans,omitempty"`

	// Pretrain optionally seeds the models before inference.
	Pretrain *Pretrain `yaml:"pretrain,omitempty"`
}

// Pretrain points at labeled observations: a CSV of scenes and a CSV of
// matching "type,boundary" rows.
type Pretrain struct {
	Observations string `yaml:"observations"`
	Labels       string `yaml:"labels"`
}

// LoadManifest parses a YAML manifest and resolves its paths.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	m.Observations = resolve(dir, m.Observations)
	for i, s := range m.Spans {
		m.Spans[i] = resolve(dir, s)
	}
	if m.Pretrain != nil {
		m.Pretrain.Observations = resolve(dir, m.Pretrain.Observations)
		m.Pretrain.Labels = resolve(dir, m.Pretrain.Labels)
	}
	return &m, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// LoadCSV reads a numeric CSV into an observation matrix. A single
// leading non-numeric row is treated as a header and skipped.
func LoadCSV(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var out [][]float64
	for i, rec := range records {
		row := make([]float64, len(rec))
		ok := true
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			row[j] = v
		}
		if !ok {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%s: non-numeric value on row %d", path, i+1)
		}
		out = append(out, row)
	}
	return out, nil
}

// LoadLabels reads a pretraining label CSV of "type,boundary" rows,
// where boundary is 0 or 1.
func LoadLabels(path string) (types []int, boundaries []bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, rec := range records {
		if len(rec) != 2 {
			return nil, nil, fmt.Errorf("%s: row %d: want 2 fields, got %d", path, i+1, len(rec))
		}
		k, errK := strconv.Atoi(rec[0])
		b, errB := strconv.Atoi(rec[1])
		if errK != nil || errB != nil {
			if i == 0 {
				continue // header
			}
			return nil, nil, fmt.Errorf("%s: non-numeric label on row %d", path, i+1)
		}
		types = append(types, k)
		boundaries = append(boundaries, b != 0)
	}
	return types, boundaries, nil
}

// LoadSpans loads every span file concurrently, preserving order.
func LoadSpans(ctx context.Context, paths []string) ([][][]float64, error) {
	spans := make([][][]float64, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			span, err := LoadCSV(path)
			if err != nil {
				return err
			}
			spans[i] = span
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Debug("spans loaded", "count", len(spans))
	return spans, nil
}

// Replayer paces an observation matrix through a callback, simulating a
// live stream. Pacing happens outside the inference loop proper: the
// callback runs after each permitted row.
type Replayer struct {
	limiter *rate.Limiter
}

// NewReplayer creates a replayer emitting ratePerSec rows per second;
// a rate of 0 or less disables pacing.
func NewReplayer(ratePerSec float64) *Replayer {
	if ratePerSec <= 0 {
		return &Replayer{}
	}
	return &Replayer{limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1)}
}

// Replay feeds rows to fn in order, honoring the rate limit and the
// context. It stops on the first error from fn.
func (r *Replayer) Replay(ctx context.Context, x [][]float64, fn func(row []float64) error) error {
	for i, row := range x {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("replay interrupted at row %d: %w", i, err)
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
