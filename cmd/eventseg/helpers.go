package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/abelbrown/eventseg/internal/config"
	"github.com/abelbrown/eventseg/internal/eventmodel"
	"github.com/abelbrown/eventseg/internal/segment"
	"github.com/abelbrown/eventseg/internal/store"
)

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// openDB opens the run store, creating the data directory if needed.
func openDB(cfg *config.Config, override string) *store.Store {
	path := cfg.DBPath
	if override != "" {
		path = override
	}
	if path == "" {
		path = config.DefaultDBPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.Open(path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return st
}

// modelFactory builds the event model factory named by kind.
func modelFactory(cfg *config.Config, kind string) (eventmodel.Factory, string) {
	if kind == "" {
		kind = cfg.Model.Kind
	}
	switch kind {
	case "", "gaussian":
		return eventmodel.NewGaussianFactory(cfg.Model.LearningRate, cfg.Model.NoiseFloor), "gaussian"
	case "knn":
		return eventmodel.NewNearestFactory(cfg.Model.Neighbors, cfg.Model.NoiseFloor), "knn"
	default:
		log.Fatalf("Unknown model kind %q (want gaussian or knn)", kind)
		return nil, ""
	}
}

// storeSteps flattens a Results into storable per-step rows.
func storeSteps(res *segment.Results) []store.Step {
	steps := make([]store.Step, len(res.BestType))
	for i := range steps {
		steps[i] = store.Step{
			Idx:      i,
			BestType: res.BestType[i],
		}
		if i < len(res.BoundaryProb) {
			steps[i].BoundaryProb = res.BoundaryProb[i]
		}
		if i < len(res.Surprise) {
			steps[i].Surprise = finiteOr(res.Surprise[i], 0)
		}
		if i < len(res.PredErr) {
			steps[i].PredErr = res.PredErr[i]
		}
	}
	return steps
}

func finiteOr(v, fallback float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fallback
	}
	return v
}

func typesDiscovered(res *segment.Results) int {
	max := -1
	for _, k := range res.BestType {
		if k > max {
			max = k
		}
	}
	return max + 1
}

func persistRun(st *store.Store, run store.Run, res *segment.Results) {
	id, err := st.SaveRun(run, storeSteps(res))
	if err != nil {
		log.Fatalf("Failed to save run: %v", err)
	}
	fmt.Printf("\nSaved run %s\n", id)
}
