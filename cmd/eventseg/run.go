package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/abelbrown/eventseg/internal/segment"
	"github.com/abelbrown/eventseg/internal/source"
	"github.com/abelbrown/eventseg/internal/store"
)

func runStream() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	input := fs.String("input", "", "Observation CSV, or YAML manifest (required)")
	alpha := fs.Float64("alpha", -1, "sCRP concentration parameter (default from config)")
	lambda := fs.Float64("lambda", -1, "sCRP stickiness parameter (default from config)")
	model := fs.String("model", "", "Event model kind: gaussian or knn (default from config)")
	kHint := fs.Int("k", 0, "Maximum number of event types (0 = observation count)")
	minMem := fs.Bool("minmem", false, "Minimize memory: skip diagnostics, release models at run end")
	dbPath := fs.String("db", "", "Run store path (default from config)")
	noSave := fs.Bool("nosave", false, "Skip persisting the run")
	replayRate := fs.Float64("replay-rate", 0, "Replay observations at this rate per second, printing live decisions")
	fs.Parse(os.Args[1:])

	if *input == "" {
		log.Fatal("run: -input is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := loadConfig()
	if *alpha >= 0 {
		cfg.Engine.Alpha = *alpha
	}
	if *lambda >= 0 {
		cfg.Engine.Lambda = *lambda
	}
	if *replayRate == 0 {
		*replayRate = cfg.Replay.RatePerSec
	}

	// Resolve the input: a manifest may carry pretraining data alongside
	// the observation file.
	obsPath := *input
	var pretrain *source.Pretrain
	if strings.HasSuffix(*input, ".yaml") || strings.HasSuffix(*input, ".yml") {
		manifest, err := source.LoadManifest(*input)
		if err != nil {
			log.Fatalf("Failed to load manifest: %v", err)
		}
		if manifest.Observations == "" {
			log.Fatal("run: manifest has no observations entry (use 'eventseg tokens' for span datasets)")
		}
		obsPath = manifest.Observations
		pretrain = manifest.Pretrain
	}

	x, err := source.LoadCSV(obsPath)
	if err != nil {
		log.Fatalf("Failed to load observations: %v", err)
	}
	if len(x) == 0 {
		log.Fatal("run: no observations")
	}

	factory, modelName := modelFactory(cfg, *model)
	seg := segment.New(segment.Config{
		Alpha:          cfg.Engine.Alpha,
		Lambda:         cfg.Engine.Lambda,
		Factory:        factory,
		MinimizeMemory: *minMem || cfg.Engine.MinimizeMemory,
	})
	defer seg.Teardown()

	if pretrain != nil {
		px, err := source.LoadCSV(pretrain.Observations)
		if err != nil {
			log.Fatalf("Failed to load pretraining observations: %v", err)
		}
		types, boundaries, err := source.LoadLabels(pretrain.Labels)
		if err != nil {
			log.Fatalf("Failed to load pretraining labels: %v", err)
		}
		if err := seg.Pretrain(px, types, boundaries); err != nil {
			log.Fatalf("Pretraining failed: %v", err)
		}
		fmt.Printf("Pretrained on %d labeled observations\n", len(px))
	}

	hint := *kHint
	if hint <= 0 {
		hint = len(x)
	}
	if err := seg.Begin(len(x[0]), hint); err != nil {
		log.Fatalf("Segmentation failed: %v", err)
	}

	replayer := source.NewReplayer(*replayRate)
	live := *replayRate > 0
	err = replayer.Replay(ctx, x, func(row []float64) error {
		step, err := seg.Step(row)
		if err != nil {
			return err
		}
		if live {
			printLiveStep(step)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Segmentation failed: %v", err)
	}
	res := seg.Finish()

	fmt.Print(renderStreamSummary(cfg.Engine.Alpha, cfg.Engine.Lambda, modelName, res))

	if !*noSave {
		st := openDB(cfg, *dbPath)
		defer st.Close()
		persistRun(st, store.Run{
			Mode:   "stream",
			Alpha:  cfg.Engine.Alpha,
			Lambda: cfg.Engine.Lambda,
			Model:  modelName,
			Steps:  len(res.BestType),
			Types:  typesDiscovered(res),
		}, res)
	}
}

func printLiveStep(step segment.StepResult) {
	marker := " "
	if step.Boundary {
		marker = "|"
	}
	fmt.Printf("%s type=%d p(boundary)=%.3f\n", marker, step.Type, step.BoundaryProb)
}
