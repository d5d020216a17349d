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

func runTokens() {
	fs := flag.NewFlagSet("tokens", flag.ExitOnError)
	input := fs.String("input", "", "YAML manifest with a spans list, or comma-separated span CSVs (required)")
	alpha := fs.Float64("alpha", -1, "sCRP concentration parameter (default from config)")
	lambda := fs.Float64("lambda", -1, "sCRP stickiness parameter (default from config)")
	model := fs.String("model", "", "Event model kind: gaussian or knn (default from config)")
	diag := fs.Bool("diag", false, "Keep per-scene predictions and variances")
	minMem := fs.Bool("minmem", false, "Minimize memory: release models at run end")
	dbPath := fs.String("db", "", "Run store path (default from config)")
	noSave := fs.Bool("nosave", false, "Skip persisting the run")
	fs.Parse(os.Args[1:])

	if *input == "" {
		log.Fatal("tokens: -input is required")
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

	var paths []string
	if strings.HasSuffix(*input, ".yaml") || strings.HasSuffix(*input, ".yml") {
		manifest, err := source.LoadManifest(*input)
		if err != nil {
			log.Fatalf("Failed to load manifest: %v", err)
		}
		if len(manifest.Spans) == 0 {
			log.Fatal("tokens: manifest has no spans")
		}
		paths = manifest.Spans
	} else {
		paths = strings.Split(*input, ",")
	}

	spans, err := source.LoadSpans(ctx, paths)
	if err != nil {
		log.Fatalf("Failed to load spans: %v", err)
	}

	factory, modelName := modelFactory(cfg, *model)
	seg := segment.NewToken(segment.Config{
		Alpha:           cfg.Engine.Alpha,
		Lambda:          cfg.Engine.Lambda,
		Factory:         factory,
		MinimizeMemory:  *minMem || cfg.Engine.MinimizeMemory,
		SaveDiagnostics: *diag,
	})
	defer seg.Teardown()

	res, err := seg.Run(spans)
	if err != nil {
		log.Fatalf("Token segmentation failed: %v", err)
	}

	fmt.Print(renderTokenSummary(cfg.Engine.Alpha, cfg.Engine.Lambda, modelName, spans, res))

	if !*noSave {
		st := openDB(cfg, *dbPath)
		defer st.Close()
		persistRun(st, store.Run{
			Mode:   "token",
			Alpha:  cfg.Engine.Alpha,
			Lambda: cfg.Engine.Lambda,
			Model:  modelName,
			Steps:  len(res.BestType),
			Types:  typesDiscovered(res),
		}, res)
	}
}
