package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func runList() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum runs to list")
	dbPath := fs.String("db", "", "Run store path (default from config)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	st := openDB(cfg, *dbPath)
	defer st.Close()

	runs, err := st.GetRuns(*limit)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	fmt.Printf("%-36s  %-19s  %-6s  %-8s  %6s  %6s  %5s\n",
		"ID", "CREATED", "MODE", "MODEL", "ALPHA", "LAMBDA", "TYPES")
	for _, r := range runs {
		fmt.Printf("%-36s  %-19s  %-6s  %-8s  %6.2f  %6.2f  %5d\n",
			r.ID, r.Created.Format("2006-01-02 15:04:05"), r.Mode, r.Model, r.Alpha, r.Lambda, r.Types)
	}
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dbPath := fs.String("db", "", "Run store path (default from config)")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		log.Fatal("show: run ID required")
	}
	id := fs.Arg(0)

	cfg := loadConfig()
	st := openDB(cfg, *dbPath)
	defer st.Close()

	run, err := st.GetRun(id)
	if err != nil {
		log.Fatalf("Failed to load run %s: %v", id, err)
	}
	steps, err := st.GetSteps(id)
	if err != nil {
		log.Fatalf("Failed to load steps: %v", err)
	}

	fmt.Print(renderStoredRun(run, steps))
}
