// Command eventseg is the CLI for the event segmentation engine.
//
// Usage:
//
//	eventseg                Show help
//	eventseg run            Streaming segmentation over an observation CSV
//	eventseg tokens         Token-mode segmentation over pre-segmented spans
//	eventseg runs           List persisted runs
//	eventseg show <id>      Show one persisted run in detail
package main

import (
	"fmt"
	"os"

	"github.com/abelbrown/eventseg/internal/logging"
)

const usage = `eventseg: streaming event segmentation CLI

Usage:
  eventseg <command> [flags]

Commands:
  run         Streaming segmentation over an observation CSV or manifest
  tokens      Token-mode segmentation over pre-segmented span files
  runs        List persisted runs
  show        Show one persisted run in detail

Environment:
  EVENTSEG_ALPHA    sCRP concentration parameter override
  EVENTSEG_LAMBDA   sCRP stickiness parameter override
  EVENTSEG_MODEL    Event model kind: gaussian or knn
  EVENTSEG_DB       Run store path (default: ~/.eventseg/eventseg.db)

Run 'eventseg <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "eventseg: logging init failed: %v\n", err)
	}
	defer logging.Close()

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "run":
		runStream()
	case "tokens":
		runTokens()
	case "runs":
		runList()
	case "show":
		runShow()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "eventseg: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
