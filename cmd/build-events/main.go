// One-shot tool: build per-year labeled event files from the cleaned tick
// partitions.
//
// Usage:
//
//	go run cmd/build-events/main.go [-source ticks-clean]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"microlab/internal/config"
	"microlab/internal/events"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
	source := flag.String("source", string(store.TicksClean), "tick partition to read")
	flag.Parse()

	cfgPath := "config/pipeline.yaml"
	if p := os.Getenv("MICROLAB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	layout := store.Layout{DataDir: cfg.Storage.DataDir, Symbol: cfg.Symbol}
	ecfg := events.Config{ThresholdNext: cfg.Events.ThresholdNext}

	counters, rows, err := events.Run(context.Background(), ecfg, layout, store.TickKind(*source), cfg.Winsor.Workers, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	logger.Info("event files written",
		"years", len(rows),
		"emitted", counters.Emitted,
		"dropped_boundary", counters.DroppedBoundary,
		"dropped_bigmove", counters.DroppedBigMove,
	)
}
