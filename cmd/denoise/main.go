// One-shot tool: remove implausible mid spikes from the winsorized tick
// partitions and write the cleaned store plus a removal report.
//
// Usage:
//
//	go run cmd/denoise/main.go [-source ticks-winsor]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"microlab/internal/config"
	"microlab/internal/denoise"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
	source := flag.String("source", string(store.TicksWinsor), "tick partition to read")
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

	dcfg := denoise.Config{
		MidMax:         cfg.Denoise.MidMax,
		DeltaThreshold: cfg.Denoise.DeltaThreshold,
		MaxExamples:    cfg.Denoise.MaxExamples,
	}

	report, rows, err := denoise.Run(context.Background(), dcfg, layout, store.TickKind(*source), cfg.Winsor.Workers, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	if err := denoise.WriteReportFile(layout, report); err != nil {
		log.Fatalf("writing denoise report: %v", err)
	}

	var total int64
	for _, n := range rows {
		total += n
	}
	logger.Info("cleaned partitions written", "rows", total, "years", len(rows))
}
