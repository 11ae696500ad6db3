// One-shot tool: estimate the extreme tail cutoffs of the log-return
// distribution and winsorize the tick partitions against them.
//
// Usage:
//
//	go run cmd/tail-quantiles/main.go [-source ticks-event] [-estimate-only]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"microlab/internal/config"
	"microlab/internal/quantile"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
	source := flag.String("source", string(store.TicksEvent), "tick partition to read")
	estimateOnly := flag.Bool("estimate-only", false, "compute cutoffs without rewriting partitions")
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

	qcfg := quantile.Config{
		QLow:      cfg.Winsor.QLow,
		QHigh:     cfg.Winsor.QHigh,
		HeapLimit: cfg.Winsor.HeapLimit,
		Workers:   cfg.Winsor.Workers,
		Source:    store.TickKind(*source),
	}

	ctx := context.Background()
	cut, err := quantile.EstimateCutoffs(ctx, qcfg, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	if *estimateOnly {
		return
	}

	rows, err := quantile.Winsorize(ctx, layout, qcfg.Source, quantile.Mode(cfg.Winsor.Mode), cut, cfg.Winsor.Workers, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	var total int64
	for _, n := range rows {
		total += n
	}
	logger.Info("winsorized partitions written", "rows", total, "years", len(rows))
}
