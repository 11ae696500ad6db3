// One-shot tool: aggregate raw quote files into per-year NBBO tick
// partitions on the event or clock grid.
//
// Usage:
//
//	go run cmd/nbbo-aggregate/main.go [-grid event|clock] [-from-events] file.csv.gz ...
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"microlab/internal/config"
	"microlab/internal/nbbo"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
	grid := flag.String("grid", "event", "output grid: event or clock")
	fromEvents := flag.Bool("from-events", false, "derive the clock grid from cached event-grid partitions instead of raw quotes")
	flag.Parse()

	if *grid != "event" && *grid != "clock" {
		log.Fatalf("unknown grid %q", *grid)
	}

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

	if *fromEvents {
		if *grid != "clock" {
			log.Fatalf("-from-events only makes sense with -grid clock")
		}
		if _, err := nbbo.SynthesizeClock(layout, cfg.Aggregate.MaxFillGapMs, logger); err != nil {
			log.Fatalf("error: %v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		log.Fatalf("no input files given")
	}

	openMs, _ := config.ParseClock(cfg.Session.Open)
	closeMs, _ := config.ParseClock(cfg.Session.Close)

	rcfg := nbbo.RunnerConfig{
		Inputs:       flag.Args(),
		Grid:         nbbo.GridMode(*grid),
		MaxFillGapMs: cfg.Aggregate.MaxFillGapMs,
		Workers:      cfg.Aggregate.Workers,
		Aggregator: nbbo.AggregatorConfig{
			SessionOpenMs:  openMs,
			SessionCloseMs: closeMs,
			Venues:         cfg.Aggregate.Venues,
		},
		ProgressEvery: cfg.Aggregate.ProgressEvery,
	}

	sum, err := nbbo.Run(context.Background(), rcfg, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	reportPath := layout.ReportPath("glitches.txt")
	if err := writeGlitchReport(reportPath, sum.Glitches); err != nil {
		log.Fatalf("writing glitch report: %v", err)
	}
	logger.Info("glitch report written", "path", reportPath)
}

func writeGlitchReport(path string, g *nbbo.GlitchCounts) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.WriteReport(f)
}
