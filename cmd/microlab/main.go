// Pipeline driver: runs every stage in order over the given raw quote
// files. Each stage starts only after the previous one completed and its
// writes are durable; a stage failure stops the run.
//
// Usage:
//
//	go run cmd/microlab/main.go [-strategy strategy.json] file.csv.gz ...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"microlab/internal/backtest"
	"microlab/internal/config"
	"microlab/internal/denoise"
	"microlab/internal/events"
	"microlab/internal/histogram"
	"microlab/internal/nbbo"
	"microlab/internal/pipeline"
	"microlab/internal/quantile"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
	strategyPath := flag.String("strategy", "", "strategy config JSON (optional)")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("no input files given")
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

	runID := time.Now().UTC().Format("20060102T150405Z")
	rc := pipeline.NewRunContext(runID, logger)

	var runStore *store.RunStore
	if cfg.Storage.RunDBPath != "" {
		runStore, err = store.NewRunStore(cfg.Storage.RunDBPath)
		if err != nil {
			log.Fatalf("opening run store: %v", err)
		}
		defer runStore.Close()
	}

	layout := store.Layout{DataDir: cfg.Storage.DataDir, Symbol: cfg.Symbol}
	ctx := context.Background()

	record := func(stage string, started time.Time, shards int, rowsIn, rowsOut int64) {
		d := time.Since(started)
		rc.ObserveStage(stage, d)
		err := runStore.RecordStage(ctx, store.StageSummary{
			RunID:      runID,
			Stage:      stage,
			Shards:     shards,
			RowsIn:     rowsIn,
			RowsOut:    rowsOut,
			StartedAt:  started,
			DurationMs: d.Milliseconds(),
		})
		if err != nil {
			logger.Warn("recording stage summary failed", "stage", stage, "err", err)
		}
	}

	// Stage A: NBBO aggregation on the event grid.
	openMs, _ := config.ParseClock(cfg.Session.Open)
	closeMs, _ := config.ParseClock(cfg.Session.Close)
	started := time.Now()
	aggSum, err := nbbo.Run(ctx, nbbo.RunnerConfig{
		Inputs:       flag.Args(),
		Grid:         nbbo.GridEvent,
		MaxFillGapMs: cfg.Aggregate.MaxFillGapMs,
		Workers:      cfg.Aggregate.Workers,
		Aggregator: nbbo.AggregatorConfig{
			SessionOpenMs:  openMs,
			SessionCloseMs: closeMs,
			Venues:         cfg.Aggregate.Venues,
		},
		ProgressEvery: cfg.Aggregate.ProgressEvery,
	}, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	record("aggregate", started, aggSum.Shards, aggSum.Stats.Lines, aggSum.Stats.Ticks)

	if err := writeGlitchReport(layout, aggSum.Glitches); err != nil {
		log.Fatalf("writing glitch report: %v", err)
	}
	aggSum.Glitches.Each(func(k nbbo.GlitchKey, n uint64) {
		if err := runStore.RecordGlitch(ctx, runID, "aggregate", k.Category, k.Hour, n); err != nil {
			logger.Warn("recording glitch failed", "err", err)
		}
	})

	// Stage B: tail cutoffs plus winsorization.
	started = time.Now()
	cut, err := quantile.EstimateCutoffs(ctx, quantile.Config{
		QLow:      cfg.Winsor.QLow,
		QHigh:     cfg.Winsor.QHigh,
		HeapLimit: cfg.Winsor.HeapLimit,
		Workers:   cfg.Winsor.Workers,
		Source:    store.TicksEvent,
	}, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	winsorRows, err := quantile.Winsorize(ctx, layout, store.TicksEvent,
		quantile.Mode(cfg.Winsor.Mode), cut, cfg.Winsor.Workers, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	record("winsor", started, len(winsorRows), int64(cut.N), sumRows(winsorRows))

	// Stage C: spike denoising.
	started = time.Now()
	report, cleanRows, err := denoise.Run(ctx, denoise.Config{
		MidMax:         cfg.Denoise.MidMax,
		DeltaThreshold: cfg.Denoise.DeltaThreshold,
		MaxExamples:    cfg.Denoise.MaxExamples,
	}, layout, store.TicksWinsor, cfg.Winsor.Workers, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	if err := denoise.WriteReportFile(layout, report); err != nil {
		log.Fatalf("writing denoise report: %v", err)
	}
	record("denoise", started, len(cleanRows), sumRows(winsorRows), sumRows(cleanRows))

	// Stage D: labeled events.
	started = time.Now()
	counters, eventRows, err := events.Run(ctx, events.Config{
		ThresholdNext: cfg.Events.ThresholdNext,
	}, layout, store.TicksClean, cfg.Winsor.Workers, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	record("events", started, len(eventRows), sumRows(cleanRows), counters.Emitted)

	// Stage E: histogram model.
	started = time.Now()
	model, err := histogram.Fit(ctx, cfg.Symbol, cfg.Model.Alpha, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	modelPath := layout.ModelPath(model.YearLo, model.YearHi)
	if err := model.Save(modelPath); err != nil {
		log.Fatalf("saving model: %v", err)
	}
	record("model", started, 1, counters.Emitted, int64(histogram.NCells))

	// Stage F: backtest.
	scfg := backtest.DefaultStrategyConfig()
	if *strategyPath != "" {
		scfg, err = backtest.LoadStrategyConfig(*strategyPath)
		if err != nil {
			log.Fatalf("loading strategy config: %v", err)
		}
	}
	started = time.Now()
	results, err := backtest.Run(ctx, scfg, model, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	var trades int64
	for _, r := range results {
		trades += r.Trades
	}
	record("backtest", started, len(results), counters.Emitted, trades)

	if err := rc.WriteReport(os.Stdout); err != nil {
		log.Fatalf("writing timing report: %v", err)
	}
}

func sumRows(rows map[int]int64) int64 {
	var n int64
	for _, v := range rows {
		n += v
	}
	return n
}

func writeGlitchReport(layout store.Layout, g *nbbo.GlitchCounts) error {
	path := layout.ReportPath("glitches.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.WriteReport(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println("glitch report:", path)
	return nil
}
