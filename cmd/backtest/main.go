// One-shot tool: replay labeled events through the state-conditioned
// single-step strategy and write per-year trade and daily PnL tables.
//
// Usage:
//
//	go run cmd/backtest/main.go -model path/to/model.json [-strategy strategy.json]
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"microlab/internal/backtest"
	"microlab/internal/config"
	"microlab/internal/histogram"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
	modelPath := flag.String("model", "", "histogram model file (required)")
	strategyPath := flag.String("strategy", "", "strategy config JSON (optional)")
	flag.Parse()

	if *modelPath == "" {
		log.Fatalf("-model is required")
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

	model, err := histogram.Load(*modelPath)
	if err != nil {
		log.Fatalf("loading model: %v", err)
	}

	scfg := backtest.DefaultStrategyConfig()
	if *strategyPath != "" {
		scfg, err = backtest.LoadStrategyConfig(*strategyPath)
		if err != nil {
			log.Fatalf("loading strategy config: %v", err)
		}
	}
	logger.Info("strategy", "edge_mode", scfg.EdgeMode.String(),
		"fee_price", scfg.FeePrice, "slip_price", scfg.SlipPrice)

	layout := store.Layout{DataDir: cfg.Storage.DataDir, Symbol: cfg.Symbol}

	results, err := backtest.Run(context.Background(), scfg, model, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	var trades int64
	for _, r := range results {
		trades += r.Trades
	}
	logger.Info("backtest complete", "years", len(results), "trades", trades)
}
