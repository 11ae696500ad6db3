// One-shot tool: accumulate all labeled events into the 4-D histogram model
// and persist it with its bin spec.
//
// Usage:
//
//	go run cmd/build-model/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"microlab/internal/config"
	"microlab/internal/histogram"
	"microlab/internal/store"
	"microlab/internal/util"
)

func main() {
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

	model, err := histogram.Fit(context.Background(), cfg.Symbol, cfg.Model.Alpha, layout, logger)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	path := layout.ModelPath(model.YearLo, model.YearHi)
	if err := model.Save(path); err != nil {
		log.Fatalf("saving model: %v", err)
	}
	logger.Info("model written", "path", path)
}
