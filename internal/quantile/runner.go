package quantile

import (
	"context"
	"log/slog"
	"sync"

	"microlab/internal/pipeline"
	"microlab/internal/store"
)

// Config controls the tail estimation stage.
type Config struct {
	QLow      float64
	QHigh     float64
	HeapLimit int
	Workers   int
	Source    store.TickKind
}

// EstimateCutoffs scans the log returns of every year partition of the
// source tick store and resolves the tail cutoffs. Year shards are read by
// parallel workers holding private sketches; the sketches combine into the
// global one under a single merge lock.
func EstimateCutoffs(ctx context.Context, cfg Config, layout store.Layout, log *slog.Logger) (Cutoffs, error) {
	years, err := layout.ListYears(cfg.Source)
	if err != nil {
		return Cutoffs{}, pipeline.Fail("winsor", err)
	}

	global := NewTailSketch(cfg.HeapLimit)

	var (
		mergeMu  sync.Mutex
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	yearCh := make(chan int, len(years))
	for _, y := range years {
		yearCh <- y
	}
	close(yearCh)

	workers := min(max(cfg.Workers, 1), max(len(years), 1))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for year := range yearCh {
				if ctx.Err() != nil {
					return
				}

				local := NewTailSketch(cfg.HeapLimit)
				path := layout.TickPath(cfg.Source, year)
				err := store.ScanFile[store.TickRecord](path, func(batch []store.TickRecord) error {
					for i := range batch {
						if batch[i].LogReturn != nil {
							local.Add(float64(*batch[i].LogReturn))
						}
					}
					return nil
				})
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = pipeline.FailShard("winsor", path, err)
					}
					errMu.Unlock()
					return
				}

				mergeMu.Lock()
				global.Merge(local)
				mergeMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return Cutoffs{}, firstErr
	}

	cut := global.Resolve(cfg.QLow, cfg.QHigh)
	if !cut.LowExact || !cut.HighExact {
		log.Warn("quantile outside captured tail; returning heap boundary",
			"low_exact", cut.LowExact,
			"high_exact", cut.HighExact,
			"heap_limit", cfg.HeapLimit,
			"n", cut.N,
		)
	}
	log.Info("tail cutoffs resolved",
		"q_low", cfg.QLow,
		"q_high", cfg.QHigh,
		"cut_low", cut.Low,
		"cut_high", cut.High,
		"n", cut.N,
	)
	return cut, nil
}
