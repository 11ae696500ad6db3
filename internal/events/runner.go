package events

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"microlab/internal/domain"
	"microlab/internal/pipeline"
	"microlab/internal/store"
)

// Run builds per-year labeled event files from the cleaned tick partitions.
// Labeling never crosses a day boundary, so years build independently.
func Run(ctx context.Context, cfg Config, layout store.Layout, source store.TickKind, workers int, log *slog.Logger) (Counters, map[int]int64, error) {
	years, err := layout.ListYears(source)
	if err != nil {
		return Counters{}, nil, pipeline.Fail("events", err)
	}

	var (
		mu    sync.Mutex
		total Counters
		rows  = make(map[int]int64)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, year := range years {
		year := year
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			inPath := layout.TickPath(source, year)
			pw := store.NewPartitionedWriter[store.EventRecord](func(y int) string {
				return layout.EventPath(y)
			})

			builder := NewBuilder(cfg, func(e domain.LabeledEvent) error {
				return pw.Write(year, store.NewEventRecord(e))
			})

			err := store.ScanFile[store.TickRecord](inPath, func(batch []store.TickRecord) error {
				for _, rec := range batch {
					if err := builder.Push(rec.Tick()); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				pw.Close()
				return pipeline.FailShard("events", inPath, err)
			}
			builder.Flush()
			if err := pw.Close(); err != nil {
				return pipeline.FailShard("events", inPath, err)
			}

			c := builder.Counters()
			mu.Lock()
			total.Emitted += c.Emitted
			total.DroppedBoundary += c.DroppedBoundary
			total.DroppedBigMove += c.DroppedBigMove
			rows[year] = c.Emitted
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Counters{}, nil, err
	}

	log.Info("event build complete",
		"emitted", total.Emitted,
		"dropped_boundary", total.DroppedBoundary,
		"dropped_bigmove", total.DroppedBigMove,
	)
	return total, rows, nil
}
