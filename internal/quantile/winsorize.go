package quantile

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"microlab/internal/pipeline"
	"microlab/internal/store"
)

// Mode selects how values beyond the cutoffs are treated.
type Mode string

const (
	// ModeClip replaces out-of-range log returns with the cutoff.
	ModeClip Mode = "clip"
	// ModeDrop excludes out-of-range rows from the output.
	ModeDrop Mode = "drop"
)

// Winsorize rewrites the source tick partitions into the winsorized store,
// one output file per year. Years are independent, so each runs in its own
// goroutine with exclusive ownership of its writer.
func Winsorize(ctx context.Context, layout store.Layout, source store.TickKind, mode Mode, cut Cutoffs, workers int, log *slog.Logger) (map[int]int64, error) {
	years, err := layout.ListYears(source)
	if err != nil {
		return nil, pipeline.Fail("winsor", err)
	}

	var (
		rowsMu sync.Mutex
		rows   = make(map[int]int64)
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
			pw := store.NewPartitionedWriter[store.TickRecord](func(y int) string {
				return layout.TickPath(store.TicksWinsor, y)
			})

			var kept int64
			err := store.ScanFile[store.TickRecord](inPath, func(batch []store.TickRecord) error {
				for _, rec := range batch {
					out, keep := apply(rec, mode, cut)
					if !keep {
						continue
					}
					if err := pw.Write(year, out); err != nil {
						return err
					}
					kept++
				}
				return nil
			})
			if err != nil {
				pw.Close()
				return pipeline.FailShard("winsor", inPath, err)
			}
			if err := pw.Close(); err != nil {
				return pipeline.FailShard("winsor", inPath, err)
			}

			rowsMu.Lock()
			rows[year] = kept
			rowsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("winsorization complete", "mode", string(mode), "years", len(years))
	return rows, nil
}

func apply(rec store.TickRecord, mode Mode, cut Cutoffs) (store.TickRecord, bool) {
	if rec.LogReturn == nil {
		return rec, true
	}
	lr := float64(*rec.LogReturn)
	if lr >= cut.Low && lr <= cut.High {
		return rec, true
	}

	if mode == ModeDrop {
		return rec, false
	}

	clipped := float32(cut.Low)
	if lr > cut.High {
		clipped = float32(cut.High)
	}
	rec.LogReturn = &clipped
	return rec, true
}
