package denoise

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"microlab/internal/pipeline"
	"microlab/internal/store"
)

// Run filters each year partition of the source tick store into the cleaned
// store. Days never span year files, so years clean independently; per-year
// reports merge into one at the end.
func Run(ctx context.Context, cfg Config, layout store.Layout, source store.TickKind, workers int, log *slog.Logger) (*Report, map[int]int64, error) {
	years, err := layout.ListYears(source)
	if err != nil {
		return nil, nil, pipeline.Fail("denoise", err)
	}

	var (
		mu     sync.Mutex
		report = NewReport(cfg.MaxExamples)
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
			d := New(cfg)
			pw := store.NewPartitionedWriter[store.TickRecord](func(y int) string {
				return layout.TickPath(store.TicksClean, y)
			})

			var kept int64
			err := store.ScanFile[store.TickRecord](inPath, func(batch []store.TickRecord) error {
				for _, rec := range batch {
					if !d.Keep(rec.Tick()) {
						continue
					}
					if err := pw.Write(year, rec); err != nil {
						return err
					}
					kept++
				}
				return nil
			})
			if err != nil {
				pw.Close()
				return pipeline.FailShard("denoise", inPath, err)
			}
			if err := pw.Close(); err != nil {
				return pipeline.FailShard("denoise", inPath, err)
			}

			mu.Lock()
			report.Merge(d.Report())
			rows[year] = kept
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	totals := report.Totals()
	log.Info("denoise complete",
		"kept", totals.Kept,
		"by_delta", totals.ByDelta,
		"by_level", totals.ByLevel,
	)
	return report, rows, nil
}

// WriteReportFile writes the denoise report under the reports directory.
func WriteReportFile(layout store.Layout, report *Report) error {
	path := layout.ReportPath("denoise.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.Write(f)
}
