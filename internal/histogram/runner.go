package histogram

import (
	"context"
	"log/slog"

	"microlab/internal/pipeline"
	"microlab/internal/store"
)

// Fit accumulates every labeled event of every available year into a fresh
// model. Accumulation is a single sequential pass; the event files are small
// relative to tick partitions and the cells array is shared.
func Fit(ctx context.Context, symbol string, alpha float64, layout store.Layout, log *slog.Logger) (*Model, error) {
	years, err := layout.ListEventYears()
	if err != nil {
		return nil, pipeline.Fail("model", err)
	}
	if len(years) == 0 {
		return nil, pipeline.Fail("model", errNoEvents)
	}

	m := NewModel(symbol, years[0], years[len(years)-1], alpha, DefaultBinSpec())

	var rows int64
	for _, year := range years {
		if ctx.Err() != nil {
			return nil, pipeline.Fail("model", ctx.Err())
		}
		path := layout.EventPath(year)
		err := store.ScanFile[store.EventRecord](path, func(batch []store.EventRecord) error {
			for _, rec := range batch {
				m.Add(rec.Event())
				rows++
			}
			return nil
		})
		if err != nil {
			return nil, pipeline.FailShard("model", path, err)
		}
	}

	log.Info("model fitted",
		"events", rows,
		"year_lo", m.YearLo,
		"year_hi", m.YearHi,
		"alpha", alpha,
	)
	return m, nil
}

type noEventsError struct{}

func (noEventsError) Error() string { return "no event files found" }

var errNoEvents = noEventsError{}
