package backtest

import (
	"context"
	"log/slog"

	"microlab/internal/histogram"
	"microlab/internal/pipeline"
	"microlab/internal/store"
)

// YearResult summarizes one backtested year.
type YearResult struct {
	Year   int
	Trades int64
	Days   int
	Net    float64
	Skips  SkipCounters
}

// Run replays every event year through the strategy, writing one trades
// table and one daily table per year. Cumulative net return starts fresh
// each year.
func Run(ctx context.Context, cfg StrategyConfig, model *histogram.Model, layout store.Layout, log *slog.Logger) ([]YearResult, error) {
	years, err := layout.ListEventYears()
	if err != nil {
		return nil, pipeline.Fail("backtest", err)
	}

	var results []YearResult
	for _, year := range years {
		if ctx.Err() != nil {
			return nil, pipeline.Fail("backtest", ctx.Err())
		}

		res, err := runYear(cfg, model, layout, year)
		if err != nil {
			return nil, err
		}
		results = append(results, res)

		log.Info("year backtested",
			"year", year,
			"trades", res.Trades,
			"days", res.Days,
			"net", res.Net,
		)
	}
	return results, nil
}

func runYear(cfg StrategyConfig, model *histogram.Model, layout store.Layout, year int) (YearResult, error) {
	inPath := layout.EventPath(year)

	tw, err := NewTradeWriter(layout.TradesPath(year))
	if err != nil {
		return YearResult{}, pipeline.FailShard("backtest", inPath, err)
	}

	bt := NewBacktester(cfg, model, tw.Write)

	err = store.ScanFile[store.EventRecord](inPath, func(batch []store.EventRecord) error {
		for _, rec := range batch {
			if err := bt.Push(rec.Event()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tw.Close()
		return YearResult{}, pipeline.FailShard("backtest", inPath, err)
	}

	rows := bt.FinalizeYear()
	if err := tw.Close(); err != nil {
		return YearResult{}, pipeline.FailShard("backtest", inPath, err)
	}
	if err := WriteDailyTable(layout.DailyPath(year), rows); err != nil {
		return YearResult{}, pipeline.FailShard("backtest", inPath, err)
	}

	res := YearResult{
		Year:   year,
		Trades: bt.Trades(),
		Days:   len(rows),
		Skips:  bt.Skips(),
	}
	if len(rows) > 0 {
		res.Net = rows[len(rows)-1].CumulativeNet
	}
	return res, nil
}
