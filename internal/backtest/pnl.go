package backtest

import (
	"fmt"

	"microlab/internal/domain"
)

// PnlAggregator rolls trades up into daily rows and a running cumulative
// net return. Days must arrive in strictly increasing order; a regression
// is a logic invariant violation and fails the stage.
type PnlAggregator struct {
	currentDay    uint32
	count         int64
	grossSum      float64
	netSum        float64
	cumulativeNet float64

	rows []domain.DailyPnl
}

// NewPnlAggregator creates an empty aggregator.
func NewPnlAggregator() *PnlAggregator {
	return &PnlAggregator{}
}

// Observe folds one trade into the open day, flushing the previous day when
// the trading day advances.
func (p *PnlAggregator) Observe(t domain.Trade) error {
	if t.Day == 0 {
		return fmt.Errorf("pnl: trade with day 0")
	}
	if t.Day < p.currentDay {
		return fmt.Errorf("pnl: day regression %d after %d", t.Day, p.currentDay)
	}
	if len(p.rows) > 0 && t.Day <= p.rows[len(p.rows)-1].Day {
		return fmt.Errorf("pnl: day %d not after flushed day %d", t.Day, p.rows[len(p.rows)-1].Day)
	}

	if t.Day != p.currentDay {
		if p.count > 0 {
			p.flush()
		}
		p.currentDay = t.Day
	}

	p.count++
	p.grossSum += t.GrossRet
	p.netSum += t.NetRet
	p.cumulativeNet += t.NetRet
	return nil
}

func (p *PnlAggregator) flush() {
	p.rows = append(p.rows, domain.DailyPnl{
		Day:           p.currentDay,
		NumTrades:     p.count,
		GrossSum:      p.grossSum,
		NetSum:        p.netSum,
		GrossMean:     p.grossSum / float64(p.count),
		NetMean:       p.netSum / float64(p.count),
		CumulativeNet: p.cumulativeNet,
	})
	p.count = 0
	p.grossSum = 0
	p.netSum = 0
}

// Finalize flushes the last open day and returns all daily rows.
func (p *PnlAggregator) Finalize() []domain.DailyPnl {
	if p.count > 0 {
		p.flush()
	}
	return p.rows
}

// CumulativeNet returns the running sum of per-trade net returns.
func (p *PnlAggregator) CumulativeNet() float64 {
	return p.cumulativeNet
}
