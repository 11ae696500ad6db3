package backtest

import (
	"math"

	"microlab/internal/domain"
	"microlab/internal/histogram"
)

// SkipCounters tallies why candidate entries produced no trade.
type SkipCounters struct {
	Invalid   int64 // non-positive mid or spread
	Magnitude int64 // |D| below the configured floor
	Edge      int64 // edge gate (legacy EE<=0 or fee+slip+margin not cleared)
	Wait      int64 // expected waiting time above the cap
	Boundary  int64 // next event on another day
}

// Backtester streams labeled events in timestamp order and opens one-step
// trades on adjacent same-day pairs. The model is read-only.
type Backtester struct {
	cfg   StrategyConfig
	model *histogram.Model
	pnl   *PnlAggregator
	emit  func(domain.Trade) error

	skips   SkipCounters
	trades  int64
	pending *domain.LabeledEvent
}

// NewBacktester creates a Backtester that forwards each trade to emit and
// into the PnL aggregator.
func NewBacktester(cfg StrategyConfig, model *histogram.Model, emit func(domain.Trade) error) *Backtester {
	return &Backtester{
		cfg:   cfg,
		model: model,
		pnl:   NewPnlAggregator(),
		emit:  emit,
	}
}

// Push feeds the next event. The previous event becomes a potential entry
// once its same-day successor is known.
func (b *Backtester) Push(e domain.LabeledEvent) error {
	prev := b.pending
	b.pending = &e

	if prev == nil {
		return nil
	}
	if prev.Day != e.Day {
		b.skips.Boundary++
		return nil
	}
	return b.decide(*prev, e)
}

// FinalizeYear drops any pending entry and returns the daily rows.
func (b *Backtester) FinalizeYear() []domain.DailyPnl {
	if b.pending != nil {
		b.skips.Boundary++
		b.pending = nil
	}
	return b.pnl.Finalize()
}

// Skips returns the skip tallies.
func (b *Backtester) Skips() SkipCounters { return b.skips }

// Trades returns the number of trades taken.
func (b *Backtester) Trades() int64 { return b.trades }

// decide runs the entry pipeline for ev with next supplying the exit.
func (b *Backtester) decide(ev, next domain.LabeledEvent) error {
	if ev.Mid <= 0 || ev.Spread <= 0 {
		b.skips.Invalid++
		return nil
	}

	state := b.model.Cell(ev.Imbalance, ev.Spread, ev.AgeDiffMs, float64(ev.LastMove))
	d := b.model.Direction(state)

	if b.cfg.MinAbsDirectionScore > 0 && math.Abs(d) < b.cfg.MinAbsDirectionScore {
		b.skips.Magnitude++
		return nil
	}

	// One-tick move approximation.
	dm := 0.5 * ev.Spread
	ee := d * dm / ev.Mid

	var costRet float64
	switch b.cfg.EdgeMode {
	case EdgeLegacy:
		if ee <= 0 {
			b.skips.Edge++
			return nil
		}
	case EdgeCostTradeAll:
		costRet = (ev.Spread + 2*b.cfg.FeePrice + b.cfg.SlipPrice) / ev.Mid
	case EdgeCostWithGate:
		costRet = (ev.Spread + 2*b.cfg.FeePrice + b.cfg.SlipPrice) / ev.Mid
		if b.cfg.MinExpectedEdgeBps > 0 {
			hurdle := (2*b.cfg.FeePrice+b.cfg.SlipPrice)/ev.Mid + b.cfg.MinExpectedEdgeBps*1e-4
			if math.Abs(ee) <= hurdle {
				b.skips.Edge++
				return nil
			}
		}
	}

	if b.cfg.MaxMeanWaitMs > 0 {
		if wait := b.model.EffectiveTauMs(state); wait > b.cfg.MaxMeanWaitMs {
			b.skips.Wait++
			return nil
		}
	}

	side := int8(1)
	if d <= 0 {
		side = -1
	}

	grossRet := float64(side) * (next.Mid - ev.Mid) / ev.Mid
	trade := domain.Trade{
		TSIn:            ev.TS,
		TSOut:           next.TS,
		Day:             ev.Day,
		MidIn:           ev.Mid,
		MidOut:          next.Mid,
		SpreadIn:        ev.Spread,
		DirectionScore:  d,
		ExpectedEdgeRet: ee,
		CostRet:         costRet,
		GrossRet:        grossRet,
		NetRet:          grossRet - costRet,
		Side:            side,
	}

	b.trades++
	if err := b.pnl.Observe(trade); err != nil {
		return err
	}
	return b.emit(trade)
}
