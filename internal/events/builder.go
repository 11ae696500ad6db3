// Package events turns cleaned tick streams into labeled mid-change events
// carrying microstructure features.
package events

import (
	"math"

	"microlab/internal/domain"
)

// Config holds the event builder settings.
type Config struct {
	// ThresholdNext drops label pairs whose mid move exceeds this amount.
	ThresholdNext float64
}

// Counters tallies event dispositions.
type Counters struct {
	Emitted         int64
	DroppedBoundary int64 // pending event discarded at a day boundary or EOS
	DroppedBigMove  int64 // |mid_next - mid| above the threshold
}

// Builder consumes an ordered tick stream and emits LabeledEvents. An event
// is created on every finite non-zero log return; it is emitted once the
// next same-day mid change supplies its label.
type Builder struct {
	cfg  Config
	emit func(domain.LabeledEvent) error

	counters Counters

	day          uint32
	haveDay      bool
	lastBid      float64
	lastAsk      float64
	bidOriginMs  int64
	askOriginMs  int64
	lastMoveSign int8
	prevEvent    *domain.LabeledEvent
}

// NewBuilder creates a Builder emitting labeled events through emit.
func NewBuilder(cfg Config, emit func(domain.LabeledEvent) error) *Builder {
	return &Builder{cfg: cfg, emit: emit}
}

// Push processes one tick.
func (b *Builder) Push(t domain.Tick) error {
	day := domain.DayOf(t.TS)
	msm := domain.MsSinceMidnight(t.TS)

	if !b.haveDay || day != b.day {
		if b.prevEvent != nil {
			b.counters.DroppedBoundary++
			b.prevEvent = nil
		}
		b.haveDay = true
		b.day = day
		b.lastBid = t.Bid
		b.lastAsk = t.Ask
		b.bidOriginMs = msm
		b.askOriginMs = msm
		b.lastMoveSign = 0
	}

	// Quote ages: the origin moves whenever the best price changes.
	if t.Bid != b.lastBid {
		b.lastBid = t.Bid
		b.bidOriginMs = msm
	}
	if t.Ask != b.lastAsk {
		b.lastAsk = t.Ask
		b.askOriginMs = msm
	}
	ageBid := msm - b.bidOriginMs
	ageAsk := msm - b.askOriginMs

	imbalance := 0.0
	if denom := t.BidSize + t.AskSize; denom != 0 {
		imbalance = (t.BidSize - t.AskSize) / denom
	}

	// Only finite, non-zero returns mark a mid change.
	if t.LogReturn == nil {
		return nil
	}
	lr := *t.LogReturn
	if lr == 0 || math.IsNaN(lr) || math.IsInf(lr, 0) {
		return nil
	}

	e := &domain.LabeledEvent{
		TS:        t.TS,
		Day:       day,
		Mid:       t.Mid,
		Spread:    t.Spread,
		Imbalance: imbalance,
		AgeDiffMs: float64(ageBid - ageAsk),
		LastMove:  b.lastMoveSign,
	}

	if b.prevEvent != nil && b.prevEvent.Day == e.Day {
		dm := e.Mid - b.prevEvent.Mid
		if math.Abs(dm) > b.cfg.ThresholdNext {
			b.counters.DroppedBigMove++
		} else {
			b.prevEvent.MidNext = e.Mid
			b.prevEvent.Y = domain.Sign(dm)
			b.prevEvent.TauMs = domain.MsSinceMidnight(e.TS) - domain.MsSinceMidnight(b.prevEvent.TS)
			b.counters.Emitted++
			if err := b.emit(*b.prevEvent); err != nil {
				return err
			}
		}
	}

	b.lastMoveSign = domain.Sign(lr)
	b.prevEvent = e
	return nil
}

// Flush discards any pending unlabeled event at end of stream.
func (b *Builder) Flush() {
	if b.prevEvent != nil {
		b.counters.DroppedBoundary++
		b.prevEvent = nil
	}
}

// Counters returns the disposition tallies.
func (b *Builder) Counters() Counters {
	return b.counters
}
