package nbbo

import "microlab/internal/domain"

// ClockFiller converts an event-grid tick stream into a clock grid by
// bounded forward fill. Between consecutive ticks on the same day with a gap
// of G ms, 0 < G <= maxGap, it emits G synthetic ticks copying the previous
// NBBO with log_return 0. A gap beyond maxGap emits nothing and nulls the
// incoming tick's log return. Fills never cross a day boundary.
//
// Both the direct raw-quote path and the event-to-clock synthesis path run
// their ticks through this same routine, so the two are observationally
// identical.
type ClockFiller struct {
	maxGap int64
	emit   func(domain.Tick) error

	havePrev bool
	prev     domain.Tick
}

// NewClockFiller creates a ClockFiller emitting through emit.
func NewClockFiller(maxGapMs int64, emit func(domain.Tick) error) *ClockFiller {
	return &ClockFiller{maxGap: maxGapMs, emit: emit}
}

// Push feeds the next event-grid tick, emitting any fills followed by the
// tick itself.
func (f *ClockFiller) Push(t domain.Tick) error {
	if f.havePrev && domain.SameDay(f.prev.TS, t.TS) {
		gap := domain.MsSinceMidnight(t.TS) - domain.MsSinceMidnight(f.prev.TS) - 1
		switch {
		case gap > 0 && gap <= f.maxGap:
			for i := int64(1); i <= gap; i++ {
				fill := f.prev
				fill.TS = domain.AddMs(f.prev.TS, i)
				zero := 0.0
				fill.LogReturn = &zero
				if err := f.emit(fill); err != nil {
					return err
				}
			}
		case gap > f.maxGap:
			// Too wide to fill: reset the return baseline.
			t.LogReturn = nil
		}
	}

	f.havePrev = true
	f.prev = t
	return f.emit(t)
}
