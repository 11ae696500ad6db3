package nbbo

import (
	"math"

	"microlab/internal/domain"
)

// AggregatorConfig holds the filter settings for NBBO aggregation.
type AggregatorConfig struct {
	SessionOpenMs  int64  // inclusive, ms since midnight
	SessionCloseMs int64  // exclusive
	Venues         string // allowed venue tags, one byte each
	Cond           byte   // required quote condition, 0 means 'R'
}

// AggregatorStats counts line dispositions that are not glitches.
type AggregatorStats struct {
	Lines          int64
	Accepted       int64
	SessionSkipped int64
	CondSkipped    int64
	VenueSkipped   int64
	Ticks          int64
}

// Aggregator consumes raw quotes in arrival order and emits one NBBO Tick
// per millisecond bucket that produced at least one accepted quote. Emitted
// ticks carry a nil log return; the ReturnTagger assigns returns on the
// ordered output stream.
type Aggregator struct {
	openMs   int64
	closeMs  int64
	cond     byte
	venueOK  [256]bool
	glitches *GlitchCounts
	emit     func(domain.Tick) error
	stats    AggregatorStats

	haveBucket bool
	day        uint32
	ms         int64
	bestBid    float64
	bestAsk    float64
	bidSize    float64
	askSize    float64
}

// NewAggregator creates an Aggregator that reports glitches into the given
// counters and emits finalized ticks through emit.
func NewAggregator(cfg AggregatorConfig, glitches *GlitchCounts, emit func(domain.Tick) error) *Aggregator {
	a := &Aggregator{
		openMs:   cfg.SessionOpenMs,
		closeMs:  cfg.SessionCloseMs,
		cond:     cfg.Cond,
		glitches: glitches,
		emit:     emit,
	}
	if a.cond == 0 {
		a.cond = 'R'
	}
	for i := 0; i < len(cfg.Venues); i++ {
		a.venueOK[cfg.Venues[i]] = true
	}
	return a
}

// PushLine parses and pushes one raw quote line. Parse failures are counted
// and dropped.
func (a *Aggregator) PushLine(line string) error {
	a.stats.Lines++
	q, err := ParseQuoteLine(line)
	if err != nil {
		// Hour is unknown when the line does not parse.
		a.glitches.Add(CatParseFail, 0)
		return nil
	}
	return a.Push(q)
}

// Push applies the filters to one parsed quote and folds survivors into the
// current millisecond bucket.
func (a *Aggregator) Push(q domain.RawQuote) error {
	if q.TimeMs < a.openMs || q.TimeMs >= a.closeMs {
		a.stats.SessionSkipped++
		return nil
	}
	if q.Cond != a.cond {
		a.stats.CondSkipped++
		return nil
	}
	if !a.venueOK[q.Venue] {
		a.stats.VenueSkipped++
		return nil
	}

	hour := int(q.TimeMs / 3_600_000)
	if !positiveFinite(q.Bid) || !positiveFinite(q.Ask) {
		a.glitches.Add(CatNonposPrice, hour)
		return nil
	}
	if !positiveFinite(q.BidSize) || !positiveFinite(q.AskSize) {
		a.glitches.Add(CatNonposField, hour)
		return nil
	}
	if q.Ask <= q.Bid {
		a.glitches.Add(CatLockedCrossed, hour)
		return nil
	}

	a.stats.Accepted++

	if a.haveBucket && (q.Day != a.day || q.TimeMs != a.ms) {
		if err := a.finalize(); err != nil {
			return err
		}
	}

	if !a.haveBucket {
		a.haveBucket = true
		a.day = q.Day
		a.ms = q.TimeMs
		a.bestBid = q.Bid
		a.bidSize = q.BidSize
		a.bestAsk = q.Ask
		a.askSize = q.AskSize
		return nil
	}

	// Best bid is the max; size is replaced only on strict improvement.
	if q.Bid > a.bestBid {
		a.bestBid = q.Bid
		a.bidSize = q.BidSize
	}
	if q.Ask < a.bestAsk {
		a.bestAsk = q.Ask
		a.askSize = q.AskSize
	}
	return nil
}

// Flush finalizes the pending bucket at end of stream.
func (a *Aggregator) Flush() error {
	if !a.haveBucket {
		return nil
	}
	return a.finalize()
}

// Stats returns the per-shard line disposition counters.
func (a *Aggregator) Stats() AggregatorStats {
	return a.stats
}

func (a *Aggregator) finalize() error {
	t := domain.Tick{
		TS:      domain.MakeTS(a.day, a.ms),
		Bid:     a.bestBid,
		Ask:     a.bestAsk,
		BidSize: a.bidSize,
		AskSize: a.askSize,
		Mid:     (a.bestBid + a.bestAsk) / 2,
		Spread:  a.bestAsk - a.bestBid,
	}
	a.haveBucket = false
	a.stats.Ticks++
	return a.emit(t)
}

func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// ReturnTagger assigns log returns on an ordered tick stream: ln(mid/prev
// mid) when the previous kept tick is on the same day, nil otherwise.
type ReturnTagger struct {
	havePrev bool
	prevTS   domain.TS
	prevMid  float64
}

// Tag returns the tick with its log return set.
func (r *ReturnTagger) Tag(t domain.Tick) domain.Tick {
	if r.havePrev && domain.SameDay(r.prevTS, t.TS) {
		lr := math.Log(t.Mid / r.prevMid)
		t.LogReturn = &lr
	} else {
		t.LogReturn = nil
	}
	r.havePrev = true
	r.prevTS = t.TS
	r.prevMid = t.Mid
	return t
}
