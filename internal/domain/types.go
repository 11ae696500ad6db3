// Package domain defines the record types that flow between pipeline stages
// and the intraday timestamp encoding they share.
package domain

// RawQuote is one Level-1 quote line as parsed from an exchange file. It is
// consumed immediately by the NBBO aggregator and never stored.
type RawQuote struct {
	Day     uint32 // YYYYMMDD
	TimeMs  int64  // ms since midnight
	Venue   byte
	Bid     float64
	BidSize float64
	Ask     float64
	AskSize float64
	Cond    byte
}

// Tick is a per-millisecond NBBO snapshot. LogReturn is nil on the first
// tick of a day (and after a fill-gap reset in clock mode).
type Tick struct {
	TS        TS
	Mid       float64
	LogReturn *float64
	BidSize   float64
	AskSize   float64
	Spread    float64
	Bid       float64
	Ask       float64
}

// LabeledEvent is a mid-change tick augmented with the next same-day mid
// move. Y is the sign of MidNext-Mid and TauMs the waiting time to it.
type LabeledEvent struct {
	TS        TS
	Day       uint32
	Mid       float64
	MidNext   float64
	Spread    float64
	Imbalance float64
	AgeDiffMs float64
	LastMove  int8
	Y         int8
	TauMs     int64
}

// Trade is one single-step backtest entry with every intermediate quantity
// of the decision pipeline. Created on entry, never mutated.
type Trade struct {
	TSIn            TS
	TSOut           TS
	Day             uint32
	MidIn           float64
	MidOut          float64
	SpreadIn        float64
	DirectionScore  float64
	ExpectedEdgeRet float64
	CostRet         float64
	GrossRet        float64
	NetRet          float64
	Side            int8
}

// DailyPnl is the roll-up of all trades on one trading day. CumulativeNet
// is the running sum of per-trade net returns since year start.
type DailyPnl struct {
	Day           uint32
	NumTrades     int64
	GrossSum      float64
	NetSum        float64
	GrossMean     float64
	NetMean       float64
	CumulativeNet float64
}

// Sign returns -1, 0 or +1 for a float value.
func Sign(x float64) int8 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
