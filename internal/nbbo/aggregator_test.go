package nbbo

import (
	"math"
	"testing"

	"microlab/internal/domain"
)

func testConfig() AggregatorConfig {
	return AggregatorConfig{
		SessionOpenMs:  (9*60 + 30) * 60_000,
		SessionCloseMs: 16 * 3600 * 1000,
		Venues:         "PTQZYJK",
	}
}

func collectTicks(t *testing.T, lines []string) ([]domain.Tick, *GlitchCounts, AggregatorStats) {
	t.Helper()
	var ticks []domain.Tick
	glitches := NewGlitchCounts()
	agg := NewAggregator(testConfig(), glitches, func(tk domain.Tick) error {
		ticks = append(ticks, tk)
		return nil
	})
	for _, line := range lines {
		if err := agg.PushLine(line); err != nil {
			t.Fatalf("PushLine(%q): %v", line, err)
		}
	}
	if err := agg.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return ticks, glitches, agg.Stats()
}

// Scenario: two quotes in the same millisecond coalesce into one NBBO tick.
func TestSingleMsCoalescing(t *testing.T) {
	ticks, _, _ := collectTicks(t, []string{
		"20200102,09:30:00.000,P,100.01,5,100.02,7,R,",
		"20200102,09:30:00.000,P,100.00,10,100.03,4,R,",
	})
	if len(ticks) != 1 {
		t.Fatalf("got %d ticks, want 1", len(ticks))
	}
	tk := ticks[0]
	if tk.TS != 20200102093000000 {
		t.Errorf("TS = %d", tk.TS)
	}
	if tk.Bid != 100.01 || tk.BidSize != 5 {
		t.Errorf("bid = %v/%v, want 100.01/5", tk.Bid, tk.BidSize)
	}
	if tk.Ask != 100.02 || tk.AskSize != 7 {
		t.Errorf("ask = %v/%v, want 100.02/7", tk.Ask, tk.AskSize)
	}
	if tk.Mid != 100.015 {
		t.Errorf("mid = %v, want 100.015", tk.Mid)
	}
	if math.Abs(tk.Spread-0.01) > 1e-9 {
		t.Errorf("spread = %v, want 0.01", tk.Spread)
	}
	if tk.LogReturn != nil {
		t.Error("log return on aggregator output must be nil before tagging")
	}
}

func TestBucketBoundaryEmitsDuplicates(t *testing.T) {
	// Identical NBBO in adjacent ms buckets: both are emitted; the bucket
	// boundary gates emission, not the value.
	ticks, _, _ := collectTicks(t, []string{
		"20200102,09:30:00.000,P,100.01,5,100.02,7,R,",
		"20200102,09:30:00.001,P,100.01,5,100.02,7,R,",
	})
	if len(ticks) != 2 {
		t.Fatalf("got %d ticks, want 2", len(ticks))
	}
}

func TestSizeReplacedOnlyOnStrictImprovement(t *testing.T) {
	ticks, _, _ := collectTicks(t, []string{
		"20200102,09:30:00.000,P,100.01,5,100.02,7,R,",
		"20200102,09:30:00.000,T,100.01,99,100.02,88,R,", // equal prices: sizes kept
		"20200102,09:30:00.000,Q,100.02,3,100.01,0,R,",   // crossed: dropped
	})
	if len(ticks) != 1 {
		t.Fatalf("got %d ticks, want 1", len(ticks))
	}
	if ticks[0].BidSize != 5 || ticks[0].AskSize != 7 {
		t.Errorf("sizes = %v/%v, want 5/7", ticks[0].BidSize, ticks[0].AskSize)
	}
}

func TestFilters(t *testing.T) {
	ticks, glitches, stats := collectTicks(t, []string{
		"20200102,09:29:59.999,P,100.01,5,100.02,7,R,", // pre-open
		"20200102,16:00:00.000,P,100.01,5,100.02,7,R,", // at close (half-open)
		"20200102,10:00:00.000,P,100.01,5,100.02,7,A,", // wrong condition
		"20200102,10:00:00.000,X,100.01,5,100.02,7,R,", // venue not allowed
		"20200102,10:00:00.001,P,-1,5,100.02,7,R,",     // non-positive bid
		"20200102,10:00:00.002,P,100.01,0,100.02,7,R,", // zero size
		"20200102,10:00:00.003,P,100.02,5,100.02,7,R,", // locked
		"20200102,10:00:00.004,P,100.03,5,100.02,7,R,", // crossed
		"not,a,quote,line",
		"20200102,10:00:00.005,P,100.01,5,100.02,7,R,", // survivor
	})
	if len(ticks) != 1 {
		t.Fatalf("got %d ticks, want 1", len(ticks))
	}
	if stats.SessionSkipped != 2 {
		t.Errorf("SessionSkipped = %d, want 2", stats.SessionSkipped)
	}
	if stats.CondSkipped != 1 || stats.VenueSkipped != 1 {
		t.Errorf("CondSkipped = %d, VenueSkipped = %d", stats.CondSkipped, stats.VenueSkipped)
	}
	if n := glitches.Total(CatNonposPrice); n != 1 {
		t.Errorf("nonpos_price = %d, want 1", n)
	}
	if n := glitches.Total(CatNonposField); n != 1 {
		t.Errorf("nonpos_field = %d, want 1", n)
	}
	if n := glitches.Total(CatLockedCrossed); n != 2 {
		t.Errorf("locked_crossed = %d, want 2", n)
	}
	if n := glitches.Total(CatParseFail); n != 1 {
		t.Errorf("parse_fail = %d, want 1", n)
	}
}

func TestReturnTagger(t *testing.T) {
	var tagger ReturnTagger

	t1 := tagger.Tag(domain.Tick{TS: domain.MakeTS(20200102, 100), Mid: 100})
	if t1.LogReturn != nil {
		t.Error("first tick of day must have nil log return")
	}

	t2 := tagger.Tag(domain.Tick{TS: domain.MakeTS(20200102, 105), Mid: 101})
	if t2.LogReturn == nil {
		t.Fatal("same-day tick missing log return")
	}
	want := math.Log(101.0 / 100.0)
	if math.Abs(*t2.LogReturn-want) > 1e-12 {
		t.Errorf("log return = %v, want %v", *t2.LogReturn, want)
	}

	t3 := tagger.Tag(domain.Tick{TS: domain.MakeTS(20200103, 100), Mid: 102})
	if t3.LogReturn != nil {
		t.Error("day boundary must reset the log return")
	}
}
