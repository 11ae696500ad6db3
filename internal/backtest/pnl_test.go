package backtest

import (
	"math"
	"testing"

	"microlab/internal/domain"
)

func pnlTrade(day uint32, gross, net float64) domain.Trade {
	return domain.Trade{Day: day, GrossRet: gross, NetRet: net}
}

func TestPnlDailyRollup(t *testing.T) {
	p := NewPnlAggregator()
	feed := []domain.Trade{
		pnlTrade(20200102, 0.001, 0.0005),
		pnlTrade(20200102, -0.002, -0.0025),
		pnlTrade(20200103, 0.003, 0.0025),
	}
	for _, tr := range feed {
		if err := p.Observe(tr); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	rows := p.Finalize()

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	r0 := rows[0]
	if r0.Day != 20200102 || r0.NumTrades != 2 {
		t.Errorf("row 0 = %+v", r0)
	}
	if math.Abs(r0.GrossSum-(-0.001)) > 1e-12 || math.Abs(r0.NetSum-(-0.002)) > 1e-12 {
		t.Errorf("row 0 sums = %v / %v", r0.GrossSum, r0.NetSum)
	}
	if math.Abs(r0.NetMean-(-0.001)) > 1e-12 {
		t.Errorf("row 0 net mean = %v", r0.NetMean)
	}
	if math.Abs(r0.CumulativeNet-(-0.002)) > 1e-12 {
		t.Errorf("row 0 cumulative = %v", r0.CumulativeNet)
	}

	r1 := rows[1]
	if r1.Day != 20200103 || r1.NumTrades != 1 {
		t.Errorf("row 1 = %+v", r1)
	}
	// Cumulative carries across days within the year.
	if math.Abs(r1.CumulativeNet-0.0005) > 1e-12 {
		t.Errorf("row 1 cumulative = %v", r1.CumulativeNet)
	}

	// Strictly increasing days.
	if rows[0].Day >= rows[1].Day {
		t.Error("daily rows must strictly increase in day")
	}
}

func TestPnlRejectsDayRegression(t *testing.T) {
	p := NewPnlAggregator()
	if err := p.Observe(pnlTrade(20200103, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := p.Observe(pnlTrade(20200102, 0, 0)); err == nil {
		t.Fatal("day regression accepted")
	}
}

func TestPnlRejectsZeroDay(t *testing.T) {
	p := NewPnlAggregator()
	if err := p.Observe(pnlTrade(0, 0, 0)); err == nil {
		t.Fatal("day 0 accepted")
	}
}

func TestPnlFinalizeEmpty(t *testing.T) {
	p := NewPnlAggregator()
	if rows := p.Finalize(); len(rows) != 0 {
		t.Errorf("got %d rows from empty aggregator", len(rows))
	}
}
