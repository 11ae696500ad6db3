package histogram

import (
	"math"
	"testing"
)

func TestImbalanceBins(t *testing.T) {
	b := DefaultBinSpec()
	tests := []struct {
		x    float64
		want int
	}{
		{-1, 0},
		{-0.71, 0},
		{-0.7, 1}, // left edge belongs to the upper bin
		{-0.3, 2},
		{-0.1, 3},
		{0, 3},
		{0.1, 3}, // middle bin is closed on the right
		{0.100001, 4},
		{0.3, 4},
		{0.31, 5},
		{1, 5},
	}
	for _, tt := range tests {
		if got := b.ImbalanceBin(tt.x); got != tt.want {
			t.Errorf("ImbalanceBin(%g) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestSpreadBins(t *testing.T) {
	b := DefaultBinSpec()
	tests := []struct {
		spread float64
		want   int
	}{
		{0.005, 0},
		{0.01, 0},
		{0.014, 0}, // round(1.4) = 1
		{0.015, 1}, // round(1.5) = 2
		{0.02, 1},
		{0.025, 2}, // round(2.5) = 3
		{0.5, 2},
		{0, 0},
		{-0.01, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		if got := b.SpreadBin(tt.spread); got != tt.want {
			t.Errorf("SpreadBin(%g) = %d, want %d", tt.spread, got, tt.want)
		}
	}
}

func TestAgeBins(t *testing.T) {
	b := DefaultBinSpec()
	tests := []struct {
		ms   float64
		want int
	}{
		{-1000, 0},
		{-200, 1},
		{-50, 2},
		{0, 2},
		{50, 2},
		{51, 3},
		{200, 3},
		{201, 4},
	}
	for _, tt := range tests {
		if got := b.AgeBin(tt.ms); got != tt.want {
			t.Errorf("AgeBin(%g) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestLastMoveBins(t *testing.T) {
	b := DefaultBinSpec()
	if b.LastMoveBin(-1) != 0 || b.LastMoveBin(0) != 1 || b.LastMoveBin(1) != 2 {
		t.Error("last-move binning wrong")
	}
	if b.LastMoveBin(-0.5) != 1 || b.LastMoveBin(0.5) != 1 {
		t.Error("|L| = 0.5 must be flat")
	}
}

func TestCellIndexRoundTrip(t *testing.T) {
	seen := make(map[int]bool)
	for bImb := 0; bImb < NImb; bImb++ {
		for bSpr := 0; bSpr < NSpr; bSpr++ {
			for bAge := 0; bAge < NAge; bAge++ {
				for bLast := 0; bLast < NLast; bLast++ {
					k := CellIndex(bImb, bSpr, bAge, bLast)
					if k < 0 || k >= NCells {
						t.Fatalf("cell index %d out of range", k)
					}
					if seen[k] {
						t.Fatalf("cell index %d collides", k)
					}
					seen[k] = true

					gi, gs, ga, gl := CellCoords(k)
					if gi != bImb || gs != bSpr || ga != bAge || gl != bLast {
						t.Fatalf("CellCoords(%d) = (%d,%d,%d,%d), want (%d,%d,%d,%d)",
							k, gi, gs, ga, gl, bImb, bSpr, bAge, bLast)
					}
				}
			}
		}
	}
	if len(seen) != NCells {
		t.Errorf("covered %d cells, want %d", len(seen), NCells)
	}
}
