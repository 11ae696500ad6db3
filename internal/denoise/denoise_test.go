package denoise

import (
	"strings"
	"testing"

	"microlab/internal/domain"
)

func tick(day uint32, msm int64, mid float64) domain.Tick {
	return domain.Tick{TS: domain.MakeTS(day, msm), Mid: mid}
}

func defaultConfig() Config {
	return Config{MidMax: 1000, DeltaThreshold: 100, MaxExamples: 10}
}

// Scenario: mids [50, 1200, 80, 100, 250] keep [50, 80, 100]; 1200 removed
// by level, 250 by delta.
func TestLevelThenDelta(t *testing.T) {
	d := New(defaultConfig())

	mids := []float64{50, 1200, 80, 100, 250}
	var kept []float64
	for i, m := range mids {
		if d.Keep(tick(20200102, int64(i), m)) {
			kept = append(kept, m)
		}
	}

	want := []float64{50, 80, 100}
	if len(kept) != len(want) {
		t.Fatalf("kept %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("kept %v, want %v", kept, want)
		}
	}

	ts, mid, ok := d.Baseline()
	if !ok || mid != 100 || ts != domain.MakeTS(20200102, 3) {
		t.Errorf("baseline = (%d, %v, %v), want ts of 100", ts, mid, ok)
	}

	counts := d.Report().Days[20200102]
	if counts.Kept != 3 || counts.ByLevel != 1 || counts.ByDelta != 1 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestDeltaBoundary(t *testing.T) {
	d := New(defaultConfig())
	if !d.Keep(tick(20200102, 0, 500)) {
		t.Fatal("first tick dropped")
	}
	// |delta| just under the threshold is kept.
	if !d.Keep(tick(20200102, 1, 599)) {
		t.Error("delta under threshold dropped")
	}
	// |delta| exactly at the threshold is dropped.
	if d.Keep(tick(20200102, 2, 699)) {
		t.Error("delta at threshold kept")
	}
}

func TestMidMaxBoundary(t *testing.T) {
	d := New(defaultConfig())
	// Exactly MID_MAX passes; the level filter is strict >.
	if !d.Keep(tick(20200102, 0, 1000)) {
		t.Error("mid == MID_MAX dropped")
	}
	if d.Keep(tick(20200103, 0, 1000.001)) {
		t.Error("mid > MID_MAX kept")
	}
}

func TestFirstTickLevelOnly(t *testing.T) {
	d := New(defaultConfig())
	// Failing first tick is dropped without installing a baseline.
	if d.Keep(tick(20200102, 0, 5000)) {
		t.Fatal("over-level first tick kept")
	}
	if _, _, ok := d.Baseline(); ok {
		t.Error("baseline installed from dropped tick")
	}
	// The next passing tick becomes first-of-day with no delta filter.
	if !d.Keep(tick(20200102, 1, 700)) {
		t.Error("first passing tick dropped")
	}
}

func TestDayBoundaryResetsBaseline(t *testing.T) {
	d := New(defaultConfig())
	if !d.Keep(tick(20200102, 0, 50)) {
		t.Fatal("day 1 tick dropped")
	}
	// An inter-day jump far beyond the delta threshold is permitted.
	if !d.Keep(tick(20200103, 0, 900)) {
		t.Error("inter-day jump dropped")
	}
}

func TestExamplesBounded(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxExamples = 2
	d := New(cfg)

	d.Keep(tick(20200102, 0, 100))
	for i := 1; i <= 5; i++ {
		d.Keep(tick(20200102, int64(i), 400)) // each is a delta spike
	}

	r := d.Report()
	if len(r.Examples) != 2 {
		t.Errorf("examples = %d, want 2", len(r.Examples))
	}
	if r.Examples[0].MidPrev != 100 || r.Examples[0].MidCurr != 400 {
		t.Errorf("example = %+v", r.Examples[0])
	}
}

func TestReportWrite(t *testing.T) {
	d := New(defaultConfig())
	d.Keep(tick(20200102, 0, 50))
	d.Keep(tick(20200102, 1, 2000))
	d.Keep(tick(20200103, 0, 60))

	var sb strings.Builder
	if err := d.Report().Write(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "total kept=2 removed_by_delta=0 removed_by_level=1") {
		t.Errorf("bad totals:\n%s", out)
	}
	if !strings.Contains(out, "day 20200102: kept=1 by_delta=0 by_level=1") {
		t.Errorf("bad day line:\n%s", out)
	}
}
