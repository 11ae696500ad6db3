package nbbo

import (
	"strings"
	"testing"
)

func TestGlitchCountsMerge(t *testing.T) {
	a := NewGlitchCounts()
	a.Add(CatParseFail, 9)
	a.Add(CatParseFail, 9)
	a.Add(CatLockedCrossed, 10)

	b := NewGlitchCounts()
	b.Add(CatParseFail, 9)
	b.Add(CatNonposField, 14)

	a.Merge(b)

	if n := a.Total(CatParseFail); n != 3 {
		t.Errorf("parse_fail total = %d, want 3", n)
	}
	if n := a.Total(CatNonposField); n != 1 {
		t.Errorf("nonpos_field total = %d, want 1", n)
	}
}

func TestGlitchReportFormat(t *testing.T) {
	g := NewGlitchCounts()
	g.Add(CatLockedCrossed, 9)
	g.Add(CatLockedCrossed, 15)
	g.Add(CatNonposPrice, 12)

	var sb strings.Builder
	if err := g.WriteReport(&sb); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	report := sb.String()

	if !strings.HasPrefix(report, "glitch report\n") {
		t.Error("missing header")
	}
	if !strings.Contains(report, "total locked_crossed: 2") {
		t.Errorf("missing total line:\n%s", report)
	}
	// Totals come before the per-hour section.
	if strings.Index(report, "total parse_fail") > strings.Index(report, "hour 09") {
		t.Error("totals must precede per-hour counts")
	}
	for _, h := range []string{"hour 09:", "hour 10:", "hour 15:"} {
		if !strings.Contains(report, h) {
			t.Errorf("missing %q section", h)
		}
	}
	if !strings.Contains(report, "nonpos_price=1") {
		t.Errorf("missing hour bucket:\n%s", report)
	}
}

func TestGlitchEachDeterministic(t *testing.T) {
	g := NewGlitchCounts()
	g.Add(CatNonposPrice, 11)
	g.Add(CatLockedCrossed, 10)
	g.Add(CatLockedCrossed, 9)

	var keys []GlitchKey
	g.Each(func(k GlitchKey, _ uint64) {
		keys = append(keys, k)
	})
	if len(keys) != 3 {
		t.Fatalf("got %d keys", len(keys))
	}
	if keys[0].Category != CatLockedCrossed || keys[0].Hour != 9 {
		t.Errorf("first key = %+v", keys[0])
	}
}
