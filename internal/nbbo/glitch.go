package nbbo

import (
	"fmt"
	"io"
	"sort"
)

// Glitch categories. Recoverable data problems are counted under one of
// these and dropped; they never fail a stage.
const (
	CatParseFail     = "parse_fail"
	CatNonposField   = "nonpos_field"
	CatNonposPrice   = "nonpos_price"
	CatLockedCrossed = "locked_crossed"
)

var glitchCategories = []string{CatParseFail, CatNonposField, CatNonposPrice, CatLockedCrossed}

// GlitchKey buckets a counter by category and hour of day.
type GlitchKey struct {
	Category string
	Hour     int
}

// GlitchCounts is a counter map indexed by (category, hour). It is not
// goroutine safe; each worker owns one and merges it into a shared instance
// under the caller's lock at the end of its shard.
type GlitchCounts struct {
	counts map[GlitchKey]uint64
}

// NewGlitchCounts creates an empty counter map.
func NewGlitchCounts() *GlitchCounts {
	return &GlitchCounts{counts: make(map[GlitchKey]uint64)}
}

// Add increments the counter for (category, hour).
func (g *GlitchCounts) Add(category string, hour int) {
	g.counts[GlitchKey{Category: category, Hour: hour}]++
}

// Merge folds another counter map into this one.
func (g *GlitchCounts) Merge(o *GlitchCounts) {
	for k, v := range o.counts {
		g.counts[k] += v
	}
}

// Total sums the counters for one category across all hours.
func (g *GlitchCounts) Total(category string) uint64 {
	var n uint64
	for k, v := range g.counts {
		if k.Category == category {
			n += v
		}
	}
	return n
}

// Each calls fn for every non-zero bucket, in deterministic order.
func (g *GlitchCounts) Each(fn func(GlitchKey, uint64)) {
	keys := make([]GlitchKey, 0, len(g.counts))
	for k := range g.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Hour < keys[j].Hour
	})
	for _, k := range keys {
		fn(k, g.counts[k])
	}
}

// WriteReport writes the human-readable glitch report: totals first, then
// per-hour counts for the regular session hours 09-15.
func (g *GlitchCounts) WriteReport(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "glitch report"); err != nil {
		return err
	}
	for _, cat := range glitchCategories {
		if _, err := fmt.Fprintf(w, "total %s: %d\n", cat, g.Total(cat)); err != nil {
			return err
		}
	}
	for hour := 9; hour <= 15; hour++ {
		if _, err := fmt.Fprintf(w, "hour %02d:", hour); err != nil {
			return err
		}
		for _, cat := range glitchCategories {
			n := g.counts[GlitchKey{Category: cat, Hour: hour}]
			if _, err := fmt.Fprintf(w, " %s=%d", cat, n); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
