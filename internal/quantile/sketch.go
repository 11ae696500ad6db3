// Package quantile estimates extreme tail quantiles of log-return streams
// with bounded memory, and winsorizes tick partitions against the cutoffs.
package quantile

import (
	"container/heap"
	"math"
	"sort"
)

// floatHeap is a binary heap over float64 values. With max=true the root is
// the largest value (used to bound the smallest-seen set); with max=false
// the root is the smallest (bounding the largest-seen set).
type floatHeap struct {
	vals []float64
	max  bool
}

func (h *floatHeap) Len() int { return len(h.vals) }
func (h *floatHeap) Less(i, j int) bool {
	if h.max {
		return h.vals[i] > h.vals[j]
	}
	return h.vals[i] < h.vals[j]
}
func (h *floatHeap) Swap(i, j int) { h.vals[i], h.vals[j] = h.vals[j], h.vals[i] }
func (h *floatHeap) Push(x any)    { h.vals = append(h.vals, x.(float64)) }
func (h *floatHeap) Pop() any {
	n := len(h.vals)
	v := h.vals[n-1]
	h.vals = h.vals[:n-1]
	return v
}

// TailSketch captures the L smallest and L largest finite samples of a
// stream plus the total finite count. For L large enough to cover the
// requested tail the resulting quantiles are exact.
type TailSketch struct {
	limit int
	low   floatHeap // max-heap of the smallest-seen values
	high  floatHeap // min-heap of the largest-seen values
	n     uint64
}

// NewTailSketch creates a sketch bounding each tail at limit values.
func NewTailSketch(limit int) *TailSketch {
	return &TailSketch{
		limit: limit,
		low:   floatHeap{max: true},
		high:  floatHeap{max: false},
	}
}

// Add folds one sample into the sketch. Non-finite samples are ignored.
func (s *TailSketch) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.n++

	if s.low.Len() < s.limit {
		heap.Push(&s.low, v)
	} else if v < s.low.vals[0] {
		s.low.vals[0] = v
		heap.Fix(&s.low, 0)
	}

	if s.high.Len() < s.limit {
		heap.Push(&s.high, v)
	} else if v > s.high.vals[0] {
		s.high.vals[0] = v
		heap.Fix(&s.high, 0)
	}
}

// N returns the finite sample count.
func (s *TailSketch) N() uint64 { return s.n }

// Merge folds another sketch into this one. The caller serializes Merge
// calls; the sketch itself is not locked.
func (s *TailSketch) Merge(o *TailSketch) {
	for _, v := range o.low.vals {
		if s.low.Len() < s.limit {
			heap.Push(&s.low, v)
		} else if v < s.low.vals[0] {
			s.low.vals[0] = v
			heap.Fix(&s.low, 0)
		}
	}
	for _, v := range o.high.vals {
		if s.high.Len() < s.limit {
			heap.Push(&s.high, v)
		} else if v > s.high.vals[0] {
			s.high.vals[0] = v
			heap.Fix(&s.high, 0)
		}
	}
	s.n += o.n
}

// Cutoffs is the resolved pair of tail cutoffs. LowExact/HighExact report
// whether the requested rank fell inside the captured tail; when false the
// value is the outermost captured sample and callers may treat it as a
// bound.
type Cutoffs struct {
	Low       float64
	High      float64
	LowExact  bool
	HighExact bool
	N         uint64
}

// Resolve computes the cutoffs at the given quantiles. qLow and qHigh are
// fractions of the full dataset, e.g. 1e-5 and 1-1e-5.
func (s *TailSketch) Resolve(qLow, qHigh float64) Cutoffs {
	c := Cutoffs{N: s.n}
	if s.n == 0 || s.low.Len() == 0 || s.high.Len() == 0 {
		c.Low = math.NaN()
		c.High = math.NaN()
		return c
	}

	low := append([]float64(nil), s.low.vals...)
	sort.Float64s(low)
	high := append([]float64(nil), s.high.vals...)
	sort.Float64s(high)

	rLow := int(math.Floor(qLow * float64(s.n)))
	if rLow < len(low) {
		c.Low = low[rLow]
		c.LowExact = true
	} else {
		// Quantile beyond the captured tail: report the heap boundary.
		c.Low = low[len(low)-1]
	}

	rHigh := int(math.Floor(qHigh * float64(s.n)))
	idx := rHigh - int(s.n) + len(high)
	switch {
	case idx < 0:
		c.High = high[0]
	case idx >= len(high):
		c.High = high[len(high)-1]
	default:
		c.High = high[idx]
		c.HighExact = true
	}

	return c
}
