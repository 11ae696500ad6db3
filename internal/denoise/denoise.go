// Package denoise removes implausible mid ticks from an event-grid stream
// with a per-day streaming baseline and asymmetric level/delta rules.
package denoise

import (
	"math"

	"microlab/internal/domain"
)

// Config holds the denoiser thresholds.
type Config struct {
	MidMax         float64 // absolute level cap; strict >
	DeltaThreshold float64 // absolute jump vs the last kept mid; drop at >=
	MaxExamples    int     // spike pairs retained for inspection
}

// Denoiser filters one ordered tick stream. The baseline is the last kept
// tick of the current day; crossing into a new day resets it, so inter-day
// jumps are always permitted.
type Denoiser struct {
	cfg    Config
	report *Report

	day      uint32
	haveBase bool
	baseTS   domain.TS
	baseMid  float64
}

// New creates a Denoiser collecting counts into a fresh Report.
func New(cfg Config) *Denoiser {
	return &Denoiser{cfg: cfg, report: NewReport(cfg.MaxExamples)}
}

// Keep decides whether the tick survives, updating the per-day report.
func (d *Denoiser) Keep(t domain.Tick) bool {
	day := domain.DayOf(t.TS)
	if day != d.day {
		d.day = day
		d.haveBase = false
	}

	if t.TS == 0 || math.IsNaN(t.Mid) {
		d.report.dropLevel(day)
		return false
	}

	// First tick of the day sees the level filter only.
	if !d.haveBase {
		if t.Mid > d.cfg.MidMax {
			d.report.dropLevel(day)
			return false
		}
		d.haveBase = true
		d.baseTS = t.TS
		d.baseMid = t.Mid
		d.report.keep(day)
		return true
	}

	if t.Mid > d.cfg.MidMax {
		d.report.dropLevel(day)
		return false
	}

	delta := math.Abs(t.Mid - d.baseMid)
	if delta >= d.cfg.DeltaThreshold {
		d.report.dropDelta(day)
		d.report.example(SpikeExample{
			Day:      day,
			TSPrev:   d.baseTS,
			TSCurr:   t.TS,
			MidPrev:  d.baseMid,
			MidCurr:  t.Mid,
			AbsDelta: delta,
		})
		return false
	}

	d.baseTS = t.TS
	d.baseMid = t.Mid
	d.report.keep(day)
	return true
}

// Baseline returns the current (ts, mid) baseline, valid when ok is true.
func (d *Denoiser) Baseline() (ts domain.TS, mid float64, ok bool) {
	return d.baseTS, d.baseMid, d.haveBase
}

// Report returns the accumulated per-day counts and spike examples.
func (d *Denoiser) Report() *Report {
	return d.report
}
