package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// RunContext carries per-run identity and stage timings. It is created by
// the driver, passed explicitly to whoever needs it, and dies with the run.
type RunContext struct {
	RunID     string
	StartedAt time.Time
	Log       *slog.Logger

	mu      sync.Mutex
	timings []StageTiming
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// NewRunContext creates a RunContext with the given id and logger.
func NewRunContext(runID string, log *slog.Logger) *RunContext {
	return &RunContext{
		RunID:     runID,
		StartedAt: time.Now(),
		Log:       log,
	}
}

// ObserveStage appends a stage timing.
func (rc *RunContext) ObserveStage(stage string, d time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.timings = append(rc.timings, StageTiming{Stage: stage, Duration: d})
}

// Timings returns a copy of the recorded stage timings in completion order.
func (rc *RunContext) Timings() []StageTiming {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]StageTiming, len(rc.timings))
	copy(out, rc.timings)
	return out
}

// WriteReport writes a plain-text timing report for the run.
func (rc *RunContext) WriteReport(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "run %s\n", rc.RunID); err != nil {
		return err
	}
	var total time.Duration
	for _, t := range rc.Timings() {
		total += t.Duration
		if _, err := fmt.Fprintf(w, "  %-12s %s\n", t.Stage, t.Duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-12s %s\n", "total", total.Round(time.Millisecond))
	return err
}
