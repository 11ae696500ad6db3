package util

import (
	"log/slog"
	"sync"
)

// ProgressLogger emits a log line every fixed number of rows. The cadence is
// purely row-count based so repeated runs over the same input produce the
// same progress output.
type ProgressLogger struct {
	mu    sync.Mutex
	log   *slog.Logger
	label string
	every int64
	rows  int64
	next  int64
}

// NewProgressLogger creates a ProgressLogger that logs under the given label
// every `every` rows. An every of 0 or less disables both logging and row
// counting.
func NewProgressLogger(log *slog.Logger, label string, every int64) *ProgressLogger {
	return &ProgressLogger{
		log:   log,
		label: label,
		every: every,
		next:  every,
	}
}

// Add records n processed rows, logging if a multiple of the cadence was
// crossed.
func (p *ProgressLogger) Add(n int64) {
	if p.every <= 0 {
		return
	}
	p.mu.Lock()
	p.rows += n
	emit := p.rows >= p.next
	for p.next <= p.rows {
		p.next += p.every
	}
	rows := p.rows
	p.mu.Unlock()

	if emit {
		p.log.Info("progress", "label", p.label, "rows", rows)
	}
}

// Rows returns the total row count seen so far (always 0 when disabled).
func (p *ProgressLogger) Rows() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rows
}
