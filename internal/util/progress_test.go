package util

import (
	"log/slog"
	"testing"
)

func TestProgressLoggerCounts(t *testing.T) {
	p := NewProgressLogger(slog.Default(), "test", 100)
	for i := 0; i < 7; i++ {
		p.Add(50)
	}
	if p.Rows() != 350 {
		t.Errorf("Rows() = %d, want 350", p.Rows())
	}
}

func TestProgressLoggerDisabled(t *testing.T) {
	p := NewProgressLogger(slog.Default(), "test", 0)
	p.Add(1000)
	if p.Rows() != 0 {
		t.Errorf("disabled logger counted rows: %d", p.Rows())
	}
}
