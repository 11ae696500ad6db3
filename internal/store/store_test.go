package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"microlab/internal/domain"
)

func TestTickRecordRoundTrip(t *testing.T) {
	lr := 0.0001
	tick := domain.Tick{
		TS:        20200102093000123,
		Mid:       100.015,
		LogReturn: &lr,
		BidSize:   5,
		AskSize:   7,
		Spread:    0.01,
		Bid:       100.01,
		Ask:       100.02,
	}
	rec := NewTickRecord(tick)
	back := rec.Tick()

	if back.TS != tick.TS {
		t.Errorf("TS = %d, want %d", back.TS, tick.TS)
	}
	if back.LogReturn == nil {
		t.Fatal("LogReturn lost in round trip")
	}

	tick.LogReturn = nil
	rec = NewTickRecord(tick)
	if rec.LogReturn != nil {
		t.Error("nil LogReturn became non-nil")
	}
}

func TestPartitionedWriterYearDispatch(t *testing.T) {
	dir := t.TempDir()
	layout := Layout{DataDir: dir, Symbol: "TEST"}

	w := NewPartitionedWriter[TickRecord](func(year int) string {
		return layout.TickPath(TicksEvent, year)
	})

	ticks := []domain.Tick{
		{TS: 20191231155900000, Mid: 10, Bid: 9.99, Ask: 10.01, BidSize: 1, AskSize: 1, Spread: 0.02},
		{TS: 20200102093000000, Mid: 11, Bid: 10.99, Ask: 11.01, BidSize: 1, AskSize: 1, Spread: 0.02},
		{TS: 20200102093000001, Mid: 11, Bid: 10.99, Ask: 11.01, BidSize: 1, AskSize: 1, Spread: 0.02},
	}
	for _, tk := range ticks {
		if err := w.Write(domain.YearOf(tk.TS), NewTickRecord(tk)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	years := w.Years()
	if len(years) != 2 || years[0] != 2019 || years[1] != 2020 {
		t.Fatalf("Years = %v, want [2019 2020]", years)
	}
	if w.Rows(2020) != 2 {
		t.Errorf("Rows(2020) = %d, want 2", w.Rows(2020))
	}

	recs, err := ReadParquetFile[TickRecord](layout.TickPath(TicksEvent, 2020))
	if err != nil {
		t.Fatalf("ReadParquetFile: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("read %d records, want 2", len(recs))
	}
	if recs[0].TS != 20200102093000000 {
		t.Errorf("first TS = %d", recs[0].TS)
	}

	// Writing after close is a logic error.
	if err := w.Write(2021, TickRecord{}); err == nil {
		t.Error("Write after Close succeeded, want error")
	}
	if err := w.Close(); err == nil {
		t.Error("double Close succeeded, want error")
	}
}

func TestScanFileStreams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.parquet")

	recs := make([]EventRecord, 100)
	for i := range recs {
		recs[i] = EventRecord{TS: uint64(20200102093000000 + i), Date: 20200102, Mid: 100}
	}
	if err := WriteParquetFile(path, recs); err != nil {
		t.Fatalf("WriteParquetFile: %v", err)
	}

	var n int
	err := ScanFile[EventRecord](path, func(batch []EventRecord) error {
		n += len(batch)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if n != 100 {
		t.Errorf("scanned %d rows, want 100", n)
	}
}

func TestRunStore(t *testing.T) {
	dir := t.TempDir()
	rs, err := NewRunStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}
	defer rs.Close()

	ctx := context.Background()
	sum := StageSummary{
		RunID:      "run-1",
		Stage:      "aggregate",
		Shards:     3,
		RowsIn:     1000,
		RowsOut:    900,
		StartedAt:  time.Now(),
		DurationMs: 12,
	}
	if err := rs.RecordStage(ctx, sum); err != nil {
		t.Fatalf("RecordStage: %v", err)
	}
	if err := rs.RecordGlitch(ctx, "run-1", "aggregate", "locked_crossed", 10, 5); err != nil {
		t.Fatalf("RecordGlitch: %v", err)
	}

	stages, err := rs.ListStages(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListStages: %v", err)
	}
	if len(stages) != 1 || stages[0].RowsOut != 900 {
		t.Errorf("ListStages = %+v", stages)
	}

	// nil store is a no-op sink.
	var nilStore *RunStore
	if err := nilStore.RecordStage(ctx, sum); err != nil {
		t.Errorf("nil RecordStage: %v", err)
	}
}
