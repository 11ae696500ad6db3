package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"microlab/internal/domain"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// TickRecord is the Parquet schema for per-ms NBBO ticks.
type TickRecord struct {
	TS        uint64   `parquet:"ts"`
	Mid       float32  `parquet:"mid"`
	LogReturn *float32 `parquet:"log_return,optional"`
	BidSize   float32  `parquet:"bid_size"`
	AskSize   float32  `parquet:"ask_size"`
	Spread    float32  `parquet:"spread"`
	Bid       float32  `parquet:"bid"`
	Ask       float32  `parquet:"ask"`
}

// NewTickRecord converts a domain Tick to its on-disk form.
func NewTickRecord(t domain.Tick) TickRecord {
	r := TickRecord{
		TS:      t.TS,
		Mid:     float32(t.Mid),
		BidSize: float32(t.BidSize),
		AskSize: float32(t.AskSize),
		Spread:  float32(t.Spread),
		Bid:     float32(t.Bid),
		Ask:     float32(t.Ask),
	}
	if t.LogReturn != nil {
		lr := float32(*t.LogReturn)
		r.LogReturn = &lr
	}
	return r
}

// Tick converts the on-disk record back to a domain Tick.
func (r TickRecord) Tick() domain.Tick {
	t := domain.Tick{
		TS:      r.TS,
		Mid:     float64(r.Mid),
		BidSize: float64(r.BidSize),
		AskSize: float64(r.AskSize),
		Spread:  float64(r.Spread),
		Bid:     float64(r.Bid),
		Ask:     float64(r.Ask),
	}
	if r.LogReturn != nil {
		lr := float64(*r.LogReturn)
		t.LogReturn = &lr
	}
	return t
}

// EventRecord is the Parquet schema for labeled events. Consumers look up
// fields by name; all feature columns are float64.
type EventRecord struct {
	TS        uint64  `parquet:"ts"`
	Date      uint32  `parquet:"date"`
	Mid       float64 `parquet:"mid"`
	MidNext   float64 `parquet:"mid_next"`
	Spread    float64 `parquet:"spread"`
	Imbalance float64 `parquet:"imbalance"`
	AgeDiffMs float64 `parquet:"age_diff_ms"`
	LastMove  float64 `parquet:"last_move"`
	Y         float64 `parquet:"y"`
	TauMs     float64 `parquet:"tau_ms"`
}

// NewEventRecord converts a domain LabeledEvent to its on-disk form.
func NewEventRecord(e domain.LabeledEvent) EventRecord {
	return EventRecord{
		TS:        e.TS,
		Date:      e.Day,
		Mid:       e.Mid,
		MidNext:   e.MidNext,
		Spread:    e.Spread,
		Imbalance: e.Imbalance,
		AgeDiffMs: e.AgeDiffMs,
		LastMove:  float64(e.LastMove),
		Y:         float64(e.Y),
		TauMs:     float64(e.TauMs),
	}
}

// Event converts the on-disk record back to a domain LabeledEvent.
func (r EventRecord) Event() domain.LabeledEvent {
	return domain.LabeledEvent{
		TS:        r.TS,
		Day:       r.Date,
		Mid:       r.Mid,
		MidNext:   r.MidNext,
		Spread:    r.Spread,
		Imbalance: r.Imbalance,
		AgeDiffMs: r.AgeDiffMs,
		LastMove:  int8(r.LastMove),
		Y:         int8(r.Y),
		TauMs:     int64(r.TauMs),
	}
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// scanBatchSize is the row batch used by ScanFile readers.
const scanBatchSize = 65536

// WriteParquetFile writes all records to a single Parquet file, creating
// parent directories as needed.
func WriteParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// ReadParquetFile reads a whole Parquet file into memory.
func ReadParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// ScanFile streams a Parquet file through fn in batches, bounding memory on
// year-sized partitions.
func ScanFile[T any](path string, fn func([]T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	buf := make([]T, scanBatchSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// ---------------------------------------------------------------------------
// Year-partitioned streaming writer
// ---------------------------------------------------------------------------

// writeBatchSize is the buffered row count per open partition writer.
const writeBatchSize = 65536

type partFile[T any] struct {
	f   *os.File
	w   *parquet.GenericWriter[T]
	buf []T
}

// PartitionedWriter streams records into per-year Parquet files. Writers are
// opened lazily on first write for a year and each is closed exactly once in
// Close. Reopening a year after Close is a logic error.
type PartitionedWriter[T any] struct {
	pathFor func(year int) string
	files   map[int]*partFile[T]
	rows    map[int]int64
	closed  bool
}

// NewPartitionedWriter creates a PartitionedWriter that resolves output
// paths through pathFor.
func NewPartitionedWriter[T any](pathFor func(year int) string) *PartitionedWriter[T] {
	return &PartitionedWriter[T]{
		pathFor: pathFor,
		files:   make(map[int]*partFile[T]),
		rows:    make(map[int]int64),
	}
}

// Write appends one record to the given year's file.
func (p *PartitionedWriter[T]) Write(year int, rec T) error {
	if p.closed {
		return fmt.Errorf("partitioned writer: write to year %d after close", year)
	}

	pf, ok := p.files[year]
	if !ok {
		path := p.pathFor(year)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		pf = &partFile[T]{
			f:   f,
			w:   parquet.NewGenericWriter[T](f),
			buf: make([]T, 0, writeBatchSize),
		}
		p.files[year] = pf
	}

	pf.buf = append(pf.buf, rec)
	p.rows[year]++
	if len(pf.buf) >= writeBatchSize {
		return p.flush(pf)
	}
	return nil
}

func (p *PartitionedWriter[T]) flush(pf *partFile[T]) error {
	if len(pf.buf) == 0 {
		return nil
	}
	if _, err := pf.w.Write(pf.buf); err != nil {
		return err
	}
	pf.buf = pf.buf[:0]
	return nil
}

// Rows returns the number of records written for a year.
func (p *PartitionedWriter[T]) Rows(year int) int64 {
	return p.rows[year]
}

// Years returns the years written so far, ascending.
func (p *PartitionedWriter[T]) Years() []int {
	years := make([]int, 0, len(p.files))
	for y := range p.files {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Close flushes and closes every open year file. It is safe to call once.
func (p *PartitionedWriter[T]) Close() error {
	if p.closed {
		return errors.New("partitioned writer: double close")
	}
	p.closed = true

	var firstErr error
	for _, y := range p.Years() {
		pf := p.files[y]
		if err := p.flush(pf); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := pf.w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := pf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
