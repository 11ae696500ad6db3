package nbbo

import (
	"bufio"
	"context"
	"log/slog"
	"sort"
	"sync"

	"microlab/internal/domain"
	"microlab/internal/pipeline"
	"microlab/internal/store"
	"microlab/internal/util"
)

// GridMode selects the output policy of the aggregation stage.
type GridMode string

const (
	// GridEvent emits one tick per millisecond bucket that produced at
	// least one accepted quote.
	GridEvent GridMode = "event"
	// GridClock additionally forward-fills gaps up to the configured bound.
	GridClock GridMode = "clock"
)

// RunnerConfig configures one aggregation run.
type RunnerConfig struct {
	Inputs        []string // raw quote files; sorted before processing
	Grid          GridMode
	MaxFillGapMs  int64
	Workers       int
	Aggregator    AggregatorConfig
	ProgressEvery int64
}

// Summary is the stage A result handed back to the driver.
type Summary struct {
	Shards   int
	Stats    AggregatorStats
	Glitches *GlitchCounts
	TickRows map[int]int64 // per output year
}

// scanBufSize is the line scanner buffer; raw quote lines are short but the
// limit is generous.
const scanBufSize = 1 << 20

type shardResult struct {
	idx   int
	ticks []domain.Tick
	err   error
}

// Run aggregates all input shards into per-year tick partitions. Shards are
// parsed and reduced in parallel; log-return tagging, clock fill, and
// partition writes happen on a single ordered pass so output files are
// deterministic for a given shard ordering.
func Run(ctx context.Context, cfg RunnerConfig, layout store.Layout, log *slog.Logger) (*Summary, error) {
	inputs := append([]string(nil), cfg.Inputs...)
	sort.Strings(inputs)

	sum := &Summary{
		Shards:   len(inputs),
		Glitches: NewGlitchCounts(),
	}

	var (
		mergeMu sync.Mutex
		wg      sync.WaitGroup
	)

	idxCh := make(chan int, len(inputs))
	for i := range inputs {
		idxCh <- i
	}
	close(idxCh)

	resCh := make(chan shardResult, max(cfg.Workers, 1))

	workers := min(max(cfg.Workers, 1), max(len(inputs), 1))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxCh {
				if ctx.Err() != nil {
					return
				}

				local := NewGlitchCounts()
				ticks, stats, err := processShard(inputs[idx], cfg.Aggregator, local)

				// Per-worker counters merge under a single mutex; no
				// per-tick locking.
				mergeMu.Lock()
				sum.Glitches.Merge(local)
				sum.Stats.Lines += stats.Lines
				sum.Stats.Accepted += stats.Accepted
				sum.Stats.SessionSkipped += stats.SessionSkipped
				sum.Stats.CondSkipped += stats.CondSkipped
				sum.Stats.VenueSkipped += stats.VenueSkipped
				sum.Stats.Ticks += stats.Ticks
				mergeMu.Unlock()

				resCh <- shardResult{idx: idx, ticks: ticks, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resCh)
	}()

	// Single ordered writer: shards land in input order regardless of which
	// worker finished first.
	kind := store.TicksEvent
	if cfg.Grid == GridClock {
		kind = store.TicksClock
	}
	pw := store.NewPartitionedWriter[store.TickRecord](func(year int) string {
		return layout.TickPath(kind, year)
	})

	progress := util.NewProgressLogger(log, "aggregate", cfg.ProgressEvery)
	sink := func(t domain.Tick) error {
		progress.Add(1)
		return pw.Write(domain.YearOf(t.TS), store.NewTickRecord(t))
	}

	push := sink
	if cfg.Grid == GridClock {
		filler := NewClockFiller(cfg.MaxFillGapMs, sink)
		push = filler.Push
	}

	var tagger ReturnTagger
	var firstErr error
	pending := make(map[int]shardResult)
	next := 0
	for res := range resCh {
		pending[res.idx] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if r.err != nil {
				if firstErr == nil {
					firstErr = pipeline.FailShard("aggregate", inputs[r.idx], r.err)
				}
				continue
			}
			if firstErr != nil {
				continue
			}
			for _, t := range r.ticks {
				if err := push(tagger.Tag(t)); err != nil {
					firstErr = pipeline.Fail("aggregate", err)
					break
				}
			}
		}
	}

	if err := pw.Close(); err != nil && firstErr == nil {
		firstErr = pipeline.Fail("aggregate", err)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sum.TickRows = make(map[int]int64)
	for _, y := range pw.Years() {
		sum.TickRows[y] = pw.Rows(y)
	}

	log.Info("aggregation complete",
		"shards", sum.Shards,
		"lines", sum.Stats.Lines,
		"accepted", sum.Stats.Accepted,
		"ticks", sum.Stats.Ticks,
		"years", pw.Years(),
	)
	return sum, nil
}

// processShard parses and reduces one raw quote file. The header row is
// discarded. Returned ticks carry nil log returns.
func processShard(path string, cfg AggregatorConfig, glitches *GlitchCounts) ([]domain.Tick, AggregatorStats, error) {
	r, closeFn, err := MakeCompressedReader(path, false)
	if err != nil {
		return nil, AggregatorStats{}, err
	}
	defer closeFn()

	var ticks []domain.Tick
	agg := NewAggregator(cfg, glitches, func(t domain.Tick) error {
		ticks = append(ticks, t)
		return nil
	})

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), scanBufSize)

	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		if err := agg.PushLine(sc.Text()); err != nil {
			return nil, agg.Stats(), err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, agg.Stats(), err
	}
	if err := agg.Flush(); err != nil {
		return nil, agg.Stats(), err
	}
	return ticks, agg.Stats(), nil
}

// SynthesizeClock derives the clock-grid partitions from cached event-grid
// partitions by running them through the same bounded-fill routine as the
// direct path.
func SynthesizeClock(layout store.Layout, maxGapMs int64, log *slog.Logger) (map[int]int64, error) {
	years, err := layout.ListYears(store.TicksEvent)
	if err != nil {
		return nil, pipeline.Fail("aggregate", err)
	}

	pw := store.NewPartitionedWriter[store.TickRecord](func(year int) string {
		return layout.TickPath(store.TicksClock, year)
	})
	filler := NewClockFiller(maxGapMs, func(t domain.Tick) error {
		return pw.Write(domain.YearOf(t.TS), store.NewTickRecord(t))
	})

	for _, y := range years {
		err := store.ScanFile[store.TickRecord](layout.TickPath(store.TicksEvent, y), func(batch []store.TickRecord) error {
			for _, rec := range batch {
				if err := filler.Push(rec.Tick()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			pw.Close()
			return nil, pipeline.FailShard("aggregate", layout.TickPath(store.TicksEvent, y), err)
		}
	}

	if err := pw.Close(); err != nil {
		return nil, pipeline.Fail("aggregate", err)
	}

	rows := make(map[int]int64)
	for _, y := range pw.Years() {
		rows[y] = pw.Rows(y)
	}
	log.Info("clock grid synthesized", "years", pw.Years())
	return rows, nil
}
