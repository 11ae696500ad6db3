// Package store handles on-disk persistence: Parquet tick/event partitions,
// the SQLite run-summary database, and the data directory layout.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Layout maps pipeline artifacts to paths under a single data directory.
//
// Layout on disk:
//
//	<DataDir>/<SYMBOL>/ticks-event/<YYYY>.parquet
//	<DataDir>/<SYMBOL>/ticks-clock/<YYYY>.parquet
//	<DataDir>/<SYMBOL>/ticks-winsor/<YYYY>.parquet
//	<DataDir>/<SYMBOL>/ticks-clean/<YYYY>.parquet
//	<DataDir>/<SYMBOL>/events/<YYYY>.parquet
//	<DataDir>/<SYMBOL>/model/model_<YLO>_<YHI>.json
//	<DataDir>/<SYMBOL>/backtest/trades_<YYYY>.csv
//	<DataDir>/<SYMBOL>/backtest/daily_<YYYY>.csv
//	<DataDir>/<SYMBOL>/reports/...
type Layout struct {
	DataDir string
	Symbol  string
}

// TickKind names one of the tick partitions.
type TickKind string

const (
	TicksEvent  TickKind = "ticks-event"
	TicksClock  TickKind = "ticks-clock"
	TicksWinsor TickKind = "ticks-winsor"
	TicksClean  TickKind = "ticks-clean"
)

func (l Layout) symbolDir() string {
	return filepath.Join(l.DataDir, strings.ToUpper(l.Symbol))
}

// TickPath returns the per-year Parquet file for the given tick partition.
func (l Layout) TickPath(kind TickKind, year int) string {
	return filepath.Join(l.symbolDir(), string(kind), fmt.Sprintf("%d.parquet", year))
}

// EventPath returns the per-year labeled-event Parquet file.
func (l Layout) EventPath(year int) string {
	return filepath.Join(l.symbolDir(), "events", fmt.Sprintf("%d.parquet", year))
}

// ModelPath returns the histogram model file for a year range.
func (l Layout) ModelPath(yearLo, yearHi int) string {
	return filepath.Join(l.symbolDir(), "model", fmt.Sprintf("model_%d_%d.json", yearLo, yearHi))
}

// TradesPath returns the per-year backtest trades table.
func (l Layout) TradesPath(year int) string {
	return filepath.Join(l.symbolDir(), "backtest", fmt.Sprintf("trades_%d.csv", year))
}

// DailyPath returns the per-year backtest daily PnL table.
func (l Layout) DailyPath(year int) string {
	return filepath.Join(l.symbolDir(), "backtest", fmt.Sprintf("daily_%d.csv", year))
}

// ReportPath returns a path under the reports directory.
func (l Layout) ReportPath(name string) string {
	return filepath.Join(l.symbolDir(), "reports", name)
}

// ListYears scans a tick partition directory for <YYYY>.parquet files and
// returns the years present, ascending.
func (l Layout) ListYears(kind TickKind) ([]int, error) {
	return listYearFiles(filepath.Join(l.symbolDir(), string(kind)))
}

// ListEventYears scans the events directory for <YYYY>.parquet files.
func (l Layout) ListEventYears() ([]int, error) {
	return listYearFiles(filepath.Join(l.symbolDir(), "events"))
}

func listYearFiles(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var years []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		y, err := strconv.Atoi(strings.TrimSuffix(name, ".parquet"))
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}
