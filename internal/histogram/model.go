package histogram

import (
	"math"

	"microlab/internal/domain"
)

// CellStats accumulates outcome counts for one grid cell. Flat moves (y=0)
// count toward N and SumTauMs only.
type CellStats struct {
	N        uint64
	NUp      uint64
	NDown    uint64
	SumTauMs float64
}

// Model is the 4-D categorical model: per-cell counts plus Laplace
// smoothing. It is immutable once fitted; the backtester reads it without
// synchronization.
type Model struct {
	Symbol string
	YearLo int
	YearHi int
	Alpha  float64
	Bins   BinSpec
	Cells  [NCells]CellStats
}

// NewModel creates an empty model over the given bin spec.
func NewModel(symbol string, yearLo, yearHi int, alpha float64, bins BinSpec) *Model {
	return &Model{
		Symbol: symbol,
		YearLo: yearLo,
		YearHi: yearHi,
		Alpha:  alpha,
		Bins:   bins,
	}
}

// Add folds one labeled event into its cell.
func (m *Model) Add(e domain.LabeledEvent) {
	k := m.Bins.Cell(e.Imbalance, e.Spread, e.AgeDiffMs, float64(e.LastMove))
	c := &m.Cells[k]
	c.N++
	if e.Y > 0 {
		c.NUp++
	} else if e.Y < 0 {
		c.NDown++
	}
	c.SumTauMs += float64(e.TauMs)
}

// Cell returns the event's cell index under the model's bin spec.
func (m *Model) Cell(imbalance, spread, ageDiffMs, lastMove float64) int {
	return m.Bins.Cell(imbalance, spread, ageDiffMs, lastMove)
}

// PUp returns the smoothed up-probability of a cell, falling back to 0.5
// for cells with no signed moves.
func (m *Model) PUp(k int) float64 {
	c := m.Cells[k]
	signed := c.NUp + c.NDown
	if signed == 0 && m.Alpha == 0 {
		return 0.5
	}
	return (float64(c.NUp) + m.Alpha) / (float64(signed) + 2*m.Alpha)
}

// PDown returns 1 - PUp.
func (m *Model) PDown(k int) float64 {
	return 1 - m.PUp(k)
}

// Direction returns the signed predictive edge 2*PUp - 1.
func (m *Model) Direction(k int) float64 {
	return 2*m.PUp(k) - 1
}

// MeanTauMs returns the mean waiting time of a cell, NaN when the cell is
// empty. Persisted models substitute the conservative sentinel; in-memory
// queries see the raw value.
func (m *Model) MeanTauMs(k int) float64 {
	c := m.Cells[k]
	if c.N == 0 {
		return math.NaN()
	}
	return c.SumTauMs / float64(c.N)
}

// GlobalMeanTauMs returns the mean waiting time over all cells.
func (m *Model) GlobalMeanTauMs() float64 {
	var n uint64
	var sum float64
	for k := range m.Cells {
		n += m.Cells[k].N
		sum += m.Cells[k].SumTauMs
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// sentinelTauMs is the persisted waiting time for empty cells: twice the
// global mean, conservative for wait gating.
func (m *Model) sentinelTauMs() float64 {
	g := m.GlobalMeanTauMs()
	if math.IsNaN(g) {
		return math.NaN()
	}
	return 2 * g
}

// EffectiveTauMs returns the mean waiting time of a cell with the sentinel
// substituted for empty cells, matching the persisted model.
func (m *Model) EffectiveTauMs(k int) float64 {
	if mean := m.MeanTauMs(k); !math.IsNaN(mean) {
		return mean
	}
	return m.sentinelTauMs()
}
