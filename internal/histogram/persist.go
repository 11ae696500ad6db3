package histogram

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// On-disk model format
// ---------------------------------------------------------------------------

type imbalanceBinJSON struct {
	Idx      int     `json:"idx"`
	Lo       float64 `json:"lo"`
	Hi       float64 `json:"hi"`
	Interval string  `json:"interval"`
}

type spreadBinJSON struct {
	Idx      int  `json:"idx"`
	TicksMin int  `json:"ticks_min"`
	TicksMax *int `json:"ticks_max"` // null for the open last bin
}

type ageBinJSON struct {
	Idx int      `json:"idx"`
	Lo  *float64 `json:"lo"` // null for the open first bin
	Hi  *float64 `json:"hi"` // null for the open last bin
}

type lastMoveBinJSON struct {
	Idx  int `json:"idx"`
	Move int `json:"move"`
}

type cellJSON struct {
	Idx       int     `json:"idx"`
	BImb      int     `json:"b_imb"`
	BSpr      int     `json:"b_spr"`
	BAge      int     `json:"b_age"`
	BLast     int     `json:"b_last"`
	N         uint64  `json:"n"`
	NUp       uint64  `json:"n_up"`
	NDown     uint64  `json:"n_down"`
	SumTauMs  float64 `json:"sum_tau_ms"`
	PUp       float64 `json:"p_up"`
	PDown     float64 `json:"p_down"`
	D         float64 `json:"D"`
	MeanTauMs float64 `json:"mean_tau_ms"`
}

type modelJSON struct {
	Symbol        string             `json:"symbol"`
	YearLo        int                `json:"year_lo"`
	YearHi        int                `json:"year_hi"`
	Alpha         float64            `json:"alpha"`
	ImbalanceBins []imbalanceBinJSON `json:"imbalance_bins"`
	SpreadBins    []spreadBinJSON    `json:"spread_bins"`
	AgeDiffMsBins []ageBinJSON       `json:"age_diff_ms_bins"`
	LastMoveBins  []lastMoveBinJSON  `json:"last_move_bins"`
	Cells         []cellJSON         `json:"cells"`
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func (m *Model) toJSON() modelJSON {
	e := m.Bins.ImbalanceEdges
	imb := []imbalanceBinJSON{
		{0, -1, e[0], fmt.Sprintf("[-1,%g)", e[0])},
		{1, e[0], e[1], fmt.Sprintf("[%g,%g)", e[0], e[1])},
		{2, e[1], e[2], fmt.Sprintf("[%g,%g)", e[1], e[2])},
		{3, e[2], e[3], fmt.Sprintf("[%g,%g]", e[2], e[3])},
		{4, e[3], e[4], fmt.Sprintf("(%g,%g]", e[3], e[4])},
		{5, e[4], 1, fmt.Sprintf("(%g,1]", e[4])},
	}

	spr := []spreadBinJSON{
		{0, 0, intp(m.Bins.SpreadTicks[0])},
		{1, m.Bins.SpreadTicks[0] + 1, intp(m.Bins.SpreadTicks[1])},
		{2, m.Bins.SpreadTicks[1] + 1, nil},
	}

	a := m.Bins.AgeEdges
	age := []ageBinJSON{
		{0, nil, floatp(a[0])},
		{1, floatp(a[0]), floatp(a[1])},
		{2, floatp(a[1]), floatp(a[2])},
		{3, floatp(a[2]), floatp(a[3])},
		{4, floatp(a[3]), nil},
	}

	last := []lastMoveBinJSON{{0, -1}, {1, 0}, {2, 1}}

	cells := make([]cellJSON, NCells)
	for k := range cells {
		bImb, bSpr, bAge, bLast := CellCoords(k)
		c := m.Cells[k]
		mean := m.EffectiveTauMs(k)
		cells[k] = cellJSON{
			Idx:       k,
			BImb:      bImb,
			BSpr:      bSpr,
			BAge:      bAge,
			BLast:     bLast,
			N:         c.N,
			NUp:       c.NUp,
			NDown:     c.NDown,
			SumTauMs:  c.SumTauMs,
			PUp:       m.PUp(k),
			PDown:     m.PDown(k),
			D:         m.Direction(k),
			MeanTauMs: mean,
		}
	}

	return modelJSON{
		Symbol:        m.Symbol,
		YearLo:        m.YearLo,
		YearHi:        m.YearHi,
		Alpha:         m.Alpha,
		ImbalanceBins: imb,
		SpreadBins:    spr,
		AgeDiffMsBins: age,
		LastMoveBins:  last,
		Cells:         cells,
	}
}

// Save writes the model with its bin spec to path as JSON.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.toJSON(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load reads a persisted model, validating the bin-spec shape. A bin spec
// present in the file overrides the default.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mj modelJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}

	if len(mj.Cells) != NCells {
		return nil, fmt.Errorf("model %s: %d cells, want %d", path, len(mj.Cells), NCells)
	}

	bins := DefaultBinSpec()
	if len(mj.ImbalanceBins) > 0 || len(mj.SpreadBins) > 0 || len(mj.AgeDiffMsBins) > 0 {
		bins, err = binsFromJSON(mj)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
	}

	m := NewModel(mj.Symbol, mj.YearLo, mj.YearHi, mj.Alpha, bins)
	for _, c := range mj.Cells {
		if c.Idx < 0 || c.Idx >= NCells {
			return nil, fmt.Errorf("model %s: cell index %d out of range", path, c.Idx)
		}
		m.Cells[c.Idx] = CellStats{
			N:        c.N,
			NUp:      c.NUp,
			NDown:    c.NDown,
			SumTauMs: c.SumTauMs,
		}
	}
	return m, nil
}

func binsFromJSON(mj modelJSON) (BinSpec, error) {
	var b BinSpec
	if len(mj.ImbalanceBins) != NImb {
		return b, fmt.Errorf("%d imbalance bins, want %d", len(mj.ImbalanceBins), NImb)
	}
	if len(mj.SpreadBins) != NSpr {
		return b, fmt.Errorf("%d spread bins, want %d", len(mj.SpreadBins), NSpr)
	}
	if len(mj.AgeDiffMsBins) != NAge {
		return b, fmt.Errorf("%d age bins, want %d", len(mj.AgeDiffMsBins), NAge)
	}
	if len(mj.LastMoveBins) != NLast {
		return b, fmt.Errorf("%d last-move bins, want %d", len(mj.LastMoveBins), NLast)
	}

	for i := 0; i < NImb-1; i++ {
		b.ImbalanceEdges = append(b.ImbalanceEdges, mj.ImbalanceBins[i].Hi)
	}
	for i := 0; i < NSpr-1; i++ {
		if mj.SpreadBins[i].TicksMax == nil {
			return b, fmt.Errorf("spread bin %d: null ticks_max before last bin", i)
		}
		b.SpreadTicks = append(b.SpreadTicks, *mj.SpreadBins[i].TicksMax)
	}
	for i := 0; i < NAge-1; i++ {
		if mj.AgeDiffMsBins[i].Hi == nil {
			return b, fmt.Errorf("age bin %d: null hi before last bin", i)
		}
		b.AgeEdges = append(b.AgeEdges, *mj.AgeDiffMsBins[i].Hi)
	}
	b.LastMoveCut = 0.5

	if !b.Valid() {
		return b, fmt.Errorf("invalid bin spec shape")
	}
	return b, nil
}
