package histogram

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func fittedModel() *Model {
	m := NewModel("TEST", 2019, 2021, 1, DefaultBinSpec())
	for i := 0; i < 3; i++ {
		m.Add(eventInCell(1, 10))
	}
	m.Add(eventInCell(-1, 10))
	m.Add(eventInCell(0, 20))
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	m := fittedModel()
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Symbol != "TEST" || loaded.YearLo != 2019 || loaded.YearHi != 2021 {
		t.Errorf("header = %s %d %d", loaded.Symbol, loaded.YearLo, loaded.YearHi)
	}
	if loaded.Alpha != 1 {
		t.Errorf("alpha = %v", loaded.Alpha)
	}
	if loaded.Cells != m.Cells {
		t.Error("cell stats differ after round trip")
	}

	// Persist -> load -> persist is identity.
	path2 := filepath.Join(dir, "model2.json")
	if err := loaded.Save(path2); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	a, _ := os.ReadFile(path)
	b, _ := os.ReadFile(path2)
	if string(a) != string(b) {
		t.Error("persist -> load -> persist changed the file")
	}
}

func TestPersistedSentinelForEmptyCells(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := fittedModel().Save(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var mj struct {
		Cells []struct {
			N         uint64  `json:"n"`
			MeanTauMs float64 `json:"mean_tau_ms"`
		} `json:"cells"`
	}
	if err := json.Unmarshal(data, &mj); err != nil {
		t.Fatal(err)
	}
	if len(mj.Cells) != NCells {
		t.Fatalf("cells = %d", len(mj.Cells))
	}

	// Global mean tau is 60/5 = 12; empty cells persist twice that.
	var sawEmpty bool
	for _, c := range mj.Cells {
		if c.N == 0 {
			sawEmpty = true
			if c.MeanTauMs != 24 {
				t.Errorf("empty cell mean_tau_ms = %v, want sentinel 24", c.MeanTauMs)
			}
		}
	}
	if !sawEmpty {
		t.Fatal("expected empty cells in the fixture")
	}
}

func TestLoadRejectsWrongCellCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(`{"symbol":"X","cells":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for wrong cell count")
	}
}

func TestLoadRejectsWrongBinCount(t *testing.T) {
	m := fittedModel()
	mj := m.toJSON()
	mj.SpreadBins = mj.SpreadBins[:1]

	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	data, err := json.Marshal(mj)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for wrong bin-spec size")
	}
}
