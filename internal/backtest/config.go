// Package backtest replays labeled events against a fitted histogram model
// as a state-conditioned single-step strategy and aggregates PnL.
package backtest

import (
	"encoding/json"
	"fmt"
	"os"
)

// EdgeMode selects the cost model and edge gating policy.
type EdgeMode int

const (
	// EdgeLegacy trades costlessly whenever the expected edge is positive.
	EdgeLegacy EdgeMode = iota
	// EdgeCostTradeAll applies costs but never gates on the edge.
	EdgeCostTradeAll
	// EdgeCostWithGate applies costs and, when a minimum edge margin is
	// configured, requires |EE| to exceed the fee and slippage cost (spread
	// excluded) plus that margin.
	EdgeCostWithGate
)

// String implements fmt.Stringer.
func (m EdgeMode) String() string {
	switch m {
	case EdgeLegacy:
		return "legacy"
	case EdgeCostTradeAll:
		return "cost-trade-all"
	case EdgeCostWithGate:
		return "cost-with-gate"
	default:
		return fmt.Sprintf("EdgeMode(%d)", int(m))
	}
}

// StrategyConfig holds the per-run strategy parameters.
type StrategyConfig struct {
	FeePrice             float64
	SlipPrice            float64
	MinAbsDirectionScore float64 // 0 disables the magnitude gate
	MinExpectedEdgeBps   float64 // 0 disables the edge gate
	MaxMeanWaitMs        float64 // 0 disables the wait gate
	EdgeMode             EdgeMode
}

// DefaultStrategyConfig returns the documented defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		FeePrice:  0.03,
		SlipPrice: 0.02,
		EdgeMode:  EdgeCostWithGate,
	}
}

// strategyConfigJSON mirrors the flat config file. Pointers distinguish
// absent keys from explicit zeros.
type strategyConfigJSON struct {
	FeePrice             *float64 `json:"fee_price"`
	SlipPrice            *float64 `json:"slip_price"`
	MinAbsDirectionScore *float64 `json:"min_abs_direction_score"`
	MinExpectedEdgeBps   *float64 `json:"min_expected_edge_bps"`
	MaxMeanWaitMs        *float64 `json:"max_mean_wait_ms"`
	EdgeMode             *int     `json:"edge_mode"`
	LegacyMode           *int     `json:"legacy_mode"`
}

// LoadStrategyConfig reads the flat JSON strategy file. All keys are
// optional. A non-zero legacy_mode forces EdgeLegacy regardless of
// edge_mode.
func LoadStrategyConfig(path string) (StrategyConfig, error) {
	cfg := DefaultStrategyConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var raw strategyConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing strategy config %s: %w", path, err)
	}

	if raw.FeePrice != nil {
		cfg.FeePrice = *raw.FeePrice
	}
	if raw.SlipPrice != nil {
		cfg.SlipPrice = *raw.SlipPrice
	}
	if raw.MinAbsDirectionScore != nil {
		cfg.MinAbsDirectionScore = *raw.MinAbsDirectionScore
	}
	if raw.MinExpectedEdgeBps != nil {
		cfg.MinExpectedEdgeBps = *raw.MinExpectedEdgeBps
	}
	if raw.MaxMeanWaitMs != nil {
		cfg.MaxMeanWaitMs = *raw.MaxMeanWaitMs
	}
	if raw.EdgeMode != nil {
		if *raw.EdgeMode < 0 || *raw.EdgeMode > 2 {
			return cfg, fmt.Errorf("strategy config %s: edge_mode %d out of range", path, *raw.EdgeMode)
		}
		cfg.EdgeMode = EdgeMode(*raw.EdgeMode)
	}
	// The legacy alias wins when present and non-zero.
	if raw.LegacyMode != nil && *raw.LegacyMode != 0 {
		cfg.EdgeMode = EdgeLegacy
	}

	return cfg, nil
}
