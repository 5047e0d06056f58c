package models

import (
	"time"
)

// Market condition labels attached to experiences and learned patterns.
const (
	MarketConditionTrending = "trending"
	MarketConditionRanging  = "ranging"
	MarketConditionVolatile = "volatile"
)

// Experience is one closed trade annotated with the market context observed
// around it. These records feed pattern mining and parameter re-tuning.
type Experience struct {
	Trade           ClosedTrade        `json:"trade"`
	MarketCondition string             `json:"market_condition"`
	EntryContext    map[string]float64 `json:"entry_context,omitempty"`
	ExitContext     map[string]float64 `json:"exit_context,omitempty"`
}

// LearnedPattern aggregates experiences that share a strategy tag and market
// condition. Patterns are append-only; conflicting records for the same key
// coexist and lookups arbitrate by success rate.
type LearnedPattern struct {
	StrategyTag     string    `json:"strategy_tag"`
	MarketCondition string    `json:"market_condition"`
	SuccessRate     float64   `json:"success_rate"`
	AvgReturn       float64   `json:"avg_return"`
	Occurrences     int       `json:"occurrences"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OptimizationRecord captures one parameter re-tuning pass: the metrics that
// drove it and the deltas that were applied.
type OptimizationRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	TradesObserved    int       `json:"trades_observed"`
	WinRate           float64   `json:"win_rate"`
	ProfitFactor      float64   `json:"profit_factor"`
	LeverageDelta     float64   `json:"leverage_delta"`
	PositionSizeDelta float64   `json:"position_size_delta"`
	TakeProfitDelta   float64   `json:"take_profit_delta"`
}
