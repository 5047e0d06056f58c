package backtest

import (
	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/services/analytics"
	"CryptoBacktester/internal/services/experience"
	"CryptoBacktester/internal/services/position"
	"CryptoBacktester/internal/services/risk"
	"CryptoBacktester/internal/services/strategy"
)

// Terminal run statuses. A fatal risk stop is an expected outcome and kept
// distinct from normal end-of-data completion.
const (
	StatusCompleted           = "completed"
	StatusStoppedDrawdown     = "stopped_drawdown"
	StatusStoppedCatastrophic = "stopped_catastrophic"
)

// Config composes every component's settings for one run. It is immutable
// once the engine is built.
type Config struct {
	Symbol           string
	TimeFrame        string
	InitialCapital   float64
	MaxOpenPositions int

	// Closed trades between experience-store writes; 0 saves only at the end.
	SaveEvery int

	Strategy  strategy.Config
	Bounds    strategy.ParameterBounds
	Risk      risk.Config
	Position  position.Config
	Analytics analytics.Config
	Learner   experience.Config
}

func DefaultConfig() Config {
	return Config{
		Symbol:           "BTCUSDT",
		TimeFrame:        models.CandleTimeFrame5m,
		InitialCapital:   10000,
		MaxOpenPositions: 1,
		SaveEvery:        50,
		Strategy:         strategy.DefaultConfig(),
		Bounds:           strategy.DefaultParameterBounds(),
		Risk:             risk.DefaultConfig(),
		Position:         position.DefaultConfig(),
		Analytics:        analytics.DefaultConfig(),
		Learner:          experience.DefaultConfig(),
	}
}

// Result is the read-only outcome of one run: what happened, the trades, the
// equity curve, and the performance report.
type Result struct {
	Status     string
	Trades     []models.ClosedTrade
	Equity     []analytics.EquityPoint
	Capital    models.CapitalState
	Report     analytics.Report
	Parameters strategy.Parameters
}
