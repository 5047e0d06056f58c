package risk

import (
	"fmt"
	"math"
	"time"

	"CryptoBacktester/internal/services/strategy"
)

type SizingMethod string

const (
	SizingFixedFraction SizingMethod = "fixed_fraction"
	SizingKelly         SizingMethod = "kelly"
)

type Config struct {
	Method SizingMethod

	// Fixed-fraction sizing
	MinFraction float64
	MaxFraction float64

	// Kelly sizing
	KellyRewardRisk float64 // b: expected reward:risk ratio
	KellyWinProb    float64 // p: assumed win probability
	KellyCap        float64

	// Leverage band
	MinLeverage               float64
	MaxLeverage               float64
	LeverageDrawdownThreshold float64

	// Entry gating
	MaxDailyTrades int
	Cooldown       time.Duration

	// Drawdown circuit breakers: Halt blocks new entries, Fatal ends the run.
	HaltDrawdown  float64
	FatalDrawdown float64
}

func DefaultConfig() Config {
	return Config{
		Method:                    SizingFixedFraction,
		MinFraction:               0.01,
		MaxFraction:               0.20,
		KellyRewardRisk:           2.0,
		KellyWinProb:              0.5,
		KellyCap:                  0.25,
		MinLeverage:               1,
		MaxLeverage:               20,
		LeverageDrawdownThreshold: 0.05,
		MaxDailyTrades:            10,
		Cooldown:                  30 * time.Minute,
		HaltDrawdown:              0.15,
		FatalDrawdown:             0.30,
	}
}

// Gate is the per-run entry-gating state: daily trade count and cooldown
// expiry. It is plain data, recomputed/advanced once per step by the manager.
type Gate struct {
	DailyTrades   int
	Day           time.Time
	CooldownUntil time.Time
}

// Manager sizes positions, picks leverage, and gates entries under the
// drawdown circuit breakers. The shared Parameters give the learning loop a
// handle on leverage and sizing bases.
type Manager struct {
	cfg    Config
	params *strategy.Parameters
}

func NewManager(cfg Config, params *strategy.Parameters) *Manager {
	return &Manager{cfg: cfg, params: params}
}

// PositionFraction returns the capital fraction to commit for a signal with
// the given confidence, per the configured sizing method.
func (m *Manager) PositionFraction(confidence float64) float64 {
	switch m.cfg.Method {
	case SizingKelly:
		return m.KellyFraction(m.cfg.KellyRewardRisk, m.cfg.KellyWinProb)
	default:
		f := m.params.PositionSizeBase * confidence
		return clamp(f, m.cfg.MinFraction, m.cfg.MaxFraction)
	}
}

// KellyFraction computes f = (b*p - q) / b, clamped to [0, KellyCap] so a
// noisy edge estimate cannot over-leverage the account.
func (m *Manager) KellyFraction(b, p float64) float64 {
	if b <= 0 {
		return 0
	}
	q := 1 - p
	f := (b*p - q) / b
	return clamp(f, 0, m.cfg.KellyCap)
}

// Leverage scales the tunable leverage base by signal confidence, then backs
// off monotonically once drawdown crosses the threshold.
func (m *Manager) Leverage(confidence, drawdown float64) float64 {
	leverage := m.params.Leverage * confidence
	if drawdown > m.cfg.LeverageDrawdownThreshold {
		leverage *= 1 - drawdown
	}
	return clamp(leverage, m.cfg.MinLeverage, m.cfg.MaxLeverage)
}

// Authorize decides whether a new entry is allowed right now. A refusal is
// expected control flow, not an error.
func (m *Manager) Authorize(gate *Gate, now time.Time, drawdown float64) (bool, string) {
	if drawdown >= m.cfg.HaltDrawdown {
		return false, fmt.Sprintf("drawdown %.1f%% at halt threshold", drawdown*100)
	}
	if now.Before(gate.CooldownUntil) {
		return false, "cooldown active"
	}

	day := now.Truncate(24 * time.Hour)
	if !day.Equal(gate.Day) {
		// New trading day resets the count.
		gate.Day = day
		gate.DailyTrades = 0
	}
	if gate.DailyTrades >= m.cfg.MaxDailyTrades {
		return false, "daily trade cap reached"
	}
	return true, ""
}

// RecordEntry books an authorized entry against the daily cap.
func (m *Manager) RecordEntry(gate *Gate, now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if !day.Equal(gate.Day) {
		gate.Day = day
		gate.DailyTrades = 0
	}
	gate.DailyTrades++
}

// RecordClose starts the cooldown window after a position closes.
func (m *Manager) RecordClose(gate *Gate, now time.Time) {
	gate.CooldownUntil = now.Add(m.cfg.Cooldown)
}

// FatalBreach reports whether drawdown has crossed the hard stop that
// terminates the run.
func (m *Manager) FatalBreach(drawdown float64) bool {
	return drawdown >= m.cfg.FatalDrawdown
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
