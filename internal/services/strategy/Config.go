package strategy

import (
	"CryptoBacktester/internal/models"
)

// Config carries every signal-side threshold. The named presets below are the
// strategy variants: same pipeline, different weights and gates.
type Config struct {
	Window int // trailing candles fed to the rules

	// Combination and gating
	MinConfidence    float64
	MinStrength      float64
	MinAgreeingRules int
	AgreementRatio   float64
	RuleWeights      map[string]float64
	AllowedStates    []string
	StrongThreshold  float64

	// Market-state classification
	TrendThreshold    float64
	VolatileThreshold float64

	// Trend / momentum rules
	FastEMAPeriod int
	SlowEMAPeriod int
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64

	// Mean reversion (Bollinger)
	BBPeriod     int
	BBDeviations float64

	// Volatility spike
	SpikeVolMultiple float64

	// Fake breakout
	BreakoutLookback   int
	BreakoutMinPct     float64
	BreakoutMaxPct     float64
	BreakoutVolumeMin  float64
	BreakoutConfirm    int // candles that must close back on the wrong side
	LevelStepPct       float64
	LevelMinTouches    int
	VolumeAvgExclusion int

	// Learned-pattern confidence blending
	PatternAlpha float64
}

func DefaultConfig() Config {
	return Config{
		Window:             50,
		MinConfidence:      0.55,
		MinStrength:        0.3,
		MinAgreeingRules:   1,
		AgreementRatio:     0.5,
		StrongThreshold:    0.7,
		TrendThreshold:     0.015,
		VolatileThreshold:  0.012,
		FastEMAPeriod:      12,
		SlowEMAPeriod:      26,
		RSIPeriod:          14,
		RSIOverbought:      70,
		RSIOversold:        30,
		BBPeriod:           20,
		BBDeviations:       2.0,
		SpikeVolMultiple:   2.5,
		BreakoutLookback:   20,
		BreakoutMinPct:     0.002,
		BreakoutMaxPct:     0.03,
		BreakoutVolumeMin:  1.8,
		BreakoutConfirm:    3,
		LevelStepPct:       0.002,
		LevelMinTouches:    3,
		VolumeAvgExclusion: 1,
		PatternAlpha:       0.7,
		RuleWeights: map[string]float64{
			RuleTrendFollow:     0.35,
			RuleMeanReversion:   0.20,
			RuleVolatilitySpike: 0.15,
			RuleMomentumExtreme: 0.30,
		},
		AllowedStates: []string{models.MarketConditionTrending, models.MarketConditionRanging, models.MarketConditionVolatile},
	}
}

// FakeBreakoutPreset trades failed breakouts contrarian; other rules only
// confirm.
func FakeBreakoutPreset() Config {
	cfg := DefaultConfig()
	cfg.RuleWeights = map[string]float64{
		RuleFakeBreakout:    0.60,
		RuleMomentumExtreme: 0.25,
		RuleMeanReversion:   0.15,
	}
	cfg.MinConfidence = 0.6
	cfg.AllowedStates = []string{models.MarketConditionRanging, models.MarketConditionVolatile}
	return cfg
}

// ContrarianPreset leans on mean reversion and momentum extremes.
func ContrarianPreset() Config {
	cfg := DefaultConfig()
	cfg.RuleWeights = map[string]float64{
		RuleMeanReversion:   0.45,
		RuleMomentumExtreme: 0.40,
		RuleFakeBreakout:    0.15,
	}
	cfg.AllowedStates = []string{models.MarketConditionRanging}
	return cfg
}

// TrendPreset requires two agreeing rules before entering with the trend.
func TrendPreset() Config {
	cfg := DefaultConfig()
	cfg.RuleWeights = map[string]float64{
		RuleTrendFollow:     0.55,
		RuleVolatilitySpike: 0.20,
		RuleMomentumExtreme: 0.25,
	}
	cfg.MinAgreeingRules = 2
	cfg.AllowedStates = []string{models.MarketConditionTrending}
	return cfg
}
