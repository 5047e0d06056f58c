package strategy

import (
	"math"

	"CryptoBacktester/internal/models"
)

// fakeBreakoutRule flags a breakout beyond a trailing support/resistance
// level that failed to follow through: price pushed past the level by more
// than the minimum but less than the maximum percentage, on confirming
// volume, and the next K candles closed back on the wrong side. The signal
// is contrarian to the breakout direction.
func (g *SignalGenerator) fakeBreakoutRule(window []models.Candle) RuleResult {
	res := RuleResult{Name: RuleFakeBreakout, Action: ActionHold}

	k := g.cfg.BreakoutConfirm
	lookback := g.cfg.BreakoutLookback
	if len(window) < lookback+k+1 {
		return res
	}

	breakIdx := len(window) - 1 - k
	levelWindow := window[breakIdx-lookback : breakIdx]
	highs := make([]float64, len(levelWindow))
	lows := make([]float64, len(levelWindow))
	for i, c := range levelWindow {
		highs[i] = c.High
		lows[i] = c.Low
	}
	levels := g.levels.Find(highs, lows)
	if len(levels) == 0 {
		return res
	}

	breakout := window[breakIdx]
	volumes := make([]float64, breakIdx+1)
	for i := 0; i <= breakIdx; i++ {
		volumes[i] = window[i].Volume
	}
	volumeRatio := g.vol.VolumeRatio(volumes, g.cfg.VolumeAvgExclusion)
	if volumeRatio < g.cfg.BreakoutVolumeMin {
		return res
	}

	confirm := window[breakIdx+1:]
	for _, level := range levels {
		if level.Price <= 0 {
			continue
		}
		displacement := (breakout.Close - level.Price) / level.Price

		// Upside breakout over resistance that failed: trade short.
		if displacement > g.cfg.BreakoutMinPct && displacement < g.cfg.BreakoutMaxPct {
			if closedBackBelow(confirm, level.Price) {
				return g.breakoutResult(ActionShort, displacement, level.Strength, volumeRatio)
			}
		}

		// Downside breakout under support that failed: trade long.
		if -displacement > g.cfg.BreakoutMinPct && -displacement < g.cfg.BreakoutMaxPct {
			if closedBackAbove(confirm, level.Price) {
				return g.breakoutResult(ActionLong, -displacement, level.Strength, volumeRatio)
			}
		}
	}
	return res
}

func (g *SignalGenerator) breakoutResult(action Action, displacement, levelStrength, volumeRatio float64) RuleResult {
	strength := math.Min(displacement/g.cfg.BreakoutMaxPct+levelStrength, 1)
	confidence := 0.55 + 0.1*math.Min(volumeRatio/g.cfg.BreakoutVolumeMin, 2) + levelStrength
	return RuleResult{
		Name:       RuleFakeBreakout,
		Action:     action,
		Strength:   math.Max(strength, 0.4),
		Confidence: math.Min(confidence, 0.95),
	}
}

func closedBackBelow(candles []models.Candle, level float64) bool {
	if len(candles) == 0 {
		return false
	}
	for _, c := range candles {
		if c.Close > level {
			return false
		}
	}
	return true
}

func closedBackAbove(candles []models.Candle, level float64) bool {
	if len(candles) == 0 {
		return false
	}
	for _, c := range candles {
		if c.Close < level {
			return false
		}
	}
	return true
}
