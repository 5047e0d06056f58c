package strategy

import (
	"math"
)

// trendFollowRule goes with the window displacement when the fast EMA sits on
// the same side, with MACD histogram agreement as a confidence bump.
func (g *SignalGenerator) trendFollowRule(closes []float64) RuleResult {
	res := RuleResult{Name: RuleTrendFollow, Action: ActionHold}

	fast := g.ema.Last(closes, g.cfg.FastEMAPeriod)
	slow := g.ema.Last(closes, g.cfg.SlowEMAPeriod)
	trend := g.vol.Trend(closes)

	switch {
	case fast > slow && trend > 0:
		res.Action = ActionLong
	case fast < slow && trend < 0:
		res.Action = ActionShort
	default:
		return res
	}

	res.Strength = math.Min(math.Abs(trend)/g.cfg.TrendThreshold, 1)
	res.Confidence = 0.5 + 0.3*res.Strength

	macd := g.macd.Calculate(closes)
	if (res.Action == ActionLong && macd.Histogram > 0) ||
		(res.Action == ActionShort && macd.Histogram < 0) {
		res.Confidence += 0.1
	}
	res.Confidence = math.Min(res.Confidence, 1)
	return res
}

// meanReversionRule fades closes outside the Bollinger envelope.
func (g *SignalGenerator) meanReversionRule(closes []float64) RuleResult {
	res := RuleResult{Name: RuleMeanReversion, Action: ActionHold}

	upper, middle, lower, width := g.bbands.CalculateOne(closes, g.cfg.BBPeriod, g.cfg.BBDeviations)
	if width == 0 {
		return res
	}
	last := closes[len(closes)-1]
	band := upper - middle

	switch {
	case last > upper:
		res.Action = ActionShort
		res.Strength = math.Min((last-upper)/band, 1)
	case last < lower:
		res.Action = ActionLong
		res.Strength = math.Min((lower-last)/band, 1)
	default:
		return res
	}
	// Any close beyond the envelope is already a meaningful excursion.
	res.Strength = math.Max(res.Strength, 0.4)
	res.Confidence = 0.5 + 0.3*res.Strength
	return res
}

// volatilitySpikeRule fires when recent volatility is a multiple of the
// window baseline, following short-term momentum.
func (g *SignalGenerator) volatilitySpikeRule(closes []float64) RuleResult {
	res := RuleResult{Name: RuleVolatilitySpike, Action: ActionHold}
	if len(closes) < 15 {
		return res
	}

	baseline := g.vol.Calculate(closes[:len(closes)-5])
	recent := g.vol.Calculate(closes[len(closes)-6:])
	if baseline == 0 {
		return res
	}
	ratio := recent / baseline
	if ratio < g.cfg.SpikeVolMultiple {
		return res
	}

	momentum := g.vol.Trend(closes[len(closes)-6:])
	if momentum > 0 {
		res.Action = ActionLong
	} else if momentum < 0 {
		res.Action = ActionShort
	} else {
		return res
	}

	res.Strength = math.Min(ratio/(2*g.cfg.SpikeVolMultiple), 1)
	res.Confidence = 0.5 + 0.25*res.Strength
	return res
}

// momentumRule fades RSI extremes: overbought proposes a short, oversold a
// long.
func (g *SignalGenerator) momentumRule(closes []float64) RuleResult {
	res := RuleResult{Name: RuleMomentumExtreme, Action: ActionHold}

	rsi := g.rsi.Calculate(closes, g.cfg.RSIPeriod)
	switch {
	case rsi >= g.cfg.RSIOverbought:
		res.Action = ActionShort
		res.Strength = (rsi - g.cfg.RSIOverbought) / (100 - g.cfg.RSIOverbought)
	case rsi <= g.cfg.RSIOversold:
		res.Action = ActionLong
		res.Strength = (g.cfg.RSIOversold - rsi) / g.cfg.RSIOversold
	default:
		return res
	}
	res.Strength = math.Max(res.Strength, 0.3)
	res.Confidence = 0.5 + 0.4*res.Strength
	return res
}
