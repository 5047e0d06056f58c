package strategy

import (
	"math"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/services/indicators"
)

// PatternSource serves learned patterns for confidence blending. The
// experience store implements it; a nil source disables blending.
type PatternSource interface {
	Lookup(strategyTag, marketCondition string) (models.LearnedPattern, bool)
}

// SignalGenerator evaluates the detection rules over a trailing candle window
// and combines their proposals into one Signal per step.
type SignalGenerator struct {
	cfg    Config
	params *Parameters

	ema    *indicators.EMAService
	rsi    *indicators.RSIService
	macd   *indicators.MACDService
	vol    *indicators.VolatilityService
	bbands *indicators.BBandsService
	levels *indicators.LevelService

	patterns PatternSource
}

func NewSignalGenerator(cfg Config, params *Parameters) *SignalGenerator {
	return &SignalGenerator{
		cfg:    cfg,
		params: params,
		ema:    indicators.NewEMAService(),
		rsi:    indicators.NewRSIService(),
		macd:   indicators.NewMACDService(),
		vol:    indicators.NewVolatilityService(),
		bbands: indicators.NewBBandsService(),
		levels: indicators.NewLevelService(cfg.LevelStepPct, cfg.LevelMinTouches),
	}
}

// SetPatternSource enables learned-pattern confidence blending.
func (g *SignalGenerator) SetPatternSource(ps PatternSource) {
	g.patterns = ps
}

// Generate produces the signal for candle index idx. Deterministic for
// identical input; returns the neutral hold signal until the window is warm.
func (g *SignalGenerator) Generate(candles []models.Candle, idx int) Signal {
	if idx+1 < g.cfg.Window || idx >= len(candles) {
		return Hold()
	}
	window := candles[idx+1-g.cfg.Window : idx+1]
	closes := extractCloses(window)

	results := g.evaluateRules(window, closes)

	active := make([]RuleResult, 0, len(results))
	for _, r := range results {
		if r.Action != ActionHold && r.Strength >= g.cfg.MinStrength {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return Hold()
	}

	// Weighted directional score; ties broken by highest confidence.
	score := 0.0
	for _, r := range active {
		score += g.cfg.RuleWeights[r.Name] * direction(r.Action) * r.Strength
	}

	action := ActionLong
	if score < 0 {
		action = ActionShort
	} else if score == 0 {
		best := active[0]
		for _, r := range active[1:] {
			if r.Confidence > best.Confidence {
				best = r
			}
		}
		action = best.Action
	}

	agreeing := make([]RuleResult, 0, len(active))
	for _, r := range active {
		if r.Action == action {
			agreeing = append(agreeing, r)
		}
	}
	if len(agreeing) < g.cfg.MinAgreeingRules {
		return Hold()
	}

	// Confidence is the weighted average over agreeing rules; strength the
	// weighted average of their raw strengths.
	var confSum, strengthSum, weightSum float64
	tag := agreeing[0].Name
	bestConf := agreeing[0].Confidence
	for _, r := range agreeing {
		w := g.cfg.RuleWeights[r.Name]
		confSum += w * r.Confidence
		strengthSum += w * r.Strength
		weightSum += w
		if r.Confidence > bestConf {
			bestConf = r.Confidence
			tag = r.Name
		}
	}
	if weightSum == 0 {
		return Hold()
	}
	confidence := confSum / weightSum
	combined := strengthSum / weightSum

	strength := StrengthWeak
	if combined >= g.cfg.StrongThreshold {
		strength = StrengthStrong
	}

	sig := Signal{
		Action:     action,
		Strength:   strength,
		Confidence: math.Min(confidence, 1),
		Rules:      active,
		Tag:        tag,
	}
	return g.blendWithPattern(sig, closes, window)
}

// blendWithPattern pulls the matching learned pattern, when one exists, into
// the confidence: alpha*base + (1-alpha)*patternSuccessRate.
func (g *SignalGenerator) blendWithPattern(sig Signal, closes []float64, window []models.Candle) Signal {
	if g.patterns == nil {
		return sig
	}
	condition := ClassifyMarket(g.vol.Calculate(closes), g.vol.Trend(closes), g.cfg)
	pattern, ok := g.patterns.Lookup(sig.Tag, condition)
	if !ok {
		return sig
	}
	alpha := g.cfg.PatternAlpha
	sig.Confidence = alpha*sig.Confidence + (1-alpha)*pattern.SuccessRate
	return sig
}

// MarketState classifies the trailing window at idx.
func (g *SignalGenerator) MarketState(candles []models.Candle, idx int) string {
	if idx+1 < g.cfg.Window || idx >= len(candles) {
		return models.MarketConditionRanging
	}
	closes := extractCloses(candles[idx+1-g.cfg.Window : idx+1])
	return ClassifyMarket(g.vol.Calculate(closes), g.vol.Trend(closes), g.cfg)
}

// Snapshot captures the indicator context at idx, used to annotate
// experiences for the learning loop.
func (g *SignalGenerator) Snapshot(candles []models.Candle, idx int) map[string]float64 {
	if idx+1 < g.cfg.Window || idx >= len(candles) {
		return nil
	}
	window := candles[idx+1-g.cfg.Window : idx+1]
	closes := extractCloses(window)
	volumes := extractVolumes(window)
	macd := g.macd.Calculate(closes)
	return map[string]float64{
		"rsi":          g.rsi.Calculate(closes, g.cfg.RSIPeriod),
		"volatility":   g.vol.Calculate(closes),
		"trend":        g.vol.Trend(closes),
		"volume_ratio": g.vol.VolumeRatio(volumes, g.cfg.VolumeAvgExclusion),
		"macd_hist":    macd.Histogram,
	}
}

func (g *SignalGenerator) evaluateRules(window []models.Candle, closes []float64) []RuleResult {
	results := make([]RuleResult, 0, 5)
	if g.cfg.RuleWeights[RuleTrendFollow] > 0 {
		results = append(results, g.trendFollowRule(closes))
	}
	if g.cfg.RuleWeights[RuleMeanReversion] > 0 {
		results = append(results, g.meanReversionRule(closes))
	}
	if g.cfg.RuleWeights[RuleVolatilitySpike] > 0 {
		results = append(results, g.volatilitySpikeRule(closes))
	}
	if g.cfg.RuleWeights[RuleMomentumExtreme] > 0 {
		results = append(results, g.momentumRule(closes))
	}
	if g.cfg.RuleWeights[RuleFakeBreakout] > 0 {
		results = append(results, g.fakeBreakoutRule(window))
	}
	return results
}

func direction(a Action) float64 {
	switch a {
	case ActionLong:
		return 1
	case ActionShort:
		return -1
	}
	return 0
}

func extractCloses(candles []models.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

func extractVolumes(candles []models.Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}
