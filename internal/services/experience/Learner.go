package experience

import (
	"time"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/services/strategy"
)

type Config struct {
	OptimizeInterval     int // closed trades between re-tuning passes
	MinPatternOccurrence int
	SuccessThreshold     float64
	LearningRate         float64 // step size for each tunable nudge
	TargetWinRate        float64
	TargetProfitFactor   float64
}

func DefaultConfig() Config {
	return Config{
		OptimizeInterval:     20,
		MinPatternOccurrence: 5,
		SuccessThreshold:     0.55,
		LearningRate:         0.05,
		TargetWinRate:        0.5,
		TargetProfitFactor:   1.5,
	}
}

// Learner turns closed trades into experiences, mines patterns from them,
// and nudges the shared tunables toward target metrics. All parameter
// movement goes through ApplyOptimization.
type Learner struct {
	cfg    Config
	store  *Store
	bounds strategy.ParameterBounds
	closed int
}

func NewLearner(cfg Config, store *Store, bounds strategy.ParameterBounds) *Learner {
	return &Learner{cfg: cfg, store: store, bounds: bounds}
}

// OnTradeClosed records the experience and, every OptimizeInterval closes,
// runs a pattern-mining and re-tuning pass. It reports whether a pass ran so
// the caller can schedule a persistence write.
func (l *Learner) OnTradeClosed(trade models.ClosedTrade, condition string, entryCtx, exitCtx map[string]float64) bool {
	l.store.Append(models.Experience{
		Trade:           trade,
		MarketCondition: condition,
		EntryContext:    entryCtx,
		ExitContext:     exitCtx,
	})

	l.closed++
	if l.cfg.OptimizeInterval <= 0 || l.closed%l.cfg.OptimizeInterval != 0 {
		return false
	}
	l.minePatterns(trade.ExitTime)
	l.retune(trade.ExitTime)
	return true
}

// minePatterns groups the experience ring by (strategy tag, market
// condition) and snapshots every group that is both large enough and
// successful enough. Snapshots are append-only; stale ones lose at lookup.
func (l *Learner) minePatterns(now time.Time) {
	type group struct {
		wins, total int
		sumReturn   float64
	}
	groups := make(map[[2]string]*group)
	for _, exp := range l.store.Experiences() {
		key := [2]string{exp.Trade.StrategyTag, exp.MarketCondition}
		g := groups[key]
		if g == nil {
			g = &group{}
			groups[key] = g
		}
		g.total++
		g.sumReturn += exp.Trade.ReturnRate
		if exp.Trade.PnL > 0 {
			g.wins++
		}
	}

	for key, g := range groups {
		if g.total < l.cfg.MinPatternOccurrence {
			continue
		}
		successRate := float64(g.wins) / float64(g.total)
		if successRate < l.cfg.SuccessThreshold {
			continue
		}
		l.store.AddPattern(models.LearnedPattern{
			StrategyTag:     key[0],
			MarketCondition: key[1],
			SuccessRate:     successRate,
			AvgReturn:       g.sumReturn / float64(g.total),
			Occurrences:     g.total,
			UpdatedAt:       now,
		})
	}
}

// retune computes win rate and profit factor over the last OptimizeInterval
// trades and nudges leverage, sizing, and take-profit bases one bounded step
// toward the targets.
func (l *Learner) retune(now time.Time) {
	experiences := l.store.Experiences()
	window := l.cfg.OptimizeInterval
	if len(experiences) < window {
		window = len(experiences)
	}
	if window == 0 {
		return
	}
	recent := experiences[len(experiences)-window:]

	var wins int
	var winReturns, lossReturns float64
	for _, exp := range recent {
		if exp.Trade.PnL > 0 {
			wins++
			winReturns += exp.Trade.ReturnRate
		} else {
			lossReturns += -exp.Trade.ReturnRate
		}
	}
	winRate := float64(wins) / float64(window)

	profitFactor := 0.0
	losses := window - wins
	if losses > 0 && wins > 0 {
		avgWin := winReturns / float64(wins)
		avgLoss := lossReturns / float64(losses)
		if avgLoss > 0 {
			profitFactor = avgWin / avgLoss
		}
	}

	params := l.store.Parameters()
	var delta strategy.ParameterDelta
	step := l.cfg.LearningRate

	if winRate < l.cfg.TargetWinRate {
		delta.Leverage = -params.Leverage * step
		delta.PositionSizeBase = -params.PositionSizeBase * step
	} else if winRate > l.cfg.TargetWinRate {
		delta.Leverage = params.Leverage * step
		delta.PositionSizeBase = params.PositionSizeBase * step
	}
	if profitFactor > 0 && profitFactor < l.cfg.TargetProfitFactor {
		// Wins are too small relative to losses; stretch the profit target.
		delta.TakeProfitPct = params.TakeProfitPct * step
	} else if profitFactor >= l.cfg.TargetProfitFactor {
		delta.TakeProfitPct = -params.TakeProfitPct * step
	}

	params.ApplyOptimization(delta, l.bounds)
	l.store.AddOptimization(models.OptimizationRecord{
		Timestamp:         now,
		TradesObserved:    window,
		WinRate:           winRate,
		ProfitFactor:      profitFactor,
		LeverageDelta:     delta.Leverage,
		PositionSizeDelta: delta.PositionSizeBase,
		TakeProfitDelta:   delta.TakeProfitPct,
	})
}
