package strategy

import (
	"math"

	"CryptoBacktester/internal/models"
)

// ClassifyMarket maps window volatility and trend magnitude to a market
// condition. Volatility wins over trend: a choppy trending window is treated
// as volatile.
func ClassifyMarket(volatility, trend float64, cfg Config) string {
	if volatility > cfg.VolatileThreshold {
		return models.MarketConditionVolatile
	}
	if math.Abs(trend) > cfg.TrendThreshold {
		return models.MarketConditionTrending
	}
	return models.MarketConditionRanging
}

func stateAllowed(state string, allowed []string) bool {
	for _, s := range allowed {
		if s == state {
			return true
		}
	}
	return false
}
