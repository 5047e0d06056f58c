package indicators

// EMAService provides Exponential Moving Average calculations
type EMAService struct{}

// NewEMAService creates a new EMA service instance
func NewEMAService() *EMAService {
	return &EMAService{}
}

// Calculate computes the EMA series for the full price slice, seeded from the
// first sample with multiplier 2/(period+1). Inputs shorter than period fall
// back to the raw prices so the result is always defined.
func (s *EMAService) Calculate(prices []float64, period int) []float64 {
	ema := make([]float64, len(prices))
	if len(prices) == 0 {
		return ema
	}
	copy(ema, prices)
	if period <= 0 || len(prices) < period {
		return ema
	}

	multiplier := s.getMultiplier(period)
	ema[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		ema[i] = s.calculatePoint(prices[i], ema[i-1], multiplier)
	}
	return ema
}

// Last returns the most recent EMA value; the last raw price when the window
// is shorter than period.
func (s *EMAService) Last(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}
	series := s.Calculate(prices, period)
	return series[len(series)-1]
}

func (s *EMAService) getMultiplier(period int) float64 {
	return 2.0 / float64(period+1)
}

func (s *EMAService) calculatePoint(price, prevEMA, multiplier float64) float64 {
	return (price-prevEMA)*multiplier + prevEMA
}
