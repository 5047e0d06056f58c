package indicators

import "math"

// VolatilityService bundles the window statistics that drive market-state
// classification: return volatility, normalized trend, and volume ratio.
type VolatilityService struct {
	defaultVolatility float64
}

func NewVolatilityService() *VolatilityService {
	return &VolatilityService{
		defaultVolatility: 0.02,
	}
}

// Calculate returns the population standard deviation of simple returns over
// the window. Windows too short to produce a return yield the configured
// default instead of failing.
func (s *VolatilityService) Calculate(prices []float64) float64 {
	if len(prices) < 2 {
		return s.defaultVolatility
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) == 0 {
		return s.defaultVolatility
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// Trend returns the normalized displacement across the window,
// (last - first) / first. Degenerate windows return 0.
func (s *VolatilityService) Trend(prices []float64) float64 {
	if len(prices) < 2 || prices[0] == 0 {
		return 0
	}
	return (prices[len(prices)-1] - prices[0]) / prices[0]
}

// VolumeRatio divides the most recent volume by the trailing average,
// excluding the latest `exclude` samples from the average so the current
// spike does not dilute its own baseline. Returns 1 when undefined.
func (s *VolatilityService) VolumeRatio(volumes []float64, exclude int) float64 {
	if len(volumes) < 2 {
		return 1
	}
	if exclude < 1 {
		exclude = 1
	}
	cutoff := len(volumes) - exclude
	if cutoff <= 0 {
		return 1
	}

	sum := 0.0
	for _, v := range volumes[:cutoff] {
		sum += v
	}
	avg := sum / float64(cutoff)
	if avg == 0 {
		return 1
	}
	return volumes[len(volumes)-1] / avg
}
