package indicators

import "math"

// RSIService computes Wilder-style RSI over a closing price window.
type RSIService struct{}

func NewRSIService() *RSIService {
	return &RSIService{}
}

// Calculate returns the RSI in [0,100] for the latest sample. Windows shorter
// than period+1 return the neutral 50; a window with zero average loss
// returns 100. The function never fails.
func (s *RSIService) Calculate(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	// Seed averages from the first `period` changes, then Wilder smoothing.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += math.Abs(change)
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = math.Abs(change)
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // zero variance, nothing to rank
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Strength maps an RSI value to [0,1], maximal at the extremes.
func (s *RSIService) Strength(rsi float64) float64 {
	if rsi >= 50 {
		return (rsi - 50) / 50
	}
	return (50 - rsi) / 50
}
