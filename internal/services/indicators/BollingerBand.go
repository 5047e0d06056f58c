package indicators

import "math"

type BBandsService struct{}

func NewBBandsService() *BBandsService {
	return &BBandsService{}
}

// CalculateOne computes Bollinger Bands for the latest point. Windows shorter
// than period collapse to the last price (zero width), never fail.
func (s *BBandsService) CalculateOne(prices []float64, period int, deviations float64) (upper, middle, lower, width float64) {
	if len(prices) == 0 {
		return 0, 0, 0, 0
	}
	if period <= 0 || len(prices) < period {
		last := prices[len(prices)-1]
		return last, last, last, 0
	}

	window := prices[len(prices)-period:]
	sum := 0.0
	for _, price := range window {
		sum += price
	}
	middle = sum / float64(period)

	squareSum := 0.0
	for _, price := range window {
		diff := price - middle
		squareSum += diff * diff
	}
	stdDev := math.Sqrt(squareSum / float64(period))

	upper = middle + (deviations * stdDev)
	lower = middle - (deviations * stdDev)
	if middle != 0 {
		width = (upper - lower) / middle
	}
	return upper, middle, lower, width
}
