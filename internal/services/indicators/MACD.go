package indicators

type MACDService struct {
	ema *EMAService
}

type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

func NewMACDService() *MACDService {
	return &MACDService{
		ema: NewEMAService(),
	}
}

// Calculate returns the latest MACD line (EMA12 - EMA26), the 9-period EMA of
// the MACD series as the signal line, and their difference as the histogram.
// Short inputs degrade through the EMA fallback instead of failing, so sign
// and relative magnitude stay consistent across calls for the same input.
func (s *MACDService) Calculate(prices []float64) *MACDResult {
	if len(prices) == 0 {
		return &MACDResult{}
	}

	fast := s.ema.Calculate(prices, 12)
	slow := s.ema.Calculate(prices, 26)

	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = fast[i] - slow[i]
	}

	signalLine := s.ema.Calculate(macdLine, 9)

	last := len(prices) - 1
	return &MACDResult{
		MACD:      macdLine[last],
		Signal:    signalLine[last],
		Histogram: macdLine[last] - signalLine[last],
	}
}
