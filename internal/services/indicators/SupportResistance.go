package indicators

import "sort"

// Level is a price area touched repeatedly within the window. Strength is
// touches relative to the window size.
type Level struct {
	Price    float64
	Touches  int
	Strength float64
}

// LevelService detects support/resistance levels by bucketing candle highs
// and lows with a fixed relative price step.
type LevelService struct {
	stepPct    float64 // bucket width as a fraction of price
	minTouches int
}

func NewLevelService(stepPct float64, minTouches int) *LevelService {
	if stepPct <= 0 {
		stepPct = 0.002
	}
	if minTouches < 2 {
		minTouches = 2
	}
	return &LevelService{
		stepPct:    stepPct,
		minTouches: minTouches,
	}
}

// Find buckets every high and low into price steps and returns the levels
// touched at least minTouches times, sorted ascending by price.
func (s *LevelService) Find(highs, lows []float64) []Level {
	n := len(highs)
	if len(lows) < n {
		n = len(lows)
	}
	if n == 0 {
		return nil
	}

	ref := highs[n-1]
	if ref <= 0 {
		return nil
	}
	step := ref * s.stepPct

	buckets := make(map[int]int)
	sums := make(map[int]float64)
	touch := func(price float64) {
		b := int(price / step)
		buckets[b]++
		sums[b] += price
	}
	for i := 0; i < n; i++ {
		touch(highs[i])
		touch(lows[i])
	}

	levels := make([]Level, 0, len(buckets))
	windowSize := float64(2 * n) // each candle contributes a high and a low
	for b, count := range buckets {
		if count < s.minTouches {
			continue
		}
		levels = append(levels, Level{
			Price:    sums[b] / float64(count),
			Touches:  count,
			Strength: float64(count) / windowSize,
		})
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price < levels[j].Price
	})
	return levels
}

// Nearest returns the level closest to price, and whether any level exists.
func (s *LevelService) Nearest(levels []Level, price float64) (Level, bool) {
	if len(levels) == 0 {
		return Level{}, false
	}
	best := levels[0]
	bestDist := dist(best.Price, price)
	for _, l := range levels[1:] {
		if d := dist(l.Price, price); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best, true
}

func dist(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
