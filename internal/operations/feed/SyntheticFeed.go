package feed

import (
	"context"
	"math/rand"
	"time"

	"CryptoBacktester/internal/models"
)

// SyntheticFeed generates a seeded random-walk candle series. The same seed
// always reproduces the same series, so synthetic backtests are repeatable.
type SyntheticFeed struct {
	symbol     string
	timeFrame  string
	start      time.Time
	startPrice float64
	drift      float64 // per-candle expected return
	vol        float64 // per-candle return spread
	count      int
	seed       int64
}

func NewSyntheticFeed(symbol, timeFrame string, start time.Time, startPrice, drift, vol float64, count int, seed int64) *SyntheticFeed {
	return &SyntheticFeed{
		symbol:     symbol,
		timeFrame:  timeFrame,
		start:      start,
		startPrice: startPrice,
		drift:      drift,
		vol:        vol,
		count:      count,
		seed:       seed,
	}
}

func (f *SyntheticFeed) Load(ctx context.Context) ([]models.Candle, error) {
	step := models.TimeFrameDuration(f.timeFrame)
	r := rand.New(rand.NewSource(f.seed))

	candles := make([]models.Candle, 0, f.count)
	price := f.startPrice
	ts := f.start

	for i := 0; i < f.count; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		open := price
		ret := f.drift + (r.Float64()-0.5)*2.0*f.vol
		closeP := open * (1.0 + ret)
		high := maxf(open, closeP) * (1.0 + r.Float64()*f.vol*0.5)
		low := minf(open, closeP) * (1.0 - r.Float64()*f.vol*0.5)
		volume := 10_000 + r.Float64()*5_000

		candles = append(candles, models.Candle{
			Symbol:    f.symbol,
			TimeFrame: f.timeFrame,
			OpenTime:  ts,
			CloseTime: ts.Add(step),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
		})
		price = closeP
		ts = ts.Add(step)
	}

	return candles, nil
}

// StaticFeed serves a pre-built candle slice, for replaying saved data or
// hand-crafted scenarios.
type StaticFeed struct {
	candles []models.Candle
}

func NewStaticFeed(candles []models.Candle) *StaticFeed {
	return &StaticFeed{candles: candles}
}

func (f *StaticFeed) Load(ctx context.Context) ([]models.Candle, error) {
	return f.candles, nil
}

func maxf(a, b float64) float64 {
	if a < b {
		return b
	}
	return a
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
