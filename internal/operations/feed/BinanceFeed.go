package feed

import (
	"context"
	"log"
	"math"
	"strconv"
	"time"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/repositories"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

// BinanceFeed loads historical futures klines for one symbol, caching them
// through the candle repository so repeated runs over the same window skip
// the network. The repository is optional; without it every Load fetches.
type BinanceFeed struct {
	client      *futures.Client
	rateLimiter *rate.Limiter
	repo        *repositories.CandleRepository
	symbol      string
	timeFrame   string
	days        int
}

func NewBinanceFeed(client *futures.Client, repo *repositories.CandleRepository, symbol, timeFrame string, days int) *BinanceFeed {
	return &BinanceFeed{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
		repo:        repo,
		symbol:      symbol,
		timeFrame:   timeFrame,
		days:        days,
	}
}

func (f *BinanceFeed) Load(ctx context.Context) ([]models.Candle, error) {
	endTime := time.Now()
	startTime := endTime.AddDate(0, 0, -f.days)

	if f.repo != nil {
		interval := models.TimeFrameDuration(f.timeFrame)
		expected := int64(endTime.Sub(startTime) / interval)
		count, err := f.repo.CountByTimeFrame(f.symbol, f.timeFrame, startTime, endTime)
		if err == nil && count >= expected*95/100 {
			log.Printf("Using %d cached %s candles for %s", count, f.timeFrame, f.symbol)
			return f.repo.GetCandlesByTimeFrame(f.symbol, f.timeFrame, startTime, endTime)
		}
		// The cache is stale or partial; clear it so the refetch does not
		// leave duplicate rows behind.
		if latest, err := f.repo.GetLatestCandle(f.symbol, f.timeFrame); err == nil && latest != nil {
			log.Printf("Cache for %s %s ends at %s, refetching window",
				f.symbol, f.timeFrame, latest.OpenTime.Format("2006-01-02 15:04:05"))
		}
		if err := f.repo.DeleteByTimeFrame(f.symbol, f.timeFrame); err != nil {
			log.Printf("Error clearing candle cache for %s: %v", f.symbol, err)
		}
	}

	candles, err := f.fetch(ctx, startTime, endTime)
	if err != nil {
		return nil, err
	}
	if f.repo != nil {
		if err := f.repo.CreateBatch(candles); err != nil {
			log.Printf("Error caching candles for %s: %v", f.symbol, err)
		}
	}
	return candles, nil
}

func (f *BinanceFeed) fetch(ctx context.Context, startTime, endTime time.Time) ([]models.Candle, error) {
	var allCandles []models.Candle

	// 500 is Binance's max kline limit per request
	chunkDuration := models.TimeFrameDuration(f.timeFrame) * 500
	currentStart := startTime

	for currentStart.Before(endTime) {
		currentEnd := currentStart.Add(chunkDuration)
		if currentEnd.After(endTime) {
			currentEnd = endTime
		}

		klines, err := f.klinesWithRetry(ctx, currentStart, currentEnd)
		if err != nil {
			return nil, err
		}

		for _, k := range klines {
			allCandles = append(allCandles, models.Candle{
				Symbol:     f.symbol,
				TimeFrame:  f.timeFrame,
				OpenTime:   time.Unix(k.OpenTime/1000, 0),
				CloseTime:  time.Unix(k.CloseTime/1000, 0),
				Open:       parseFloat(k.Open),
				High:       parseFloat(k.High),
				Low:        parseFloat(k.Low),
				Close:      parseFloat(k.Close),
				Volume:     parseFloat(k.Volume),
				TradeCount: k.TradeNum,
			})
		}

		log.Printf("Fetched %d %s candles for %s from %s to %s",
			len(klines),
			f.timeFrame,
			f.symbol,
			currentStart.Format("2006-01-02 15:04:05"),
			currentEnd.Format("2006-01-02 15:04:05"))

		currentStart = currentEnd
	}

	return allCandles, nil
}

func (f *BinanceFeed) klinesWithRetry(ctx context.Context, start, end time.Time) ([]*futures.Kline, error) {
	maxRetries := 3
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		klines, err := f.client.NewKlinesService().
			Symbol(f.symbol).
			Interval(f.timeFrame).
			StartTime(start.UnixNano() / int64(time.Millisecond)).
			EndTime(end.UnixNano() / int64(time.Millisecond)).
			Limit(500).
			Do(ctx)
		if err == nil {
			return klines, nil
		}
		lastErr = err

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * backoff
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}
	return nil, lastErr
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Error parsing float: %v", err)
		return 0
	}
	return f
}
