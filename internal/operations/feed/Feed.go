package feed

import (
	"context"

	"CryptoBacktester/internal/models"
)

// CandleFeed supplies the ordered candle sequence a backtest runs over.
// Implementations must return candles with monotonic open times and
// fixed-interval spacing.
type CandleFeed interface {
	Load(ctx context.Context) ([]models.Candle, error)
}
