package analytics

import (
	"math"
	"time"

	"CryptoBacktester/internal/models"
)

// EquityPoint is one sample of the equity curve, taken once per candle.
type EquityPoint struct {
	Time    time.Time `json:"time"`
	Capital float64   `json:"capital"`
}

// Report is the full performance summary for one run. Every ratio is either
// finite or an explicit sentinel; nothing here is ever NaN.
type Report struct {
	TotalTrades      int           `json:"total_trades"`
	WinningTrades    int           `json:"winning_trades"`
	LosingTrades     int           `json:"losing_trades"`
	WinRate          float64       `json:"win_rate"`
	ProfitFactor     float64       `json:"profit_factor"`
	TotalReturn      float64       `json:"total_return"`
	AnnualizedReturn float64       `json:"annualized_return"`
	SharpeRatio      float64       `json:"sharpe_ratio"`
	SortinoRatio     float64       `json:"sortino_ratio"` // math.Inf(1) when no downside periods exist
	CalmarRatio      float64       `json:"calmar_ratio"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	TotalPnL         float64       `json:"total_pnl"`
	AvgHolding       time.Duration `json:"avg_holding"`
}

type Config struct {
	RiskFreeRate   float64
	PeriodsPerYear float64 // sampling frequency of the equity curve
}

func DefaultConfig() Config {
	return Config{
		RiskFreeRate:   0.02,
		PeriodsPerYear: 365 * 24 * 12, // 5m candles
	}
}

type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Compute builds the report from the closed trades and the sampled equity
// curve. days is the calendar length of the backtest window.
func (s *Service) Compute(trades []models.ClosedTrade, equity []EquityPoint, capital models.CapitalState, days float64) Report {
	r := Report{
		TotalTrades: len(trades),
		MaxDrawdown: capital.MaxDrawdown,
	}

	var winReturns, lossReturns float64
	var holding time.Duration
	for _, t := range trades {
		r.TotalPnL += t.PnL
		holding += t.Holding
		if t.PnL > 0 {
			r.WinningTrades++
			winReturns += t.ReturnRate
		} else {
			r.LosingTrades++
			lossReturns += math.Abs(t.ReturnRate)
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
		r.AvgHolding = holding / time.Duration(r.TotalTrades)
	}
	if r.LosingTrades > 0 && r.WinningTrades > 0 {
		avgWin := winReturns / float64(r.WinningTrades)
		avgLoss := lossReturns / float64(r.LosingTrades)
		if avgLoss > 0 {
			r.ProfitFactor = avgWin / avgLoss
		}
	}

	if capital.Initial > 0 {
		r.TotalReturn = (capital.Current - capital.Initial) / capital.Initial
	}
	if days > 0 && r.TotalReturn > -1 {
		r.AnnualizedReturn = math.Pow(1+r.TotalReturn, 365/days) - 1
	} else if r.TotalReturn <= -1 {
		r.AnnualizedReturn = -1
	}

	returns := periodicReturns(equity)
	vol := stdev(returns) * math.Sqrt(s.cfg.PeriodsPerYear)
	if vol > 0 {
		r.SharpeRatio = (r.AnnualizedReturn - s.cfg.RiskFreeRate) / vol
	}

	r.SortinoRatio = s.sortino(returns, r.AnnualizedReturn)

	if r.MaxDrawdown > 0 {
		r.CalmarRatio = r.AnnualizedReturn / r.MaxDrawdown
	}

	return r
}

// sortino uses downside deviation in the denominator. Zero downside periods
// with a positive excess return yields the positive-infinity sentinel rather
// than some large finite stand-in.
func (s *Service) sortino(returns []float64, annualized float64) float64 {
	periodRate := s.cfg.RiskFreeRate / s.cfg.PeriodsPerYear

	var downside []float64
	for _, ret := range returns {
		if ret < periodRate {
			downside = append(downside, ret-periodRate)
		}
	}
	excess := annualized - s.cfg.RiskFreeRate
	if len(downside) == 0 {
		if excess > 0 {
			return math.Inf(1)
		}
		return 0
	}

	var sumSq float64
	for _, d := range downside {
		sumSq += d * d
	}
	dev := math.Sqrt(sumSq/float64(len(downside))) * math.Sqrt(s.cfg.PeriodsPerYear)
	if dev == 0 {
		return 0
	}
	return excess / dev
}

func periodicReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Capital
		if prev <= 0 {
			continue
		}
		returns = append(returns, (equity[i].Capital-prev)/prev)
	}
	return returns
}

func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
