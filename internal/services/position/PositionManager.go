package position

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/services/strategy"
)

// ErrCatastrophicExit reports a candle whose adverse extreme implies a loss
// beyond the liquidation bound. It is never clamped away; the caller decides
// whether to halt the run.
var ErrCatastrophicExit = errors.New("catastrophic exit: loss beyond liquidation bound")

// LadderRung describes one take-profit level as a multiple of the base
// take-profit offset and the share of initial notional it closes.
type LadderRung struct {
	Multiple float64
	Fraction float64
}

type Config struct {
	FeeRate         float64 // taker fee per side, applied to leveraged notional
	TrailingStopPct float64 // 0 disables the trailing stop
	MaxHolding      time.Duration
	Ladder          []LadderRung
}

func DefaultConfig() Config {
	return Config{
		FeeRate:         0.0004,
		TrailingStopPct: 0,
		MaxHolding:      48 * time.Hour,
		Ladder: []LadderRung{
			{Multiple: 1.0, Fraction: 0.5},
			{Multiple: 2.0, Fraction: 0.5},
		},
	}
}

// Manager opens positions and walks them through exit checks candle by
// candle. Stop and take-profit offsets come from the shared tunable
// Parameters so the learning loop's adjustments take effect on new entries.
type Manager struct {
	cfg    Config
	params *strategy.Parameters
}

func NewManager(cfg Config, params *strategy.Parameters) *Manager {
	return &Manager{cfg: cfg, params: params}
}

// Open creates a position with stop-loss and take-profit prices derived as
// percentage offsets from the entry price. Take profits are ordered
// nearest-first so exit checks can pop from the front.
func (m *Manager) Open(symbol, side string, entryPrice float64, entryTime time.Time, entryIndex int, notional, leverage, confidence float64, tag string) *models.Position {
	dir := direction(side)

	takeProfits := make([]models.TakeProfitLevel, 0, len(m.cfg.Ladder))
	for _, rung := range m.cfg.Ladder {
		offset := m.params.TakeProfitPct * rung.Multiple
		takeProfits = append(takeProfits, models.TakeProfitLevel{
			Price:    entryPrice * (1 + dir*offset),
			Fraction: rung.Fraction,
		})
	}
	sort.Slice(takeProfits, func(i, j int) bool {
		if dir > 0 {
			return takeProfits[i].Price < takeProfits[j].Price
		}
		return takeProfits[i].Price > takeProfits[j].Price
	})

	return &models.Position{
		Symbol:          symbol,
		Side:            side,
		EntryPrice:      entryPrice,
		EntryTime:       entryTime,
		EntryIndex:      entryIndex,
		Notional:        notional,
		InitialNotional: notional,
		Leverage:        leverage,
		StopLossPrice:   entryPrice * (1 - dir*m.params.StopLossPct),
		TakeProfits:     takeProfits,
		TrailingStopPct: m.cfg.TrailingStopPct,
		BestPrice:       entryPrice,
		MaxHolding:      m.cfg.MaxHolding,
		StrategyTag:     tag,
		Confidence:      confidence,
	}
}

// CheckExit evaluates exit triggers for one candle in strict priority order:
// take-profit levels nearest-first, then stop-loss, then max holding time,
// then the trailing stop. It returns the closes realized on this candle and
// whether the position is fully closed. A catastrophic candle extreme
// returns ErrCatastrophicExit before any trigger is applied.
func (m *Manager) CheckExit(pos *models.Position, candle models.Candle) ([]models.ClosedTrade, bool, error) {
	dir := direction(pos.Side)

	worst := candle.Low
	if dir < 0 {
		worst = candle.High
	}
	if worstReturn := dir * (worst - pos.EntryPrice) / pos.EntryPrice; pos.Leverage*worstReturn <= -1 {
		return nil, false, fmt.Errorf("%w: %s at %.4f, entry %.4f, leverage %.1fx",
			ErrCatastrophicExit, pos.Side, worst, pos.EntryPrice, pos.Leverage)
	}

	var closes []models.ClosedTrade

	// Take profits, nearest level first; one candle can sweep several rungs.
	for len(pos.TakeProfits) > 0 {
		tp := pos.TakeProfits[0]
		reached := (dir > 0 && candle.High >= tp.Price) || (dir < 0 && candle.Low <= tp.Price)
		if !reached {
			break
		}
		pos.TakeProfits = pos.TakeProfits[1:]

		amount := pos.InitialNotional * tp.Fraction
		if amount > pos.Notional || len(pos.TakeProfits) == 0 {
			amount = pos.Notional
		}
		pos.Notional -= amount
		partial := pos.Notional > 0
		closes = append(closes, m.close(pos, amount, tp.Price, candle.CloseTime, models.ExitReasonTakeProfit, partial))
		if !partial {
			return closes, true, nil
		}
	}

	if (dir > 0 && candle.Low <= pos.StopLossPrice) || (dir < 0 && candle.High >= pos.StopLossPrice) {
		closes = append(closes, m.closeRemainder(pos, pos.StopLossPrice, candle.CloseTime, models.ExitReasonStopLoss))
		return closes, true, nil
	}

	if candle.CloseTime.Sub(pos.EntryTime) >= pos.MaxHolding {
		closes = append(closes, m.closeRemainder(pos, candle.Close, candle.CloseTime, models.ExitReasonMaxHolding))
		return closes, true, nil
	}

	if dir*candle.Close > dir*pos.BestPrice {
		pos.BestPrice = candle.Close
	}
	if pos.TrailingStopPct > 0 {
		trail := pos.BestPrice * (1 - dir*pos.TrailingStopPct)
		if dir*(candle.Close-trail) <= 0 {
			closes = append(closes, m.closeRemainder(pos, candle.Close, candle.CloseTime, models.ExitReasonTrailingStop))
			return closes, true, nil
		}
	}

	return closes, false, nil
}

// ForceClose liquidates whatever remains of the position at the given price,
// used at end of data or on a fatal stop.
func (m *Manager) ForceClose(pos *models.Position, price float64, at time.Time, reason string) models.ClosedTrade {
	return m.closeRemainder(pos, price, at, reason)
}

func (m *Manager) closeRemainder(pos *models.Position, price float64, at time.Time, reason string) models.ClosedTrade {
	amount := pos.Notional
	partial := amount < pos.InitialNotional
	pos.Notional = 0
	return m.close(pos, amount, price, at, reason, partial)
}

// close books one realized slice. PnL is the leveraged directional return on
// the closed notional minus round-trip fees on the leveraged exposure;
// ReturnRate carries the fee-free leveraged return so its sign tracks the
// price move.
func (m *Manager) close(pos *models.Position, amount, price float64, at time.Time, reason string, partial bool) models.ClosedTrade {
	dir := direction(pos.Side)
	directionalReturn := dir * (price - pos.EntryPrice) / pos.EntryPrice
	fees := amount * pos.Leverage * m.cfg.FeeRate * 2

	return models.ClosedTrade{
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		Notional:    amount,
		Leverage:    pos.Leverage,
		PnL:         amount*pos.Leverage*directionalReturn - fees,
		ReturnRate:  pos.Leverage * directionalReturn,
		Reason:      reason,
		EntryTime:   pos.EntryTime,
		ExitTime:    at,
		Holding:     at.Sub(pos.EntryTime),
		StrategyTag: pos.StrategyTag,
		Partial:     partial,
	}
}

func direction(side string) float64 {
	if side == models.PositionSideShort {
		return -1
	}
	return 1
}
