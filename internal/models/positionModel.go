package models

import (
	"time"
)

// TakeProfitLevel is one rung of a layered exit ladder. Fraction is the share
// of the position's initial notional closed when Price is reached.
type TakeProfitLevel struct {
	Price    float64
	Fraction float64
}

// Position is a single open trade tracked by the position manager.
// It is mutated only by exit checks; everything else reads it.
type Position struct {
	Symbol          string
	Side            string
	EntryPrice      float64
	EntryTime       time.Time
	EntryIndex      int
	Notional        float64
	InitialNotional float64
	Leverage        float64
	StopLossPrice   float64
	TakeProfits     []TakeProfitLevel
	TrailingStopPct float64
	BestPrice       float64 // most favorable close since entry, drives the trailing stop
	MaxHolding      time.Duration
	StrategyTag     string
	Confidence      float64
}

// ClosedTrade is the immutable record produced when a position (or part of
// one) is closed. ReturnRate is the leveraged directional return, so its
// sign matches PnL unless fees exceed the gross return.
type ClosedTrade struct {
	ID          uint          `gorm:"primaryKey" json:"-"`
	Symbol      string        `gorm:"index" json:"symbol"`
	Side        string        `gorm:"not null" json:"side"`
	EntryPrice  float64       `gorm:"type:decimal(20,8)" json:"entry_price"`
	ExitPrice   float64       `gorm:"type:decimal(20,8)" json:"exit_price"`
	Notional    float64       `gorm:"type:decimal(20,8)" json:"notional"`
	Leverage    float64       `gorm:"type:decimal(20,8)" json:"leverage"`
	PnL         float64       `gorm:"type:decimal(20,8)" json:"pnl"`
	ReturnRate  float64       `gorm:"type:decimal(20,8)" json:"return_rate"`
	Reason      string        `json:"reason"`
	EntryTime   time.Time     `gorm:"index" json:"entry_time"`
	ExitTime    time.Time     `gorm:"index" json:"exit_time"`
	Holding     time.Duration `json:"holding"`
	StrategyTag string        `json:"strategy_tag"`
	Partial     bool          `json:"partial"`
}

func (ClosedTrade) TableName() string {
	return "closed_trades"
}

const (
	PositionSideLong  = "long"
	PositionSideShort = "short"

	ExitReasonTakeProfit   = "take_profit"
	ExitReasonStopLoss     = "stop_loss"
	ExitReasonMaxHolding   = "max_holding"
	ExitReasonTrailingStop = "trailing_stop"
	ExitReasonEndOfData    = "end_of_data"
)

// CapitalState tracks running equity for one backtest run. Capital changes
// only through trade PnL; Peak never decreases and MaxDrawdown never shrinks
// within a run.
type CapitalState struct {
	Initial     float64 `json:"initial"`
	Current     float64 `json:"current"`
	Peak        float64 `json:"peak"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

func NewCapitalState(initial float64) CapitalState {
	return CapitalState{
		Initial: initial,
		Current: initial,
		Peak:    initial,
	}
}

// ApplyPnL books a realized trade result and refreshes peak/drawdown tracking.
func (c *CapitalState) ApplyPnL(pnl float64) {
	c.Current += pnl
	if c.Current < 0 {
		c.Current = 0
	}
	if c.Current > c.Peak {
		c.Peak = c.Current
	}
	if dd := c.Drawdown(); dd > c.MaxDrawdown {
		c.MaxDrawdown = dd
	}
}

// Drawdown returns the current decline from peak as a ratio in [0,1].
func (c *CapitalState) Drawdown() float64 {
	if c.Peak <= 0 {
		return 0
	}
	return (c.Peak - c.Current) / c.Peak
}
