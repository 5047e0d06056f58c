package models

import (
	"time"
)

type Candle struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Symbol     string    `gorm:"index;not null" json:"symbol"`
	TimeFrame  string    `gorm:"not null" json:"timeframe"`
	OpenTime   time.Time `gorm:"index;not null" json:"open_time"`
	CloseTime  time.Time `gorm:"index" json:"close_time"`
	Open       float64   `gorm:"type:decimal(20,8)" json:"open"`
	High       float64   `gorm:"type:decimal(20,8)" json:"high"`
	Low        float64   `gorm:"type:decimal(20,8)" json:"low"`
	Close      float64   `gorm:"type:decimal(20,8)" json:"close"`
	Volume     float64   `gorm:"type:decimal(20,8)" json:"volume"`
	TradeCount int64     `json:"trade_count"`
}

const (
	CandleTimeFrame1m  = "1m"
	CandleTimeFrame5m  = "5m"
	CandleTimeFrame15m = "15m"
	CandleTimeFrame1h  = "1h"
	CandleTimeFrame4h  = "4h"
)

// TableName sets the table name for Candle model
func (Candle) TableName() string {
	return "candles"
}

// TimeFrameDuration maps a timeframe string to its candle interval
func TimeFrameDuration(timeframe string) time.Duration {
	intervals := map[string]time.Duration{
		CandleTimeFrame1m:  time.Minute,
		CandleTimeFrame5m:  5 * time.Minute,
		CandleTimeFrame15m: 15 * time.Minute,
		CandleTimeFrame1h:  time.Hour,
		CandleTimeFrame4h:  4 * time.Hour,
	}
	if d, ok := intervals[timeframe]; ok {
		return d
	}
	return 5 * time.Minute
}
