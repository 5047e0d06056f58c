package repositories

import (
	"CryptoBacktester/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

type CandleRepository struct {
	db *gorm.DB
}

// NewCandleRepository creates a new instance of CandleRepository
func NewCandleRepository(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// CreateBatch inserts a fetched batch of candles in one statement
func (r *CandleRepository) CreateBatch(candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.db.CreateInBatches(candles, 500).Error
}

// GetCandlesByTimeFrame gets cached candles for a symbol and timeframe,
// ordered by open time
func (r *CandleRepository) GetCandlesByTimeFrame(symbol, timeFrame string, start, end time.Time) ([]models.Candle, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var candles []models.Candle
	err := r.db.Where("symbol = ? AND time_frame = ? AND open_time BETWEEN ? AND ?",
		symbol, timeFrame, start, end).
		Order("open_time ASC").
		Find(&candles).Error
	return candles, err
}

// CountByTimeFrame reports how many candles are cached for the range,
// used to decide whether a remote fetch is needed
func (r *CandleRepository) CountByTimeFrame(symbol, timeFrame string, start, end time.Time) (int64, error) {
	if symbol == "" || timeFrame == "" {
		return 0, errors.New("invalid symbol or timeframe")
	}

	var count int64
	err := r.db.Model(&models.Candle{}).
		Where("symbol = ? AND time_frame = ? AND open_time BETWEEN ? AND ?",
			symbol, timeFrame, start, end).
		Count(&count).Error
	return count, err
}

// GetLatestCandle gets the most recent cached candle for a symbol and timeframe
func (r *CandleRepository) GetLatestCandle(symbol, timeFrame string) (*models.Candle, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var candle models.Candle
	err := r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("open_time DESC").
		First(&candle).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &candle, err
}

// DeleteByTimeFrame clears the cache for a symbol and timeframe
func (r *CandleRepository) DeleteByTimeFrame(symbol, timeFrame string) error {
	if symbol == "" || timeFrame == "" {
		return errors.New("invalid symbol or timeframe")
	}
	return r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Delete(&models.Candle{}).Error
}
