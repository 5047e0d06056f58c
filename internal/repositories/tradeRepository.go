package repositories

import (
	"CryptoBacktester/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new instance of TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// CreateBatch persists a run's closed trades in one statement
func (r *TradeRepository) CreateBatch(trades []models.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}
	return r.db.CreateInBatches(trades, 200).Error
}

// FindBySymbol retrieves all ClosedTrade records for a specific symbol
func (r *TradeRepository) FindBySymbol(symbol string) ([]models.ClosedTrade, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	var trades []models.ClosedTrade
	err := r.db.Where("symbol = ?", symbol).Order("exit_time ASC").Find(&trades).Error
	return trades, err
}

// GetTotalPnL calculates the total profit and loss over a time range
func (r *TradeRepository) GetTotalPnL(start, end time.Time) (float64, error) {
	var totalPnL float64
	err := r.db.Model(&models.ClosedTrade{}).
		Where("exit_time BETWEEN ? AND ?", start, end).
		Select("COALESCE(SUM(pnl), 0) as total_pnl").
		Scan(&totalPnL).Error
	return totalPnL, err
}
