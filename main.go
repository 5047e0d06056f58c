package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"CryptoBacktester/config"
	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/operations/backtest"
	"CryptoBacktester/internal/operations/feed"
	"CryptoBacktester/internal/repositories"
	"CryptoBacktester/internal/services/experience"

	"github.com/adshao/go-binance/v2/futures"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Database is optional: synthetic runs work without one
	var candleRepo *repositories.CandleRepository
	var tradeRepo *repositories.TradeRepository
	if cfg.Database.Host != "" {
		db := setupDatabase(cfg.Database)
		candleRepo = repositories.NewCandleRepository(db)
		tradeRepo = repositories.NewTradeRepository(db)
	}

	// Load persisted learning state; a corrupt or missing store is never
	// fatal, but losing it gets reported
	store := experience.NewStore(cfg.Backtest.ExperiencePath, 1000)
	if err := store.Load(); err != nil {
		log.Printf("Warning: persisted learning state lost, starting fresh: %v", err)
	}

	symbol := cfg.Symbols[0]
	backtestConfig := backtest.DefaultConfig()
	backtestConfig.Symbol = symbol
	backtestConfig.TimeFrame = cfg.Backtest.TimeFrame
	backtestConfig.InitialCapital = cfg.Backtest.InitialCapital

	candleFeed := buildFeed(cfg, candleRepo, symbol)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := backtest.NewEngine(backtestConfig, store, tradeRepo)
	result, err := engine.Run(ctx, candleFeed)
	if err != nil {
		log.Fatal("Backtest failed:", err)
	}

	printResults(result)
	if tradeRepo != nil {
		printTradeHistory(tradeRepo, symbol)
	}
}

func buildFeed(cfg *config.Config, candleRepo *repositories.CandleRepository, symbol string) feed.CandleFeed {
	if cfg.Backtest.DataSource == "binance" {
		futuresClient := futures.NewClient(cfg.Exchange.APIKey, cfg.Exchange.SecretKey)
		return feed.NewBinanceFeed(futuresClient, candleRepo, symbol, cfg.Backtest.TimeFrame, cfg.Backtest.Days)
	}

	interval := models.TimeFrameDuration(cfg.Backtest.TimeFrame)
	count := int(time.Duration(cfg.Backtest.Days) * 24 * time.Hour / interval)
	start := time.Now().AddDate(0, 0, -cfg.Backtest.Days)
	return feed.NewSyntheticFeed(symbol, cfg.Backtest.TimeFrame, start, 50000, 0, 0.003, count, cfg.Backtest.SyntheticSeed)
}

func printResults(result *backtest.Result) {
	fmt.Println("\n=== Backtest Results ===")
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Total Trades: %d\n", result.Report.TotalTrades)
	if result.Report.TotalTrades > 0 {
		fmt.Printf("Winning Trades: %d (%.2f%%)\n",
			result.Report.WinningTrades,
			result.Report.WinRate*100)
	}
	fmt.Printf("Total PnL: $%.2f\n", result.Report.TotalPnL)
	fmt.Printf("Total Return: %.2f%%\n", result.Report.TotalReturn*100)
	fmt.Printf("Annualized Return: %.2f%%\n", result.Report.AnnualizedReturn*100)
	fmt.Printf("Max Drawdown: %.2f%%\n", result.Report.MaxDrawdown*100)
	fmt.Printf("Profit Factor: %.2f\n", result.Report.ProfitFactor)
	fmt.Printf("Sharpe Ratio: %.2f\n", result.Report.SharpeRatio)
	if math.IsInf(result.Report.SortinoRatio, 1) {
		fmt.Println("Sortino Ratio: inf (no downside periods)")
	} else {
		fmt.Printf("Sortino Ratio: %.2f\n", result.Report.SortinoRatio)
	}
	fmt.Printf("Calmar Ratio: %.2f\n", result.Report.CalmarRatio)
	fmt.Printf("Final Capital: $%.2f\n", result.Capital.Current)
	fmt.Printf("Tuned Parameters: leverage %.2fx, size %.3f, tp %.3f\n",
		result.Parameters.Leverage,
		result.Parameters.PositionSizeBase,
		result.Parameters.TakeProfitPct)
}

// printTradeHistory summarizes every persisted run for the symbol, not just
// the one that finished.
func printTradeHistory(tradeRepo *repositories.TradeRepository, symbol string) {
	trades, err := tradeRepo.FindBySymbol(symbol)
	if err != nil {
		log.Printf("Error loading trade history: %v", err)
		return
	}
	totalPnL, err := tradeRepo.GetTotalPnL(time.Time{}, time.Now())
	if err != nil {
		log.Printf("Error summing historical PnL: %v", err)
		return
	}
	fmt.Printf("\nAll-time on %s: %d trades, total PnL $%.2f\n", symbol, len(trades), totalPnL)
}

func setupDatabase(dbConfig config.DatabaseConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto migrate database schemas
	if err := db.AutoMigrate(&models.Candle{}, &models.ClosedTrade{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	return db
}
