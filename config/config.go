package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine for synthetic runs; everything has a default.
		log.Printf("no .env file loaded: %v", err)
	}

	return &Config{
		Exchange: ExchangeConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     EnvtoInt(os.Getenv("DB_PORT")),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Backtest: BacktestConfig{
			DataSource:     envOrDefault("DATA_SOURCE", "synthetic"),
			TimeFrame:      envOrDefault("BACKTEST_TIMEFRAME", "5m"),
			Days:           envIntOrDefault("BACKTEST_DAYS", 7),
			InitialCapital: envFloatOrDefault("INITIAL_CAPITAL", 10000),
			ExperiencePath: envOrDefault("EXPERIENCE_PATH", "experience/store.json"),
			SyntheticSeed:  int64(envIntOrDefault("SYNTHETIC_SEED", 42)),
		},
		Symbols: getSymbols(),
	}, nil
}

// helper env(string) to int
func EnvtoInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// helper to get symbols
func getSymbols() []string {
	symbols := os.Getenv("TRADING_SYMBOLS")
	if symbols == "" {
		return []string{"BTCUSDT"} // Default pair if none specified
	}
	return strings.Split(symbols, ",")
}
