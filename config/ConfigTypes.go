package config

type Config struct {
	Exchange ExchangeConfig
	Database DatabaseConfig
	Backtest BacktestConfig
	Symbols  []string
}

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// BacktestConfig selects the data source and run window for a backtest.
// Strategy/risk thresholds live next to the services that consume them.
type BacktestConfig struct {
	DataSource     string // "binance" or "synthetic"
	TimeFrame      string
	Days           int
	InitialCapital float64
	ExperiencePath string
	SyntheticSeed  int64
}
