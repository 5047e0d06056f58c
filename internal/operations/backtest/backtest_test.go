package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/operations/feed"
	"CryptoBacktester/internal/services/experience"
	"CryptoBacktester/internal/services/position"
	"CryptoBacktester/internal/services/strategy"
)

var baseTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func flatCandles(n int, price float64) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		start := baseTime.Add(time.Duration(i) * 5 * time.Minute)
		candles[i] = models.Candle{
			Symbol:    "BTCUSDT",
			TimeFrame: models.CandleTimeFrame5m,
			OpenTime:  start,
			CloseTime: start.Add(5 * time.Minute),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    100,
		}
	}
	return candles
}

func candleSeries(closes, volumes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		start := baseTime.Add(time.Duration(i) * 5 * time.Minute)
		vol := 100.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = models.Candle{
			Symbol:    "BTCUSDT",
			TimeFrame: models.CandleTimeFrame5m,
			OpenTime:  start,
			CloseTime: start.Add(5 * time.Minute),
			Open:      c,
			High:      c * 1.0005,
			Low:       c * 0.9995,
			Close:     c,
			Volume:    vol,
		}
	}
	return candles
}

// fakeBreakoutSeries is 26 quiet candles, one high-volume push above the
// range, and three candles closing back below the broken level.
func fakeBreakoutSeries() []models.Candle {
	closes := make([]float64, 0, 30)
	volumes := make([]float64, 0, 30)
	for i := 0; i < 26; i++ {
		closes = append(closes, 100+0.02*float64(i%3))
		volumes = append(volumes, 100)
	}
	closes = append(closes, 100.6)
	volumes = append(volumes, 250)
	for i := 0; i < 3; i++ {
		closes = append(closes, 99.8)
		volumes = append(volumes, 110)
	}
	return candleSeries(closes, volumes)
}

// twoFakeBreakoutSeries extends fakeBreakoutSeries with a second failed
// breakout ten quiet candles later: one high-volume push to spikeClose and
// three candles closing back at confirmClose.
func twoFakeBreakoutSeries(spikeClose, confirmClose float64) []models.Candle {
	closes := make([]float64, 0, 44)
	volumes := make([]float64, 0, 44)
	for i := 0; i < 26; i++ {
		closes = append(closes, 100+0.02*float64(i%3))
		volumes = append(volumes, 100)
	}
	closes = append(closes, 100.6)
	volumes = append(volumes, 250)
	for i := 0; i < 3; i++ {
		closes = append(closes, 99.8)
		volumes = append(volumes, 110)
	}
	for i := 0; i < 10; i++ {
		closes = append(closes, 100+0.02*float64(i%3))
		volumes = append(volumes, 100)
	}
	closes = append(closes, spikeClose)
	volumes = append(volumes, 250)
	for i := 0; i < 3; i++ {
		closes = append(closes, confirmClose)
		volumes = append(volumes, 110)
	}
	return candleSeries(closes, volumes)
}

func TestRunFlatSeriesProducesNoTrades(t *testing.T) {
	cfg := DefaultConfig()
	engine := NewEngine(cfg, nil, nil)

	result, err := engine.Run(context.Background(), feed.NewStaticFeed(flatCandles(200, 100)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", result.Status, StatusCompleted)
	}
	if len(result.Trades) != 0 {
		t.Errorf("trades = %d, want 0 on a flat series", len(result.Trades))
	}
	if result.Report.TotalReturn != 0 {
		t.Errorf("total return = %v, want 0", result.Report.TotalReturn)
	}
	if result.Capital.Current != cfg.InitialCapital {
		t.Errorf("final capital = %v, want untouched %v", result.Capital.Current, cfg.InitialCapital)
	}
	if len(result.Equity) != 200 {
		t.Errorf("equity points = %d, want one per candle", len(result.Equity))
	}
}

func TestRunFakeBreakoutOpensOneShort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = strategy.FakeBreakoutPreset()
	cfg.Strategy.Window = 30
	engine := NewEngine(cfg, nil, nil)

	result, err := engine.Run(context.Background(), feed.NewStaticFeed(fakeBreakoutSeries()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Trades) != 1 {
		t.Fatalf("trades = %d, want exactly one entry", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.Side != models.PositionSideShort {
		t.Errorf("side = %q, want short against the failed breakout", trade.Side)
	}
	if trade.StrategyTag != strategy.RuleFakeBreakout {
		t.Errorf("strategy tag = %q, want %q", trade.StrategyTag, strategy.RuleFakeBreakout)
	}
	// Entry happens once the confirmation candles complete, right after the
	// spike.
	wantEntry := baseTime.Add(30 * 5 * time.Minute)
	if !trade.EntryTime.Equal(wantEntry) {
		t.Errorf("entry time = %v, want %v", trade.EntryTime, wantEntry)
	}
	// The final equity sample includes the end-of-data liquidation.
	final := result.Equity[len(result.Equity)-1]
	if final.Capital != result.Capital.Current {
		t.Errorf("final equity %v != final capital %v", final.Capital, result.Capital.Current)
	}
}

func TestRunEnforcesOpenPositionCap(t *testing.T) {
	candles := twoFakeBreakoutSeries(100.6, 99.8)

	run := func(maxOpen int) *Result {
		cfg := DefaultConfig()
		cfg.Strategy = strategy.FakeBreakoutPreset()
		cfg.Strategy.Window = 30
		cfg.MaxOpenPositions = maxOpen
		engine := NewEngine(cfg, nil, nil)
		result, err := engine.Run(context.Background(), feed.NewStaticFeed(candles))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result
	}

	capped := run(1)
	if len(capped.Trades) != 1 {
		t.Fatalf("trades with cap 1 = %d, want the second signal blocked", len(capped.Trades))
	}

	result := run(2)
	if len(result.Trades) != 2 {
		t.Fatalf("trades with cap 2 = %d, want both failed breakouts traded", len(result.Trades))
	}
	first, second := result.Trades[0], result.Trades[1]
	if first.Side != models.PositionSideShort || second.Side != models.PositionSideShort {
		t.Errorf("sides = %q, %q, want two shorts", first.Side, second.Side)
	}
	if second.EntryTime.After(first.ExitTime) {
		t.Errorf("second entry %v after first exit %v, positions never overlapped", second.EntryTime, first.ExitTime)
	}
}

func TestRunStopsCatastrophicAndLiquidatesAtStop(t *testing.T) {
	// A short from the first failed breakout, a long from the second, then a
	// candle whose wick blows through the short's liquidation price. The long
	// survives that candle's exit checks and must be closed at the stop
	// candle, not at the end of the feed.
	candles := twoFakeBreakoutSeries(99.4, 100.2)
	stopStart := baseTime.Add(44 * 5 * time.Minute)
	catastrophe := models.Candle{
		Symbol:    "BTCUSDT",
		TimeFrame: models.CandleTimeFrame5m,
		OpenTime:  stopStart,
		CloseTime: stopStart.Add(5 * time.Minute),
		Open:      100.3,
		High:      126,
		Low:       100,
		Close:     125,
		Volume:    100,
	}
	candles = append(candles, catastrophe)
	candles = append(candles, shiftCandles(flatCandles(5, 90), 45)...)

	cfg := DefaultConfig()
	cfg.Strategy = strategy.FakeBreakoutPreset()
	cfg.Strategy.Window = 30
	cfg.MaxOpenPositions = 2
	cfg.Risk.MinLeverage = 5
	cfg.Risk.MaxLeverage = 5
	// A single distant rung keeps the surviving long open through the wick.
	cfg.Position.Ladder = []position.LadderRung{{Multiple: 50, Fraction: 1}}
	engine := NewEngine(cfg, nil, nil)

	result, err := engine.Run(context.Background(), feed.NewStaticFeed(candles))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusStoppedCatastrophic {
		t.Fatalf("status = %q, want %q", result.Status, StatusStoppedCatastrophic)
	}
	if len(result.Trades) != 2 {
		t.Fatalf("trades = %d, want the liquidated short and the force-closed long", len(result.Trades))
	}
	short, long := result.Trades[0], result.Trades[1]
	if short.Side != models.PositionSideShort || long.Side != models.PositionSideLong {
		t.Fatalf("sides = %q, %q, want short then long", short.Side, long.Side)
	}
	if short.ExitPrice != 126 {
		t.Errorf("liquidation price = %v, want the candle high 126", short.ExitPrice)
	}
	if short.PnL >= 0 {
		t.Errorf("liquidated pnl = %v, want a loss", short.PnL)
	}
	if !long.ExitTime.Equal(catastrophe.CloseTime) {
		t.Errorf("surviving long closed at %v, want the stop candle close %v", long.ExitTime, catastrophe.CloseTime)
	}
	if long.ExitPrice != 125 {
		t.Errorf("surviving long exit price = %v, want the stop candle close 125", long.ExitPrice)
	}
	if len(result.Equity) != 45 {
		t.Errorf("equity points = %d, want one per processed candle", len(result.Equity))
	}
	final := result.Equity[len(result.Equity)-1]
	if final.Capital != result.Capital.Current {
		t.Errorf("final equity %v != final capital %v", final.Capital, result.Capital.Current)
	}
}

func TestRunHaltsOnDrawdownBreach(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = strategy.FakeBreakoutPreset()
	cfg.Strategy.Window = 30
	// Thresholds tightened so a single losing trade trips the fatal stop.
	cfg.Risk.HaltDrawdown = 0.0003
	cfg.Risk.FatalDrawdown = 0.0005
	engine := NewEngine(cfg, nil, nil)

	// The failed-breakout short entered at ~99.8 is run over by a rally
	// through its stop, then the series keeps going.
	candles := fakeBreakoutSeries()
	rally := candleSeries([]float64{101.5}, nil)
	for i := range rally {
		rally[i].OpenTime = baseTime.Add(time.Duration(30+i) * 5 * time.Minute)
		rally[i].CloseTime = rally[i].OpenTime.Add(5 * time.Minute)
	}
	candles = append(candles, rally...)
	candles = append(candles, shiftCandles(flatCandles(100, 101.5), 31)...)

	result, err := engine.Run(context.Background(), feed.NewStaticFeed(candles))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Status != StatusStoppedDrawdown {
		t.Errorf("status = %q, want %q", result.Status, StatusStoppedDrawdown)
	}
	if len(result.Trades) != 1 {
		t.Errorf("trades = %d, want the single stopped-out short", len(result.Trades))
	}
	if result.Trades[0].PnL >= 0 {
		t.Errorf("pnl = %v, want a loss", result.Trades[0].PnL)
	}
	// The run stopped early: no equity samples for the untraded tail.
	if len(result.Equity) >= len(candles) {
		t.Errorf("equity points = %d, want fewer than %d candles", len(result.Equity), len(candles))
	}
}

func TestRunPeakAndDrawdownMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = strategy.ContrarianPreset()
	engine := NewEngine(cfg, nil, nil)

	candleFeed := feed.NewSyntheticFeed("BTCUSDT", models.CandleTimeFrame5m, baseTime, 100, 0, 0.004, 600, 99)
	result, err := engine.Run(context.Background(), candleFeed)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	peak := 0.0
	worstDrawdown := 0.0
	for _, p := range result.Equity {
		if p.Capital > peak {
			peak = p.Capital
		}
		if dd := (peak - p.Capital) / peak; dd > worstDrawdown {
			worstDrawdown = dd
		}
	}
	if peak > result.Capital.Peak+1e-9 {
		t.Errorf("equity curve peak %v exceeds tracked peak %v", peak, result.Capital.Peak)
	}
	if worstDrawdown > result.Capital.MaxDrawdown+1e-9 {
		t.Errorf("equity curve drawdown %v exceeds tracked max %v", worstDrawdown, result.Capital.MaxDrawdown)
	}
	if result.Capital.Peak < result.Capital.Initial {
		t.Errorf("peak %v below initial %v", result.Capital.Peak, result.Capital.Initial)
	}
	if result.Capital.Current > result.Capital.Peak {
		t.Errorf("current %v above peak %v", result.Capital.Current, result.Capital.Peak)
	}
	if result.Capital.MaxDrawdown < 0 {
		t.Errorf("max drawdown %v negative", result.Capital.MaxDrawdown)
	}
}

func TestRunDeterministicWithSeed(t *testing.T) {
	run := func() *Result {
		cfg := DefaultConfig()
		engine := NewEngine(cfg, nil, nil)
		candleFeed := feed.NewSyntheticFeed("BTCUSDT", models.CandleTimeFrame5m, baseTime, 100, 0, 0.004, 500, 7)
		result, err := engine.Run(context.Background(), candleFeed)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result
	}

	a, b := run(), run()
	if len(a.Trades) != len(b.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(a.Trades), len(b.Trades))
	}
	if a.Capital.Current != b.Capital.Current {
		t.Errorf("final capital differs: %v vs %v", a.Capital.Current, b.Capital.Current)
	}
	if a.Report.TotalReturn != b.Report.TotalReturn {
		t.Errorf("total return differs: %v vs %v", a.Report.TotalReturn, b.Report.TotalReturn)
	}
}

func TestRunRecordsExperiences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experience.json")
	store := experience.NewStore(path, 1000)

	cfg := DefaultConfig()
	cfg.Strategy = strategy.FakeBreakoutPreset()
	cfg.Strategy.Window = 30
	engine := NewEngine(cfg, store, nil)

	result, err := engine.Run(context.Background(), feed.NewStaticFeed(fakeBreakoutSeries()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}
	if got := len(store.Experiences()); got != len(result.Trades) {
		t.Errorf("experiences = %d, want one per closed trade (%d)", got, len(result.Trades))
	}

	// The run's final save must survive a reload.
	reloaded := experience.NewStore(path, 1000)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(reloaded.Experiences()); got != len(result.Trades) {
		t.Errorf("reloaded experiences = %d, want %d", got, len(result.Trades))
	}
	if *reloaded.Parameters() != result.Parameters {
		t.Errorf("reloaded parameters %+v differ from run result %+v", *reloaded.Parameters(), result.Parameters)
	}
}

func shiftCandles(candles []models.Candle, offset int) []models.Candle {
	for i := range candles {
		candles[i].OpenTime = baseTime.Add(time.Duration(offset+i) * 5 * time.Minute)
		candles[i].CloseTime = candles[i].OpenTime.Add(5 * time.Minute)
	}
	return candles
}
