package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/operations/feed"
	"CryptoBacktester/internal/repositories"
	"CryptoBacktester/internal/services/analytics"
	"CryptoBacktester/internal/services/experience"
	"CryptoBacktester/internal/services/position"
	"CryptoBacktester/internal/services/risk"
	"CryptoBacktester/internal/services/strategy"
)

// Engine runs one backtest: a strict single-threaded candle loop where every
// side effect of step i completes before step i+1. The experience store and
// trade repository are optional; without them the run is purely in-memory.
type Engine struct {
	cfg Config

	params    *strategy.Parameters
	generator *strategy.SignalGenerator
	filter    *strategy.SignalFilter
	riskMgr   *risk.Manager
	posMgr    *position.Manager
	perf      *analytics.Service

	store     *experience.Store
	learner   *experience.Learner
	tradeRepo *repositories.TradeRepository
}

// entryMeta is the market context captured when a position opens, carried
// until its close annotates the experience record.
type entryMeta struct {
	condition string
	snapshot  map[string]float64
}

func NewEngine(cfg Config, store *experience.Store, tradeRepo *repositories.TradeRepository) *Engine {
	var params *strategy.Parameters
	if store != nil {
		params = store.Parameters()
	} else {
		p := strategy.DefaultParameters()
		params = &p
	}

	generator := strategy.NewSignalGenerator(cfg.Strategy, params)
	e := &Engine{
		cfg:       cfg,
		params:    params,
		generator: generator,
		filter:    strategy.NewSignalFilter(cfg.Strategy),
		riskMgr:   risk.NewManager(cfg.Risk, params),
		posMgr:    position.NewManager(cfg.Position, params),
		perf:      analytics.NewService(cfg.Analytics),
		store:     store,
		tradeRepo: tradeRepo,
	}
	if store != nil {
		generator.SetPatternSource(store)
		e.learner = experience.NewLearner(cfg.Learner, store, cfg.Bounds)
	}
	return e
}

// Run executes the backtest over the feed's candles and returns the result.
// A fatal drawdown breach or catastrophic exit terminates the run early with
// a distinct status; both are expected terminal outcomes, not errors.
func (e *Engine) Run(ctx context.Context, candleFeed feed.CandleFeed) (*Result, error) {
	candles, err := candleFeed.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, errors.New("empty candle feed")
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	capital := models.NewCapitalState(e.cfg.InitialCapital)
	gate := &risk.Gate{}
	var open []*models.Position
	meta := make(map[*models.Position]entryMeta)
	var trades []models.ClosedTrade
	equity := make([]analytics.EquityPoint, 0, len(candles))
	status := StatusCompleted
	sinceSave := 0
	stopIdx := len(candles) - 1

loop:
	for i := range candles {
		candle := candles[i]

		// Exits first, so freed capital and cooldowns are visible to this
		// step's entry decision.
		remaining := open[:0]
		for _, pos := range open {
			closes, done, err := e.posMgr.CheckExit(pos, candle)
			if errors.Is(err, position.ErrCatastrophicExit) {
				log.Printf("Catastrophic exit on %s at %s: %v", pos.Symbol, candle.CloseTime.Format("2006-01-02 15:04:05"), err)
				closes = append(closes, e.liquidate(pos, candle))
				done = true
				status = StatusStoppedCatastrophic
			} else if err != nil {
				return nil, err
			}
			for _, trade := range closes {
				e.bookClose(trade, &capital, gate, meta[pos], candles, i, &sinceSave)
				trades = append(trades, trade)
			}
			if done {
				delete(meta, pos)
			} else {
				remaining = append(remaining, pos)
			}
		}
		open = remaining

		if status == StatusStoppedCatastrophic {
			equity = append(equity, analytics.EquityPoint{Time: candle.CloseTime, Capital: capital.Current})
			stopIdx = i
			break loop
		}
		if e.riskMgr.FatalBreach(capital.Drawdown()) {
			status = StatusStoppedDrawdown
			for _, pos := range open {
				trade := e.posMgr.ForceClose(pos, candle.Close, candle.CloseTime, models.ExitReasonEndOfData)
				e.bookClose(trade, &capital, gate, meta[pos], candles, i, &sinceSave)
				trades = append(trades, trade)
				delete(meta, pos)
			}
			open = nil
			equity = append(equity, analytics.EquityPoint{Time: candle.CloseTime, Capital: capital.Current})
			stopIdx = i
			break loop
		}

		if len(open) < e.cfg.MaxOpenPositions && capital.Current > 0 {
			if pos, m, ok := e.tryEnter(candles, i, &capital, gate); ok {
				open = append(open, pos)
				meta[pos] = m
			}
		}

		equity = append(equity, analytics.EquityPoint{Time: candle.CloseTime, Capital: capital.Current})
	}

	// Whatever is still open liquidates at the last processed close; on an
	// early stop that is the candle the loop broke on, not the end of the feed.
	last := candles[stopIdx]
	if len(open) > 0 {
		for _, pos := range open {
			trade := e.posMgr.ForceClose(pos, last.Close, last.CloseTime, models.ExitReasonEndOfData)
			e.bookClose(trade, &capital, gate, meta[pos], candles, stopIdx, &sinceSave)
			trades = append(trades, trade)
		}
		equity[len(equity)-1].Capital = capital.Current
	}

	if e.store != nil {
		if err := e.store.Save(); err != nil {
			log.Printf("Error saving experience store: %v", err)
		}
	}
	if e.tradeRepo != nil {
		if err := e.tradeRepo.CreateBatch(trades); err != nil {
			log.Printf("Error persisting closed trades: %v", err)
		}
	}

	days := last.CloseTime.Sub(candles[0].OpenTime).Hours() / 24
	report := e.perf.Compute(trades, equity, capital, days)

	return &Result{
		Status:     status,
		Trades:     trades,
		Equity:     equity,
		Capital:    capital,
		Report:     report,
		Parameters: *e.params,
	}, nil
}

// tryEnter runs the full entry pipeline for one step: signal, filter, risk
// authorization, sizing, and the open itself.
func (e *Engine) tryEnter(candles []models.Candle, i int, capital *models.CapitalState, gate *risk.Gate) (*models.Position, entryMeta, bool) {
	candle := candles[i]

	sig := e.generator.Generate(candles, i)
	state := e.generator.MarketState(candles, i)
	if ok, _ := e.filter.Accept(sig, state); !ok {
		return nil, entryMeta{}, false
	}
	if ok, reason := e.riskMgr.Authorize(gate, candle.CloseTime, capital.Drawdown()); !ok {
		log.Printf("Entry refused at %s: %s", candle.CloseTime.Format("2006-01-02 15:04:05"), reason)
		return nil, entryMeta{}, false
	}

	fraction := e.riskMgr.PositionFraction(sig.Confidence)
	notional := capital.Current * fraction
	if notional <= 0 {
		return nil, entryMeta{}, false
	}
	leverage := e.riskMgr.Leverage(sig.Confidence, capital.Drawdown())

	side := models.PositionSideLong
	if sig.Action == strategy.ActionShort {
		side = models.PositionSideShort
	}
	pos := e.posMgr.Open(e.cfg.Symbol, side, candle.Close, candle.CloseTime, i, notional, leverage, sig.Confidence, sig.Tag)
	e.riskMgr.RecordEntry(gate, candle.CloseTime)

	return pos, entryMeta{condition: state, snapshot: e.generator.Snapshot(candles, i)}, true
}

// bookClose applies one realized trade to capital, the risk gate, and the
// learning loop, persisting the store at the configured cadence.
func (e *Engine) bookClose(trade models.ClosedTrade, capital *models.CapitalState, gate *risk.Gate, m entryMeta, candles []models.Candle, i int, sinceSave *int) {
	capital.ApplyPnL(trade.PnL)
	e.riskMgr.RecordClose(gate, trade.ExitTime)

	if e.learner == nil {
		return
	}
	e.learner.OnTradeClosed(trade, m.condition, m.snapshot, e.generator.Snapshot(candles, i))

	*sinceSave++
	if e.cfg.SaveEvery > 0 && *sinceSave >= e.cfg.SaveEvery {
		*sinceSave = 0
		if err := e.store.Save(); err != nil {
			log.Printf("Error saving experience store: %v", err)
		}
	}
}

// liquidate closes the remainder of a position at the candle's adverse
// extreme after a catastrophic breach.
func (e *Engine) liquidate(pos *models.Position, candle models.Candle) models.ClosedTrade {
	price := candle.Low
	if pos.Side == models.PositionSideShort {
		price = candle.High
	}
	return e.posMgr.ForceClose(pos, price, candle.CloseTime, models.ExitReasonStopLoss)
}
