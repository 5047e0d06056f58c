package strategy

// Parameters are the tunable bases the learning loop is allowed to move:
// leverage, position sizing, and exit offsets. They are shared by reference
// between the signal generator, risk manager, and learner, and mutated only
// through ApplyOptimization so every change is clamped and auditable.
type Parameters struct {
	Leverage         float64 `json:"leverage"`
	PositionSizeBase float64 `json:"position_size_base"`
	StopLossPct      float64 `json:"stop_loss_pct"`
	TakeProfitPct    float64 `json:"take_profit_pct"`
}

// ParameterDelta is one bounded adjustment produced by a re-tuning pass.
type ParameterDelta struct {
	Leverage         float64
	PositionSizeBase float64
	TakeProfitPct    float64
}

// ParameterBounds clamp every tunable to its configured band.
type ParameterBounds struct {
	LeverageMin, LeverageMax         float64
	PositionSizeMin, PositionSizeMax float64
	TakeProfitMin, TakeProfitMax     float64
}

func DefaultParameters() Parameters {
	return Parameters{
		Leverage:         5,
		PositionSizeBase: 0.05,
		StopLossPct:      0.01,
		TakeProfitPct:    0.02,
	}
}

func DefaultParameterBounds() ParameterBounds {
	return ParameterBounds{
		LeverageMin:     1,
		LeverageMax:     20,
		PositionSizeMin: 0.01,
		PositionSizeMax: 0.20,
		TakeProfitMin:   0.005,
		TakeProfitMax:   0.08,
	}
}

// ApplyOptimization is the single mutation entry point for the tunables.
func (p *Parameters) ApplyOptimization(delta ParameterDelta, bounds ParameterBounds) {
	p.Leverage = clamp(p.Leverage+delta.Leverage, bounds.LeverageMin, bounds.LeverageMax)
	p.PositionSizeBase = clamp(p.PositionSizeBase+delta.PositionSizeBase, bounds.PositionSizeMin, bounds.PositionSizeMax)
	p.TakeProfitPct = clamp(p.TakeProfitPct+delta.TakeProfitPct, bounds.TakeProfitMin, bounds.TakeProfitMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
