package strategy

// SignalFilter is a pure predicate over a signal and the current market
// state. It never mutates anything and is safe to call repeatedly with the
// same signal.
type SignalFilter struct {
	cfg Config
}

func NewSignalFilter(cfg Config) *SignalFilter {
	return &SignalFilter{cfg: cfg}
}

// Accept returns whether the signal is actionable, with a reason when it is
// not.
func (f *SignalFilter) Accept(sig Signal, marketState string) (bool, string) {
	if sig.Action == ActionHold {
		return false, "hold signal"
	}
	if sig.Confidence < f.cfg.MinConfidence {
		return false, "low confidence"
	}
	if !stateAllowed(marketState, f.cfg.AllowedStates) {
		return false, "market state not allowed"
	}

	active := 0
	agreeing := 0
	for _, r := range sig.Rules {
		if r.Action == ActionHold {
			continue
		}
		active++
		if r.Action == sig.Action {
			agreeing++
		}
	}
	if active > 0 && float64(agreeing)/float64(active) < f.cfg.AgreementRatio {
		return false, "insufficient rule agreement"
	}
	return true, ""
}
