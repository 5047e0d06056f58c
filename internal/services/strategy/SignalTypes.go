package strategy

type Action string

const (
	ActionHold  Action = "hold"
	ActionLong  Action = "long"
	ActionShort Action = "short"
)

type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthStrong Strength = "strong"
)

// Rule names double as strategy tags on emitted signals.
const (
	RuleTrendFollow     = "trend_follow"
	RuleMeanReversion   = "mean_reversion"
	RuleVolatilitySpike = "volatility_spike"
	RuleMomentumExtreme = "momentum_extreme"
	RuleFakeBreakout    = "fake_breakout"
)

// RuleResult is one detection rule's independent proposal for the current step.
type RuleResult struct {
	Name       string
	Action     Action
	Strength   float64 // raw strength in [0,1]
	Confidence float64 // rule's own confidence in [0,1]
}

// Signal is the combined output of one evaluation step. It is produced once
// per step and discarded after the filter/position manager consume it.
type Signal struct {
	Action     Action
	Strength   Strength
	Confidence float64
	Rules      []RuleResult // the active rules that contributed
	Tag        string       // name of the dominant rule
}

// Hold is the neutral signal emitted when no rule clears the minimum strength.
func Hold() Signal {
	return Signal{
		Action:     ActionHold,
		Strength:   StrengthWeak,
		Confidence: 0.5,
	}
}
