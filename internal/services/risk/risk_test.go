package risk

import (
	"math"
	"testing"
	"time"

	"CryptoBacktester/internal/services/strategy"
)

func newTestManager(cfg Config) *Manager {
	params := strategy.DefaultParameters()
	return NewManager(cfg, &params)
}

func TestKellyFraction(t *testing.T) {
	m := newTestManager(DefaultConfig())

	tests := []struct {
		name string
		b, p float64
		want float64
	}{
		{"positive edge", 3.0, 0.4, 0.2},
		{"no edge", 1.0, 0.5, 0},
		{"negative edge clamps to zero", 2.0, 0.2, 0},
		{"huge edge clamps to cap", 10.0, 0.9, 0.25},
		{"zero odds", 0, 0.9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.KellyFraction(tt.b, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("KellyFraction(%v, %v) = %v, want %v", tt.b, tt.p, got, tt.want)
			}
		})
	}
}

func TestPositionFractionFixed(t *testing.T) {
	cfg := DefaultConfig()
	m := newTestManager(cfg)

	got := m.PositionFraction(0.8)
	want := 0.05 * 0.8
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("PositionFraction(0.8) = %v, want %v", got, want)
	}

	// Confidence so low the fraction floors out.
	if got := m.PositionFraction(0.01); got != cfg.MinFraction {
		t.Errorf("low-confidence fraction = %v, want floor %v", got, cfg.MinFraction)
	}
}

func TestPositionFractionKelly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = SizingKelly
	cfg.KellyRewardRisk = 3.0
	cfg.KellyWinProb = 0.4
	m := newTestManager(cfg)

	got := m.PositionFraction(0.9)
	if math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Kelly PositionFraction = %v, want 0.2", got)
	}
}

func TestLeverage(t *testing.T) {
	cfg := DefaultConfig()
	m := newTestManager(cfg)

	// Full confidence, no drawdown: the base leverage.
	if got := m.Leverage(1.0, 0); got != 5 {
		t.Errorf("Leverage(1, 0) = %v, want 5", got)
	}

	// Drawdown past the threshold scales leverage down.
	full := m.Leverage(1.0, 0)
	scaled := m.Leverage(1.0, 0.20)
	want := full * (1 - 0.20)
	if math.Abs(scaled-want) > 1e-9 {
		t.Errorf("Leverage(1, 0.20) = %v, want %v", scaled, want)
	}

	// Drawdown under the threshold leaves leverage alone.
	if got := m.Leverage(1.0, 0.04); got != full {
		t.Errorf("Leverage(1, 0.04) = %v, want %v", got, full)
	}

	// The floor holds even at tiny confidence.
	if got := m.Leverage(0.01, 0); got != cfg.MinLeverage {
		t.Errorf("Leverage(0.01, 0) = %v, want floor %v", got, cfg.MinLeverage)
	}
}

func TestAuthorizeDrawdownHalt(t *testing.T) {
	m := newTestManager(DefaultConfig())
	gate := &Gate{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if ok, _ := m.Authorize(gate, now, 0.10); !ok {
		t.Error("entry should be allowed below halt drawdown")
	}
	if ok, reason := m.Authorize(gate, now, 0.15); ok {
		t.Error("entry should be refused at halt drawdown")
	} else if reason == "" {
		t.Error("refusal should carry a reason")
	}
}

func TestAuthorizeCooldown(t *testing.T) {
	m := newTestManager(DefaultConfig())
	gate := &Gate{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	m.RecordClose(gate, now)
	if ok, _ := m.Authorize(gate, now.Add(10*time.Minute), 0); ok {
		t.Error("entry should be refused during cooldown")
	}
	if ok, _ := m.Authorize(gate, now.Add(31*time.Minute), 0); !ok {
		t.Error("entry should be allowed after cooldown expires")
	}
}

func TestAuthorizeDailyCapAndReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDailyTrades = 2
	m := newTestManager(cfg)
	gate := &Gate{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if ok, _ := m.Authorize(gate, now, 0); !ok {
			t.Fatalf("entry %d should be allowed", i)
		}
		m.RecordEntry(gate, now)
	}
	if ok, _ := m.Authorize(gate, now, 0); ok {
		t.Error("entry should be refused at daily cap")
	}

	// A new day resets the count.
	nextDay := now.Add(24 * time.Hour)
	if ok, _ := m.Authorize(gate, nextDay, 0); !ok {
		t.Error("entry should be allowed on a new day")
	}
}

func TestFatalBreach(t *testing.T) {
	m := newTestManager(DefaultConfig())
	if m.FatalBreach(0.29) {
		t.Error("29% drawdown should not be fatal")
	}
	if !m.FatalBreach(0.30) {
		t.Error("30% drawdown should be fatal")
	}
}
