package experience

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"CryptoBacktester/internal/models"
	"CryptoBacktester/internal/services/strategy"
)

const stateVersion = 1

// State is the durable form of the experience store: everything the learning
// loop needs to survive a restart.
type State struct {
	Version       int                         `json:"version"`
	Experiences   []models.Experience         `json:"experiences"`
	Patterns      []models.LearnedPattern     `json:"patterns"`
	Optimizations []models.OptimizationRecord `json:"optimizations"`
	Parameters    strategy.Parameters         `json:"parameters"`
	SavedAt       time.Time                   `json:"saved_at"`
}

// Store holds the experience state in memory and persists it as a single
// JSON blob. Experiences are capped to a FIFO ring; patterns and
// optimization records are append-only history. The mutex enforces
// single-writer discipline when independent runs share one store; within a
// run the simulation core is single-threaded anyway.
type Store struct {
	path           string
	maxExperiences int

	mu    sync.RWMutex
	state State
}

func NewStore(path string, maxExperiences int) *Store {
	if maxExperiences <= 0 {
		maxExperiences = 1000
	}
	return &Store{
		path:           path,
		maxExperiences: maxExperiences,
		state: State{
			Version:    stateVersion,
			Parameters: strategy.DefaultParameters(),
		},
	}
}

// Load reads the persisted state. A missing file is a fresh start and not an
// error. A corrupt or incompatible file resets to defaults and returns the
// error so the caller can report that learning state was lost; the run
// itself continues.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.reset()
		return fmt.Errorf("read experience store: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.reset()
		return fmt.Errorf("decode experience store: %w", err)
	}
	if state.Version != stateVersion {
		s.reset()
		return fmt.Errorf("experience store version %d, want %d", state.Version, stateVersion)
	}
	if state.Parameters.Leverage == 0 {
		state.Parameters = strategy.DefaultParameters()
	}
	s.state = state
	s.trim()
	return nil
}

// Save writes the state atomically: temp file in the same directory, then
// rename over the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SavedAt = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode experience store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create experience dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "experience-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write experience store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace experience store: %w", err)
	}
	return nil
}

// Append records a new experience, evicting the oldest once the ring is full.
func (s *Store) Append(exp models.Experience) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Experiences = append(s.state.Experiences, exp)
	s.trim()
}

func (s *Store) trim() {
	if excess := len(s.state.Experiences) - s.maxExperiences; excess > 0 {
		s.state.Experiences = append([]models.Experience(nil), s.state.Experiences[excess:]...)
	}
}

// Lookup returns the best matching learned pattern for a strategy tag and
// market condition. Patterns are append-only, so several records may share a
// key; the one with the highest success rate wins.
func (s *Store) Lookup(tag, condition string) (models.LearnedPattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best models.LearnedPattern
	found := false
	for _, p := range s.state.Patterns {
		if p.StrategyTag != tag || p.MarketCondition != condition {
			continue
		}
		if !found || p.SuccessRate > best.SuccessRate {
			best = p
			found = true
		}
	}
	return best, found
}

// AddPattern appends a mined pattern snapshot.
func (s *Store) AddPattern(p models.LearnedPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Patterns = append(s.state.Patterns, p)
}

// AddOptimization appends one re-tuning record.
func (s *Store) AddOptimization(rec models.OptimizationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Optimizations = append(s.state.Optimizations, rec)
}

// Parameters exposes the persisted tunables; the engine shares this pointer
// with the signal generator, risk manager, and learner.
func (s *Store) Parameters() *strategy.Parameters {
	return &s.state.Parameters
}

// Experiences returns the current ring, oldest first.
func (s *Store) Experiences() []models.Experience {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Experiences
}

func (s *Store) Patterns() []models.LearnedPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Patterns
}

func (s *Store) Optimizations() []models.OptimizationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Optimizations
}

func (s *Store) reset() {
	s.state = State{
		Version:    stateVersion,
		Parameters: strategy.DefaultParameters(),
	}
}
