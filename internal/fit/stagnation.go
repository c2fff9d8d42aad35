package fit

import (
	"log/slog"
	"math"
)

// StagnationConfig defines when a run counts as stagnant.
type StagnationConfig struct {
	// Patience is the number of generations without significant improvement
	// before Update reports stagnation. Zero disables detection.
	Patience int

	// Threshold is the minimum relative improvement that resets the counter.
	// Example: 0.001 requires a 0.1% improvement.
	Threshold float64
}

// DefaultStagnationConfig returns sensible defaults for stagnation detection.
func DefaultStagnationConfig() StagnationConfig {
	return StagnationConfig{
		Patience:  50,
		Threshold: 0.001,
	}
}

// StagnationTracker follows the best fitness per generation and detects
// when the search stops making progress.
type StagnationTracker struct {
	config          StagnationConfig
	updates         int
	best            float64
	lastSignificant float64
	stale           int
}

// NewStagnationTracker creates a tracker with the given config.
func NewStagnationTracker(config StagnationConfig) *StagnationTracker {
	return &StagnationTracker{
		config:          config,
		best:            math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records the best fitness of a generation and returns true once the
// patience is exhausted.
func (s *StagnationTracker) Update(fitness float64) bool {
	s.updates++
	if fitness < s.best {
		s.best = fitness
	}

	if s.updates == 1 {
		s.lastSignificant = fitness
		return false
	}

	if s.significant(fitness) {
		s.lastSignificant = fitness
		s.stale = 0
		return false
	}

	s.stale++
	if s.config.Patience <= 0 || s.stale < s.config.Patience {
		return false
	}

	slog.Info("Stagnation detected",
		"stale_generations", s.stale,
		"patience", s.config.Patience,
		"best_fitness", s.best,
	)
	return true
}

func (s *StagnationTracker) significant(fitness float64) bool {
	if s.lastSignificant <= 0 {
		return false
	}
	improvement := (s.lastSignificant - fitness) / s.lastSignificant
	return improvement > 0 && improvement >= s.config.Threshold
}

// Stale returns the current number of generations without improvement.
func (s *StagnationTracker) Stale() int {
	return s.stale
}
