package opt

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/letterfit/internal/fit"
)

// SeedStrategy is a heuristic for building an initial assignment.
type SeedStrategy int

const (
	// SeedHinted draws hinted letters from their hint interval and falls
	// back to SeedFrequency for the rest.
	SeedHinted SeedStrategy = iota
	// SeedFrequency scales letters by their English text frequency.
	SeedFrequency
	// SeedUniformSmall draws every letter near one.
	SeedUniformSmall
	// SeedAscending grows with the alphabet position.
	SeedAscending
	// SeedDescending shrinks with the alphabet position.
	SeedDescending
	// SeedVowel keeps vowels near one and spreads consonants wider.
	SeedVowel
)

// SeedStrategies lists the heuristics in the order they are cycled.
var SeedStrategies = []SeedStrategy{SeedHinted, SeedFrequency, SeedUniformSmall, SeedAscending, SeedDescending, SeedVowel}

func (s SeedStrategy) String() string {
	switch s {
	case SeedHinted:
		return "hinted"
	case SeedFrequency:
		return "frequency"
	case SeedUniformSmall:
		return "uniform-small"
	case SeedAscending:
		return "ascending"
	case SeedDescending:
		return "descending"
	case SeedVowel:
		return "vowel"
	default:
		return fmt.Sprintf("SeedStrategy(%d)", int(s))
	}
}

var letterFrequency = [fit.Letters]float64{
	'A' - 'A': 0.5, 'D' - 'A': 0.2, 'E' - 'A': 0.8, 'H' - 'A': 0.3, 'I' - 'A': 0.4,
	'L' - 'A': 0.2, 'N' - 'A': 0.4, 'O' - 'A': 0.5, 'R' - 'A': 0.3, 'S' - 'A': 0.3,
	'T' - 'A': 0.6,
	'B' - 'A': 0.1, 'C' - 'A': 0.1, 'F' - 'A': 0.1, 'G' - 'A': 0.1, 'M' - 'A': 0.1,
	'P' - 'A': 0.1, 'U' - 'A': 0.1, 'V' - 'A': 0.1, 'W' - 'A': 0.1, 'Y' - 'A': 0.1,
	'J' - 'A': 0.05, 'K' - 'A': 0.05, 'Q' - 'A': 0.05, 'X' - 'A': 0.05, 'Z' - 'A': 0.05,
}

func isVowel(letter byte) bool {
	switch letter {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

// uniform draws from [lo, hi).
func (r *run) uniform(lo, hi float64) float64 {
	return lo + r.rng.Float64()*(hi-lo)
}

// heuristic builds one assignment with the given strategy.
func (r *run) heuristic(s SeedStrategy) fit.Assignment {
	var a fit.Assignment
	for i := range a {
		letter := byte('A' + i)
		switch s {
		case SeedHinted:
			if h := r.hints[i]; h.ok {
				a[i] = r.uniform(h.lo, h.hi)
			} else {
				a[i] = letterFrequency[i] + r.uniform(-0.1, 0.1)
			}
		case SeedFrequency:
			a[i] = letterFrequency[i] + r.uniform(-0.1, 0.1)
		case SeedUniformSmall:
			a[i] = r.uniform(0.5, 1.5)
		case SeedAscending:
			a[i] = float64(i+1)*0.08 + r.uniform(-0.1, 0.1)
		case SeedDescending:
			a[i] = float64(fit.Letters-i)*0.08 + r.uniform(-0.1, 0.1)
		case SeedVowel:
			if isVowel(letter) {
				a[i] = r.uniform(0.6, 1.4)
			} else {
				a[i] = r.uniform(0.2, 1.8)
			}
		}
	}
	r.bounds.ClampAssignment(&a)
	return a
}

// randomLetter draws one letter value uniformly within the bounds.
func (r *run) randomLetter() float64 {
	return r.bounds.Lower + r.rng.Float64()*r.bounds.Span()
}

// random draws every letter uniformly within the bounds.
func (r *run) random() fit.Assignment {
	var a fit.Assignment
	for i := range a {
		a[i] = r.randomLetter()
	}
	return a
}

// seed fills the initial population: heuristic seeds first, random
// assignments for the rest, then the optional solver seeds replace the
// trailing slots.
func (r *run) seed() {
	size := r.cfg.PopulationSize
	heuristics := min(size, int(math.Round(r.cfg.SeedFraction*float64(size))))

	r.solveLinear()
	r.hints = r.hintRanges()

	r.pop = make([]*Individual, 0, size)
	for i := 0; i < heuristics; i++ {
		a := r.heuristic(SeedStrategies[i%len(SeedStrategies)])
		r.pop = append(r.pop, &Individual{Assignment: a, stale: true})
	}
	for len(r.pop) < size {
		r.pop = append(r.pop, &Individual{Assignment: r.random(), stale: true})
	}

	slot := size - 1
	if r.cfg.LinearSeed {
		if a, ok := r.linearSeed(); ok {
			r.pop[slot] = &Individual{Assignment: a, stale: true}
			slot--
		}
	}
	if r.cfg.SwarmIterations > 0 && slot >= 0 {
		r.pop[slot] = &Individual{Assignment: r.swarmSeed(), stale: true}
	}
}

// solveLinear caches the least-squares solution used by the linear seed and
// the letter hints.
func (r *run) solveLinear() {
	if !r.cfg.LinearSeed && r.eval.Len() < minHintRows {
		return
	}
	a, err := LeastSquaresSeed(r.eval.Spellings(), r.eval.Numbers())
	if err != nil {
		slog.Warn("Least-squares solve skipped", "error", err)
		return
	}
	r.lsq, r.lsqOK = a, true
}

func (r *run) linearSeed() (fit.Assignment, bool) {
	a := r.lsq
	if !r.lsqOK {
		return a, false
	}
	if !r.cfg.AllowNegativeLetters {
		for i := range a {
			a[i] = math.Abs(a[i])
		}
	}
	r.bounds.ClampAssignment(&a)
	return a, true
}

func (r *run) swarmSeed() fit.Assignment {
	lower := make([]float64, fit.Letters)
	upper := make([]float64, fit.Letters)
	for i := range lower {
		lower[i], upper[i] = r.bounds.Lower, r.bounds.Upper
	}

	objective := func(x []float64) float64 {
		var a fit.Assignment
		copy(a[:], x)
		r.bounds.ClampAssignment(&a)
		f, _ := r.eval.Score(&a)
		return f
	}

	optimizer := NewMayfly(r.cfg.SwarmIterations, r.cfg.SwarmPopulation, r.rng.Int64())
	best, cost := optimizer.Run(objective, lower, upper, fit.Letters)
	slog.Debug("Swarm seed ready", "cost", cost, "iterations", r.cfg.SwarmIterations)

	var a fit.Assignment
	copy(a[:], best)
	r.bounds.ClampAssignment(&a)
	return a
}
