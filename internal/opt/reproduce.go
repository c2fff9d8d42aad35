package opt

import (
	"fmt"
	"math"

	"github.com/cwbudde/letterfit/internal/fit"
)

// MutationKind is the perturbation applied to a mutated letter.
type MutationKind int

const (
	// MutateSmall adds Gaussian noise with the small step deviation.
	MutateSmall MutationKind = iota
	// MutateMedium adds Gaussian noise with the medium step deviation.
	MutateMedium
	// MutateRedraw replaces the letter with a fresh uniform draw.
	MutateRedraw
)

func (k MutationKind) String() string {
	switch k {
	case MutateSmall:
		return "small"
	case MutateMedium:
		return "medium"
	case MutateRedraw:
		return "redraw"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// eliteCount is the number of best individuals copied unchanged, kept
// within [1, size-1].
func (r *run) eliteCount() int {
	size := r.cfg.PopulationSize
	n := int(math.Round(r.cfg.EliteFraction * float64(size)))
	return min(max(n, 1), size-1)
}

// tournamentSize shrinks the configured size for small populations.
func (r *run) tournamentSize() int {
	return min(r.cfg.TournamentSize, max(2, r.cfg.PopulationSize/3))
}

// tournament draws k individuals with replacement and returns the fittest.
// The population is sorted, so the lowest drawn index wins.
func (r *run) tournament(k int) *Individual {
	best := r.rng.IntN(len(r.pop))
	for i := 1; i < k; i++ {
		if j := r.rng.IntN(len(r.pop)); j < best {
			best = j
		}
	}
	return r.pop[best]
}

// crossover takes each letter from parent a, parent b, or their noisy mean.
func (r *run) crossover(a, b *Individual) fit.Assignment {
	var child fit.Assignment
	pa, pb := r.cfg.CrossoverA, r.cfg.CrossoverA+r.cfg.CrossoverB
	for i := range child {
		switch u := r.rng.Float64(); {
		case u < pa:
			child[i] = a.Assignment[i]
		case u < pb:
			child[i] = b.Assignment[i]
		default:
			child[i] = (a.Assignment[i]+b.Assignment[i])/2 + r.rng.NormFloat64()*r.cfg.CrossoverNoise
		}
	}
	return child
}

// MutationRateAt returns the per-letter mutation probability for generation g.
// It rises linearly with g and is capped at MaxMutationRate.
func (c Config) MutationRateAt(g int) float64 {
	progress := float64(g) / float64(c.MaxGenerations)
	return min(c.MaxMutationRate, c.MutationRate*(1+c.MutationBoost*progress))
}

func (r *run) mutationKind() MutationKind {
	s := r.cfg.MutationSplit
	u := r.rng.Float64() * (s.Small + s.Medium + s.Redraw)
	switch {
	case u < s.Small:
		return MutateSmall
	case u < s.Small+s.Medium:
		return MutateMedium
	default:
		return MutateRedraw
	}
}

// mutate perturbs each letter with probability rate and clamps the result.
func (r *run) mutate(a *fit.Assignment, rate float64) {
	for i := range a {
		if r.rng.Float64() >= rate {
			continue
		}
		switch r.mutationKind() {
		case MutateSmall:
			a[i] += r.rng.NormFloat64() * r.cfg.SmallStep
		case MutateMedium:
			a[i] += r.rng.NormFloat64() * r.cfg.MediumStep
		case MutateRedraw:
			a[i] = r.randomLetter()
		}
	}
	r.bounds.ClampAssignment(a)
}

// refine hill-climbs the best individual one letter at a time. An improved
// copy replaces it; the original individual is never modified.
func (r *run) refine() {
	best := r.pop[0]
	cand := best.Assignment
	fitness, solved := best.Fitness, best.Solved
	step := r.cfg.RefineStep

	improvedAny := false
	for pass := 0; pass < r.cfg.RefinePasses; pass++ {
		improved := false
		for i := range cand {
			orig := cand[i]
			for _, delta := range [2]float64{step, -step} {
				v := r.bounds.Clamp(orig + delta)
				if v == orig {
					continue
				}
				cand[i] = v
				f, s := r.eval.Score(&cand)
				if f < fitness {
					fitness, solved = f, s
					improved = true
					break
				}
				cand[i] = orig
			}
		}
		if !improved {
			break
		}
		improvedAny = true
	}

	if improvedAny {
		r.pop[0] = &Individual{Assignment: cand, Fitness: fitness, Solved: solved}
	}
}

// gradientStep moves every letter against a central-difference estimate of
// the fitness gradient at a. Each move is capped at GradientMaxStep.
func (r *run) gradientStep(a fit.Assignment) fit.Assignment {
	eps, maxStep := r.cfg.GradientEps, r.cfg.GradientMaxStep
	next := a
	shifted := a
	for i := range a {
		orig := a[i]
		shifted[i] = orig + eps
		plus, _ := r.eval.Score(&shifted)
		shifted[i] = orig - eps
		minus, _ := r.eval.Score(&shifted)
		shifted[i] = orig

		grad := (plus - minus) / (2 * eps)
		if math.IsNaN(grad) || math.IsInf(grad, 0) {
			continue
		}
		next[i] = orig + max(-maxStep, min(maxStep, -r.cfg.GradientRate*grad))
	}
	r.bounds.ClampAssignment(&next)
	return next
}

// gradientRefine runs up to GradientPasses descent steps on the best
// individual and stops at the first step that does not improve it. Like
// refine it replaces pop[0] with a new individual.
func (r *run) gradientRefine() {
	best := r.pop[0]
	cand, fitness, solved := best.Assignment, best.Fitness, best.Solved

	improved := false
	for pass := 0; pass < r.cfg.GradientPasses; pass++ {
		next := r.gradientStep(cand)
		f, s := r.eval.Score(&next)
		if !(f < fitness) {
			break
		}
		cand, fitness, solved = next, f, s
		improved = true
	}

	if improved {
		r.pop[0] = &Individual{Assignment: cand, Fitness: fitness, Solved: solved}
	}
}
