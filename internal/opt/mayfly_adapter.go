package opt

import (
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// minSwarmPopulation is the smallest population mayfly accepts.
const minSwarmPopulation = 20

// MayflyAdapter runs the mayfly swarm optimiser behind the Optimizer interface.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a mayfly optimiser. popSize is raised to the library
// minimum when smaller.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  max(popSize, minSwarmPopulation),
		seed:     seed,
	}
}

// Run executes the swarm search. mayfly only supports scalar bounds, so the
// first dimension's bounds apply to all dimensions.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Swarm search failed, using box centre", "error", err)
		centre := make([]float64, dim)
		for i := range centre {
			centre[i] = (lower[0] + upper[0]) / 2
		}
		return centre, eval(centre)
	}

	return result.GlobalBest.Position, result.GlobalBest.Cost
}
