package opt

// Optimizer is a continuous black-box minimiser used to produce a seed
// assignment before the genetic search starts.
type Optimizer interface {
	// Run minimises eval over the box [lower, upper] of the given dimension
	// and returns the best position with its cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}
