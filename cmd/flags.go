package main

import (
	"github.com/cwbudde/letterfit/internal/opt"
	"github.com/spf13/cobra"
)

// envConfig holds the LETTERFIT_* defaults; flags registered by
// addConfigFlags write straight into it.
var envConfig, envConfigErr = opt.LoadConfig()

// addConfigFlags exposes the main run settings as flags whose defaults come
// from the environment.
func addConfigFlags(cmd *cobra.Command, cfg *opt.Config) {
	f := cmd.Flags()
	f.Int64Var(&cfg.RangeStart, "start", cfg.RangeStart, "First integer of the range")
	f.Int64Var(&cfg.RangeEnd, "end", cfg.RangeEnd, "Last integer of the range (inclusive)")
	f.IntVar(&cfg.PopulationSize, "pop", cfg.PopulationSize, "Population size")
	f.IntVar(&cfg.MaxGenerations, "generations", cfg.MaxGenerations, "Maximum number of generations")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")

	f.StringVar((*string)(&cfg.SpaceOperator), "space-op", string(cfg.SpaceOperator), "Space operator: auto, add, subtract, multiply, divide")
	f.StringVar((*string)(&cfg.HyphenOperator), "hyphen-op", string(cfg.HyphenOperator), "Hyphen operator: minus, add, multiply, divide")
	f.IntVar(&cfg.DecimalPrecision, "precision", cfg.DecimalPrecision, "Decimal places formula values are rounded to")
	f.BoolVar(&cfg.AllowNegativeLetters, "allow-negative", cfg.AllowNegativeLetters, "Allow negative letter values")
	f.Float64Var(&cfg.LetterBound, "bound", cfg.LetterBound, "Absolute bound on letter values")

	f.Float64Var(&cfg.EliteFraction, "elite", cfg.EliteFraction, "Fraction of the population kept unchanged")
	f.IntVar(&cfg.TournamentSize, "tournament", cfg.TournamentSize, "Tournament size")
	f.Float64Var(&cfg.MutationRate, "mutation-rate", cfg.MutationRate, "Base per-letter mutation rate")
	f.IntVar(&cfg.RefineEvery, "refine-every", cfg.RefineEvery, "Refine the best individual every N generations (0 disables)")
	f.IntVar(&cfg.GradientPasses, "gradient-passes", cfg.GradientPasses, "Gradient descent passes per refinement (0 disables)")
	f.BoolVar(&cfg.LinearSeed, "linear-seed", cfg.LinearSeed, "Seed one individual from a least-squares fit")
	f.IntVar(&cfg.SwarmIterations, "swarm-iters", cfg.SwarmIterations, "Mayfly iterations for a swarm seed (0 disables)")
	f.Float64Var(&cfg.EarlyStopRatio, "early-stop", cfg.EarlyStopRatio, "Stop once this fraction of the range is solved (0 disables)")
	f.IntVar(&cfg.Patience, "patience", cfg.Patience, "Stop after N generations without improvement (0 disables)")
	f.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "Concurrent fitness evaluations (0 = GOMAXPROCS)")
}
