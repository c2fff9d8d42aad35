package opt

import (
	"testing"

	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRun(t *testing.T, cfg Config) *run {
	t.Helper()
	r := newTestEngine(t, cfg).newRun(nil)
	r.seed()
	r.evaluate()
	return r
}

func TestSeedPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.PopulationSize = 20
	cfg.SeedFraction = 0.5
	r := seededRun(t, cfg)

	require.Len(t, r.pop, 20)
	bounds := fit.NewBounds(cfg.Rules)
	for _, ind := range r.pop {
		for _, v := range ind.Assignment {
			assert.True(t, bounds.Contains(v))
		}
	}
}

func TestSeedLinearSlot(t *testing.T) {
	cfg := testConfig()
	cfg.AllowNegativeLetters = false
	r := newTestEngine(t, cfg).newRun(nil)
	r.seed()

	want, ok := r.linearSeed()
	require.True(t, ok)
	assert.Equal(t, want, r.pop[len(r.pop)-1].Assignment)
	for _, v := range want {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestHeuristicStrategies(t *testing.T) {
	cfg := testConfig()
	cfg.LetterBound = 0.5
	r := newTestEngine(t, cfg).newRun(nil)
	bounds := fit.NewBounds(cfg.Rules)

	for _, s := range SeedStrategies {
		t.Run(s.String(), func(t *testing.T) {
			a := r.heuristic(s)
			for _, v := range a {
				assert.True(t, bounds.Contains(v))
			}
		})
	}

	assert.Equal(t, "SeedStrategy(9)", SeedStrategy(9).String())
}

func TestEliteCount(t *testing.T) {
	tests := []struct {
		size     int
		fraction float64
		want     int
	}{
		{100, 0.1, 10},
		{4, 0.1, 1},
		{4, 0.99, 3},
		{30, 0.05, 2},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.PopulationSize = tt.size
		cfg.EliteFraction = tt.fraction
		r := newTestEngine(t, cfg).newRun(nil)
		assert.Equal(t, tt.want, r.eliteCount(), "size=%d fraction=%v", tt.size, tt.fraction)
	}
}

func TestTournamentSize(t *testing.T) {
	cfg := testConfig()

	cfg.PopulationSize = 100
	assert.Equal(t, 7, newTestEngine(t, cfg).newRun(nil).tournamentSize())

	cfg.PopulationSize = 9
	assert.Equal(t, 3, newTestEngine(t, cfg).newRun(nil).tournamentSize())

	cfg.PopulationSize = 4
	assert.Equal(t, 2, newTestEngine(t, cfg).newRun(nil).tournamentSize())
}

func TestTournamentFavoursFitter(t *testing.T) {
	r := seededRun(t, testConfig())

	wins := map[*Individual]int{}
	for i := 0; i < 2000; i++ {
		wins[r.tournament(r.tournamentSize())]++
	}
	assert.Greater(t, wins[r.pop[0]], wins[r.pop[len(r.pop)-1]])
}

func TestCrossoverSources(t *testing.T) {
	cfg := testConfig()
	cfg.CrossoverA, cfg.CrossoverB = 1, 0
	r := newTestEngine(t, cfg).newRun(nil)

	a := &Individual{Assignment: fit.Uniform(1)}
	b := &Individual{Assignment: fit.Uniform(2)}
	assert.Equal(t, a.Assignment, r.crossover(a, b))

	r.cfg.CrossoverA, r.cfg.CrossoverB = 0, 1
	assert.Equal(t, b.Assignment, r.crossover(a, b))

	r.cfg.CrossoverA, r.cfg.CrossoverB, r.cfg.CrossoverNoise = 0, 0, 0
	assert.Equal(t, fit.Uniform(1.5), r.crossover(a, b))
}

func TestMutateKeepsBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MediumStep = 50
	r := newTestEngine(t, cfg).newRun(nil)
	bounds := fit.NewBounds(cfg.Rules)

	for i := 0; i < 100; i++ {
		a := fit.Uniform(bounds.Upper)
		r.mutate(&a, 1)
		for _, v := range a {
			assert.True(t, bounds.Contains(v))
		}
	}

	a := fit.Uniform(1)
	r.mutate(&a, 0)
	assert.Equal(t, fit.Uniform(1), a)
}

func TestMutationKindSplit(t *testing.T) {
	cfg := testConfig()
	cfg.MutationSplit = MutationSplit{Redraw: 1}
	r := newTestEngine(t, cfg).newRun(nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, MutateRedraw, r.mutationKind())
	}

	r.cfg.MutationSplit = MutationSplit{Small: 1}
	for i := 0; i < 50; i++ {
		assert.Equal(t, MutateSmall, r.mutationKind())
	}
	assert.Equal(t, "medium", MutateMedium.String())
}

func TestRefineNeverWorsensAndCopies(t *testing.T) {
	r := seededRun(t, testConfig())

	before := r.pop[0]
	original := before.Assignment
	r.refine()

	assert.Equal(t, original, before.Assignment, "refine copies before modifying")
	assert.LessOrEqual(t, r.pop[0].Fitness, before.Fitness)

	f, s := r.eval.Score(&r.pop[0].Assignment)
	assert.Equal(t, f, r.pop[0].Fitness)
	assert.Equal(t, s, r.pop[0].Solved)
}

// oneRun fits the single number ONE with non-negative letters.
func oneRun(t *testing.T) *run {
	t.Helper()
	cfg := testConfig()
	cfg.RangeStart, cfg.RangeEnd = 1, 1
	cfg.AllowNegativeLetters = false
	return newTestEngine(t, cfg).newRun(nil)
}

func TestGradientStepFollowsSlope(t *testing.T) {
	r := oneRun(t)

	// O = N = E = 2 gives ONE = 8, so every partial derivative of
	// (ONE - 1)^2 is 2*7*4 = 56 and the step is capped at GradientMaxStep.
	a := fit.Uniform(1)
	a.Set('O', 2)
	a.Set('N', 2)
	a.Set('E', 2)

	next := r.gradientStep(a)
	for _, c := range []byte("ONE") {
		assert.InDelta(t, 2-r.cfg.GradientMaxStep, next.Get(c), 1e-12, "letter %c", c)
	}
	for _, c := range []byte("ABCDFGHIJKLMPQRSTUVWXYZ") {
		assert.Equal(t, 1.0, next.Get(c), "letter %c has no slope", c)
	}
	assert.Equal(t, 2.0, a.Get('O'), "input is not modified")
}

func TestGradientRefineImprovesBest(t *testing.T) {
	r := oneRun(t)

	a := fit.Uniform(1)
	a.Set('O', 2)
	a.Set('N', 2)
	a.Set('E', 2)
	f, s := r.eval.Score(&a)
	require.InDelta(t, 49.0, f, 1e-9)

	before := &Individual{Assignment: a, Fitness: f, Solved: s}
	r.pop = []*Individual{before}
	r.gradientRefine()

	assert.Less(t, r.pop[0].Fitness, before.Fitness)
	assert.Equal(t, a, before.Assignment, "gradientRefine copies before modifying")

	f, s = r.eval.Score(&r.pop[0].Assignment)
	assert.Equal(t, f, r.pop[0].Fitness)
	assert.Equal(t, s, r.pop[0].Solved)
}

func TestGradientRefineDisabled(t *testing.T) {
	r := oneRun(t)
	r.cfg.GradientPasses = 0

	a := fit.Uniform(2)
	f, s := r.eval.Score(&a)
	before := &Individual{Assignment: a, Fitness: f, Solved: s}
	r.pop = []*Individual{before}
	r.gradientRefine()

	assert.Same(t, before, r.pop[0])
}

func TestGradientRefineNeverWorsens(t *testing.T) {
	r := seededRun(t, testConfig())

	before := r.pop[0]
	r.gradientRefine()
	assert.LessOrEqual(t, r.pop[0].Fitness, before.Fitness)
	for i := 1; i < len(r.pop); i++ {
		assert.LessOrEqual(t, r.pop[i-1].Fitness, r.pop[i].Fitness)
	}
}
