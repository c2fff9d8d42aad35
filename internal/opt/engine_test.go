package opt

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RangeStart, cfg.RangeEnd = 1, 12
	cfg.PopulationSize = 30
	cfg.MaxGenerations = 25
	cfg.Seed = 7
	cfg.EarlyStopRatio = 0
	cfg.Parallelism = 2
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

// stopAfter reports cancellation once Err has been consulted n times.
type stopAfter struct {
	context.Context
	remaining atomic.Int32
}

func newStopAfter(n int32) *stopAfter {
	c := &stopAfter{Context: context.Background()}
	c.remaining.Store(n)
	return c
}

func (c *stopAfter) Err() error {
	if c.remaining.Add(-1) < 0 {
		return context.Canceled
	}
	return nil
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RangeStart, cfg.RangeEnd = 5, 1

	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestNewEngineResolvesParallelism(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 0
	e := newTestEngine(t, cfg)
	assert.Greater(t, e.Config().Parallelism, 0)
	assert.Equal(t, 12, e.Evaluator().Len())
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testConfig()

	r1, err := newTestEngine(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)
	r2, err := newTestEngine(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, r1.Best, r2.Best)
	assert.Equal(t, r1.Fitness, r2.Fitness)
	assert.Equal(t, r1.SolvedCount, r2.SolvedCount)
	assert.Equal(t, r1.Generations, r2.Generations)
}

func TestStepPopulationsAreDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 8

	evolve := func() []*Individual {
		r := newTestEngine(t, cfg).newRun(nil)
		r.seed()
		r.evaluate()
		for g := 0; g < 12; g++ {
			r.step()
		}
		return r.pop
	}

	first, second := evolve(), evolve()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Assignment, second[i].Assignment, "individual %d", i)
		assert.Equal(t, first[i].Fitness, second[i].Fitness, "individual %d", i)
		assert.Equal(t, first[i].Solved, second[i].Solved, "individual %d", i)
	}
}

func TestRunDifferentSeedsDiffer(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerations = 3
	cfg.LinearSeed = false
	r1, err := newTestEngine(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)

	cfg.Seed = 8
	r2, err := newTestEngine(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, r1.Best, r2.Best)
}

func TestRunReports(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)

	reports := make(chan Report, cfg.MaxGenerations+2)
	res, err := e.Run(context.Background(), reports)
	require.NoError(t, err)
	close(reports)

	var got []Report
	for r := range reports {
		got = append(got, r)
	}
	require.Len(t, got, cfg.MaxGenerations+2)

	bounds := fit.NewBounds(cfg.Rules)
	for i, r := range got[:len(got)-1] {
		assert.Equal(t, i, r.Generation)
		assert.False(t, r.Final)
		assert.Equal(t, 12, r.TotalCount)
		for _, v := range r.BestAssignment {
			assert.True(t, bounds.Contains(v))
		}
		if i > 0 {
			assert.LessOrEqual(t, r.BestFitness, got[i-1].BestFitness, "best fitness never worsens")
		}
	}

	final := got[len(got)-1]
	assert.True(t, final.Final)
	assert.Equal(t, res.Generations, final.Generation)
	assert.Equal(t, res.Best, final.BestAssignment)

	assert.Equal(t, cfg.MaxGenerations, res.Generations)
	assert.Equal(t, StopMaxGenerations, res.Stopped)
	assert.False(t, res.Cancelled)
	require.NotNil(t, res.Diagnostics)
	assert.InDelta(t, res.Fitness, res.Diagnostics.Total, 1e-9)
	assert.Equal(t, res.SolvedCount, res.Diagnostics.SolvedCount)
	assert.Len(t, res.Diagnostics.Numbers, 12)
}

func TestRunFullChannelDoesNotBlock(t *testing.T) {
	cfg := testConfig()
	reports := make(chan Report)

	res, err := newTestEngine(t, cfg).Run(context.Background(), reports)
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxGenerations, res.Generations)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestEngine(t, testConfig()).Run(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, StopCancelled, res.Stopped)
	assert.Equal(t, 0, res.Generations)
	assert.NotNil(t, res.Diagnostics)
}

func TestRunCancelledDuringRun(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerations = 1000

	res, err := newTestEngine(t, cfg).Run(newStopAfter(10), nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 10, res.Generations)
}

func TestRunStopsWhenSolved(t *testing.T) {
	cfg := testConfig()
	// ZERO = Z·E·R·O; the least-squares seed of Z+E+R+O = 0 is all zeros and
	// solves it exactly.
	cfg.RangeStart, cfg.RangeEnd = 0, 0
	cfg.AllowNegativeLetters = false
	cfg.LinearSeed = true
	cfg.EarlyStopRatio = 1

	res, err := newTestEngine(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StopSolved, res.Stopped)
	assert.Equal(t, 0, res.Generations)
	assert.Equal(t, 1, res.SolvedCount)
	assert.Equal(t, 0.0, res.Fitness)
	assert.False(t, res.Cancelled)
}

func TestEvaluateBreaksTiesBySolvedCount(t *testing.T) {
	r := newTestEngine(t, testConfig()).newRun(nil)
	fewer := &Individual{Assignment: fit.Uniform(1), Fitness: 3.5, Solved: 1}
	more := &Individual{Assignment: fit.Uniform(2), Fitness: 3.5, Solved: 4}
	worse := &Individual{Assignment: fit.Uniform(3), Fitness: 9, Solved: 12}
	r.pop = []*Individual{worse, fewer, more}

	r.evaluate()

	assert.Equal(t, []*Individual{more, fewer, worse}, r.pop)
}

func TestRunStopsOnStagnation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerations = 5000
	cfg.Patience = 5
	cfg.RefineEvery = 0

	reports := make(chan Report, cfg.MaxGenerations+2)
	res, err := newTestEngine(t, cfg).Run(context.Background(), reports)
	require.NoError(t, err)
	close(reports)
	assert.Equal(t, StopStagnated, res.Stopped)
	assert.Less(t, res.Generations, cfg.MaxGenerations)

	var last Report
	for rep := range reports {
		assert.LessOrEqual(t, rep.Stale, cfg.Patience)
		last = rep
	}
	assert.True(t, last.Final)
	assert.Equal(t, cfg.Patience, last.Stale, "the final report carries the stale count that stopped the run")
}

func TestRunWithSwarmSeed(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerations = 3
	cfg.SwarmIterations = 5

	res, err := newTestEngine(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)

	bounds := fit.NewBounds(cfg.Rules)
	for _, v := range res.Best {
		assert.True(t, bounds.Contains(v))
	}
}

func TestStepPreservesInvariants(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)
	r := e.newRun(nil)
	r.seed()
	r.evaluate()

	bounds := fit.NewBounds(cfg.Rules)
	for g := 1; g <= 15; g++ {
		elite := make([]*Individual, r.eliteCount())
		copy(elite, r.pop)
		snapshot := make([]fit.Assignment, len(elite))
		for i, ind := range elite {
			snapshot[i] = ind.Assignment
		}
		prevBest := r.pop[0].Fitness

		r.step()

		require.Len(t, r.pop, cfg.PopulationSize)
		assert.Equal(t, g, r.gen)
		assert.LessOrEqual(t, r.pop[0].Fitness, prevBest)

		for i, ind := range elite {
			assert.Equal(t, snapshot[i], ind.Assignment, "elite individuals are not modified")
		}
		for i := 1; i < len(r.pop); i++ {
			assert.LessOrEqual(t, r.pop[i-1].Fitness, r.pop[i].Fitness, "population stays sorted")
		}
		for _, ind := range r.pop {
			assert.False(t, ind.stale)
			for _, v := range ind.Assignment {
				assert.True(t, bounds.Contains(v))
			}
			f, s := r.eval.Score(&ind.Assignment)
			assert.Equal(t, f, ind.Fitness)
			assert.Equal(t, s, ind.Solved)
		}
	}
}
