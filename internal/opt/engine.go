// Package opt searches for letter assignments with a genetic algorithm.
package opt

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/letterfit/internal/fit"
)

// StopReason tells why a run ended.
type StopReason string

const (
	StopMaxGenerations StopReason = "max-generations"
	StopSolved         StopReason = "solved"
	StopStagnated      StopReason = "stagnated"
	StopCancelled      StopReason = "cancelled"
)

// Individual is a candidate assignment with its cached score.
type Individual struct {
	Assignment fit.Assignment
	Fitness    float64
	Solved     int
	stale      bool
}

// Report is a progress snapshot emitted once per generation.
type Report struct {
	Generation     int            `json:"generation"`
	BestFitness    float64        `json:"bestFitness"`
	SolvedCount    int            `json:"solvedCount"`
	TotalCount     int            `json:"totalCount"`
	MaxError       float64        `json:"maxError"`
	MutationRate   float64        `json:"mutationRate"`
	Stale          int            `json:"staleGenerations"`
	BestAssignment fit.Assignment `json:"bestAssignment"`
	Final          bool           `json:"final"`
}

// Result is the outcome of a run.
type Result struct {
	Best        fit.Assignment `json:"best"`
	Fitness     float64        `json:"fitness"`
	SolvedCount int            `json:"solvedCount"`
	TotalCount  int            `json:"totalCount"`
	Generations int            `json:"generations"`
	Cancelled   bool           `json:"cancelled"`
	Stopped     StopReason     `json:"stopped"`
	Elapsed     time.Duration  `json:"elapsed"`
	Diagnostics *fit.Result    `json:"diagnostics"`
}

// Engine runs the genetic search for one validated configuration.
type Engine struct {
	cfg    Config
	eval   *fit.Evaluator
	bounds fit.Bounds
}

// NewEngine validates cfg and compiles every spelling in the range.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eval, err := fit.NewEvaluator(cfg.RangeStart, cfg.RangeEnd, cfg.Rules, fit.WithNegativeWeight(cfg.NegativeWeight))
	if err != nil {
		return nil, err
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Engine{cfg: cfg, eval: eval, bounds: fit.NewBounds(cfg.Rules)}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Evaluator returns the run's fitness evaluator.
func (e *Engine) Evaluator() *fit.Evaluator { return e.eval }

// run holds the mutable state of one Run call.
type run struct {
	cfg     Config
	eval    *fit.Evaluator
	bounds  fit.Bounds
	rng     *rand.Rand
	pop     []*Individual
	gen     int
	tracker *fit.StagnationTracker
	reports chan<- Report

	lsq   fit.Assignment
	lsqOK bool
	hints [fit.Letters]letterHint
}

func (e *Engine) newRun(reports chan<- Report) *run {
	stagnation := fit.DefaultStagnationConfig()
	stagnation.Patience = e.cfg.Patience
	return &run{
		cfg:     e.cfg,
		eval:    e.eval,
		bounds:  e.bounds,
		rng:     rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed^0x9e3779b97f4a7c15)),
		tracker: fit.NewStagnationTracker(stagnation),
		reports: reports,
	}
}

// Run evolves the population until a stop condition holds. Reports are sent
// without blocking and dropped when the channel is full; reports may be nil.
// Cancelling ctx stops the run at the next generation boundary and returns
// the best result so far with Cancelled set.
func (e *Engine) Run(ctx context.Context, reports chan<- Report) (*Result, error) {
	start := time.Now()
	r := e.newRun(reports)

	slog.Info("Starting optimization",
		"range_start", e.cfg.RangeStart,
		"range_end", e.cfg.RangeEnd,
		"population", e.cfg.PopulationSize,
		"max_generations", e.cfg.MaxGenerations,
		"seed", e.cfg.Seed)

	r.seed()
	r.evaluate()
	stop := r.stopReason()
	r.report(false)

	for stop == "" && r.gen < e.cfg.MaxGenerations {
		if ctx.Err() != nil {
			stop = StopCancelled
			break
		}
		r.step()
		stop = r.stopReason()
		r.report(false)
	}
	if stop == "" {
		stop = StopMaxGenerations
	}

	best := r.pop[0]
	diag := e.eval.Evaluate(&best.Assignment)
	res := &Result{
		Best:        best.Assignment,
		Fitness:     best.Fitness,
		SolvedCount: best.Solved,
		TotalCount:  e.eval.Len(),
		Generations: r.gen,
		Cancelled:   stop == StopCancelled,
		Stopped:     stop,
		Elapsed:     time.Since(start),
		Diagnostics: diag,
	}
	r.report(true)

	slog.Info("Optimization finished",
		"stopped", stop,
		"generations", r.gen,
		"fitness", res.Fitness,
		"solved", res.SolvedCount,
		"total", res.TotalCount,
		"elapsed", res.Elapsed)
	return res, nil
}

// step produces the next generation.
func (r *run) step() {
	r.gen++
	rate := r.cfg.MutationRateAt(r.gen)
	size := r.cfg.PopulationSize
	k := r.tournamentSize()

	next := make([]*Individual, 0, size)
	next = append(next, r.pop[:r.eliteCount()]...)
	for len(next) < size {
		child := r.crossover(r.tournament(k), r.tournament(k))
		r.mutate(&child, rate)
		next = append(next, &Individual{Assignment: child, stale: true})
	}
	r.pop = next
	r.evaluate()

	if r.cfg.RefineEvery > 0 && r.gen%r.cfg.RefineEvery == 0 {
		r.refine()
		r.gradientRefine()
	}
}

// evaluate scores stale individuals in parallel and sorts the population by
// fitness, then by solved count.
func (r *run) evaluate() {
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.Parallelism)
	for _, ind := range r.pop {
		if !ind.stale {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ind *Individual) {
			defer wg.Done()
			defer func() { <-sem }()
			ind.Fitness, ind.Solved = r.eval.Score(&ind.Assignment)
			ind.stale = false
		}(ind)
	}
	wg.Wait()

	sort.SliceStable(r.pop, func(i, j int) bool {
		a, b := r.pop[i], r.pop[j]
		if a.Fitness != b.Fitness {
			return a.Fitness < b.Fitness
		}
		return a.Solved > b.Solved
	})
}

func (r *run) stopReason() StopReason {
	best := r.pop[0]
	if r.cfg.EarlyStopRatio > 0 {
		if float64(best.Solved) >= r.cfg.EarlyStopRatio*float64(r.eval.Len()) {
			return StopSolved
		}
	}
	if r.tracker.Update(best.Fitness) {
		return StopStagnated
	}
	return ""
}

func (r *run) report(final bool) {
	best := r.pop[0]
	diag := r.eval.Evaluate(&best.Assignment)
	rep := Report{
		Generation:     r.gen,
		BestFitness:    best.Fitness,
		SolvedCount:    best.Solved,
		TotalCount:     r.eval.Len(),
		MaxError:       diag.MaxError,
		MutationRate:   r.cfg.MutationRateAt(r.gen),
		Stale:          r.tracker.Stale(),
		BestAssignment: best.Assignment,
		Final:          final,
	}
	slog.Debug("Generation complete",
		"generation", rep.Generation,
		"fitness", rep.BestFitness,
		"solved", rep.SolvedCount,
		"max_error", rep.MaxError)

	if r.reports == nil {
		return
	}
	select {
	case r.reports <- rep:
	default:
		slog.Debug("Report dropped", "generation", rep.Generation)
	}
}
