package fit

import (
	"fmt"
	"math"

	"github.com/cwbudde/letterfit/internal/formula"
	"github.com/cwbudde/letterfit/internal/words"
)

const (
	// SolvedTolerance is the largest absolute error that still counts as solved.
	SolvedTolerance = 0.01
	// DefaultNegativeWeight weights the NEGATIVE = -1 constraint penalty.
	DefaultNegativeWeight = 10.0
	// MaxRangeSize caps the number of integers one evaluator compiles.
	MaxRangeSize = 1_000_000
)

// NumberResult is the evaluation of one integer in the range.
type NumberResult struct {
	Number   int64   `json:"number"`
	Spelling string  `json:"spelling"`
	Value    float64 `json:"value"`
	Error    float64 `json:"error"`
	Solved   bool    `json:"solved"`
}

// Result is the full fitness breakdown for one assignment.
type Result struct {
	Total       float64        `json:"total"`
	Penalty     float64        `json:"penalty"`
	SolvedCount int            `json:"solvedCount"`
	TotalCount  int            `json:"totalCount"`
	MaxError    float64        `json:"maxError"`
	Numbers     []NumberResult `json:"numbers"`
}

type entry struct {
	number   int64
	spelling string
	tree     formula.Node
}

// Evaluator scores assignments over a fixed integer range. Trees are compiled
// once at construction and shared read-only, so Score is safe to call from
// several goroutines.
type Evaluator struct {
	rules    formula.Rules
	entries  []entry
	negative formula.Node
	weight   float64
	scale    float64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithNegativeWeight sets the weight of the NEGATIVE constraint penalty.
func WithNegativeWeight(k float64) Option {
	return func(e *Evaluator) {
		if k >= 1 {
			e.weight = k
		}
	}
}

// NewEvaluator compiles the spelling of every integer in [start, end]. A
// *formula.ParseError here means the vocabulary and converter disagree.
func NewEvaluator(start, end int64, rules formula.Rules, opts ...Option) (*Evaluator, error) {
	if start > end {
		return nil, fmt.Errorf("invalid range [%d, %d]", start, end)
	}
	if size := uint64(end) - uint64(start); size >= MaxRangeSize {
		return nil, fmt.Errorf("range [%d, %d] exceeds %d numbers", start, end, MaxRangeSize)
	}

	e := &Evaluator{
		rules:  rules,
		weight: DefaultNegativeWeight,
		scale:  math.Pow(10, float64(rules.DecimalPrecision)),
	}
	for _, opt := range opts {
		opt(e)
	}

	cache := make(map[string]formula.Node)
	compile := func(spelling string) (formula.Node, error) {
		key := spelling + "|" + rules.Key()
		if tree, ok := cache[key]; ok {
			return tree, nil
		}
		tree, err := formula.Compile(spelling, rules)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", spelling, err)
		}
		cache[key] = tree
		return tree, nil
	}

	e.entries = make([]entry, 0, end-start+1)
	for n := start; ; n++ {
		spelling := words.Spell(n)
		tree, err := compile(spelling)
		if err != nil {
			return nil, err
		}
		e.entries = append(e.entries, entry{number: n, spelling: spelling, tree: tree})
		if n == end {
			break
		}
	}

	if rules.AllowNegativeLetters {
		tree, err := compile(words.Negative)
		if err != nil {
			return nil, err
		}
		e.negative = tree
	}
	return e, nil
}

// Rules returns the rule configuration the trees were compiled with.
func (e *Evaluator) Rules() formula.Rules { return e.rules }

// Len returns the number of integers in the range.
func (e *Evaluator) Len() int { return len(e.entries) }

// Numbers returns the integers of the range in order.
func (e *Evaluator) Numbers() []int64 {
	out := make([]int64, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.number
	}
	return out
}

// Spellings returns the spellings of the range in order.
func (e *Evaluator) Spellings() []string {
	out := make([]string, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.spelling
	}
	return out
}

// Round rounds v to the configured decimal precision. Values too large to
// scale are already integral and returned unchanged.
func (e *Evaluator) Round(v float64) float64 {
	scaled := v * e.scale
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return v
	}
	return math.Round(scaled) / e.scale
}

// Score returns the total fitness and the solved count without building
// diagnostics.
func (e *Evaluator) Score(a *Assignment) (float64, int) {
	values := a.Values()
	total := 0.0
	solved := 0
	for _, en := range e.entries {
		d := e.Round(formula.Value(en.tree, values)) - float64(en.number)
		total += d * d
		if math.Abs(d) < SolvedTolerance {
			solved++
		}
	}
	return total + e.penalty(values), solved
}

// Evaluate returns the fitness with a per-number breakdown. Every number of
// the range appears in Numbers.
func (e *Evaluator) Evaluate(a *Assignment) *Result {
	values := a.Values()
	res := &Result{
		TotalCount: len(e.entries),
		Numbers:    make([]NumberResult, len(e.entries)),
	}
	for i, en := range e.entries {
		v := e.Round(formula.Value(en.tree, values))
		d := v - float64(en.number)
		sq := d * d
		solved := math.Abs(d) < SolvedTolerance
		res.Numbers[i] = NumberResult{
			Number:   en.number,
			Spelling: en.spelling,
			Value:    v,
			Error:    sq,
			Solved:   solved,
		}
		res.Total += sq
		if sq > res.MaxError {
			res.MaxError = sq
		}
		if solved {
			res.SolvedCount++
		}
	}
	res.Penalty = e.penalty(values)
	res.Total += res.Penalty
	return res
}

// Explain evaluates a single number with a full trace. Numbers outside the
// range are compiled on the fly.
func (e *Evaluator) Explain(n int64, a *Assignment) (float64, *formula.Trace, error) {
	var tree formula.Node
	if len(e.entries) > 0 {
		if i := n - e.entries[0].number; i >= 0 && i < int64(len(e.entries)) {
			tree = e.entries[i].tree
		}
	}
	if tree == nil {
		var err error
		tree, err = formula.Compile(words.Spell(n), e.rules)
		if err != nil {
			return 0, nil, err
		}
	}
	v, trace := formula.Evaluate(tree, a.Values())
	return e.Round(v), trace, nil
}

func (e *Evaluator) penalty(values *[Letters]float64) float64 {
	if e.negative == nil {
		return 0
	}
	d := formula.Value(e.negative, values) + 1
	return e.weight * d * d
}
