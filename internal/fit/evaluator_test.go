package fit

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/letterfit/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomAssignment(rng *rand.Rand, b Bounds) Assignment {
	var a Assignment
	for i := range a {
		a[i] = b.Lower + rng.Float64()*b.Span()
	}
	return a
}

func TestEvaluatorSingleNumber(t *testing.T) {
	rules := formula.DefaultRules()
	rules.AllowNegativeLetters = false

	e, err := NewEvaluator(1, 1, rules)
	require.NoError(t, err)

	a := Uniform(1)
	res := e.Evaluate(&a)
	require.Len(t, res.Numbers, 1)

	n := res.Numbers[0]
	assert.Equal(t, int64(1), n.Number)
	assert.Equal(t, "ONE", n.Spelling)
	assert.Equal(t, 1.0, n.Value)
	assert.Equal(t, 0.0, n.Error)
	assert.True(t, n.Solved)
	assert.Equal(t, 0.0, res.Total)
	assert.Equal(t, 1, res.SolvedCount)
}

func TestEvaluatorTwentyThree(t *testing.T) {
	rules := formula.DefaultRules()
	rules.AllowNegativeLetters = false

	e, err := NewEvaluator(23, 23, rules)
	require.NoError(t, err)

	a := Uniform(1)
	a.Set('R', 2)
	a.Set('W', 5)
	a.Set('N', 5)

	total, solved := e.Score(&a)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, 1, solved)
}

func TestEvaluatorRoundKeepsHugeValuesFinite(t *testing.T) {
	rules := formula.DefaultRules()
	rules.DecimalPrecision = 10

	e, err := NewEvaluator(1, 1, rules)
	require.NoError(t, err)

	for _, v := range []float64{1e305, -1e305, math.MaxFloat64} {
		got := e.Round(v)
		assert.Equal(t, v, got)
		_, err := json.Marshal(NumberResult{Value: got})
		assert.NoError(t, err)
	}
	assert.InDelta(t, 0.1234567890, e.Round(0.123456789012), 1e-12, "ordinary values still round")
}

func TestEvaluatorZeroPrecisionRounds(t *testing.T) {
	rules := formula.DefaultRules()
	rules.DecimalPrecision = 0

	e, err := NewEvaluator(-30, 120, rules)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 5; trial++ {
		a := randomAssignment(rng, NewBounds(rules))
		for _, n := range e.Evaluate(&a).Numbers {
			assert.Equal(t, math.Trunc(n.Value), n.Value, "value for %d should be an integer", n.Number)
		}
	}
}

func TestEvaluatorConsistency(t *testing.T) {
	rules := formula.DefaultRules()
	rules.DecimalPrecision = 2
	e, err := NewEvaluator(-50, 250, rules)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 4))
	a := randomAssignment(rng, NewBounds(rules))
	res := e.Evaluate(&a)
	require.Len(t, res.Numbers, 301)

	for _, n := range res.Numbers {
		v, _, err := e.Explain(n.Number, &a)
		require.NoError(t, err)
		assert.Equal(t, n.Value, v, "number %d", n.Number)
	}

	total, solved := e.Score(&a)
	assert.Equal(t, res.Total, total)
	assert.Equal(t, res.SolvedCount, solved)
}

func TestEvaluatorNegativePenalty(t *testing.T) {
	rules := formula.DefaultRules()
	e, err := NewEvaluator(1, 1, rules, WithNegativeWeight(3))
	require.NoError(t, err)

	a := Uniform(1)
	res := e.Evaluate(&a)
	// NEGATIVE = 1, so penalty = 3 * (1 + 1)^2
	assert.Equal(t, 12.0, res.Penalty)
	assert.Equal(t, 12.0, res.Total)

	a.Set('G', -1)
	res = e.Evaluate(&a)
	assert.Equal(t, 0.0, res.Penalty)

	rules.AllowNegativeLetters = false
	e, err = NewEvaluator(1, 1, rules)
	require.NoError(t, err)
	a = Uniform(1)
	assert.Equal(t, 0.0, e.Evaluate(&a).Penalty)
}

func TestEvaluatorExplainOutsideRange(t *testing.T) {
	e, err := NewEvaluator(0, 10, formula.DefaultRules())
	require.NoError(t, err)

	a := Uniform(1)
	a.Set('R', 2)
	a.Set('W', 5)
	a.Set('N', 5)
	v, trace, err := e.Explain(23, &a)
	require.NoError(t, err)
	assert.Equal(t, 23.0, v)
	assert.Len(t, trace.Steps, 3)
}

func TestEvaluatorInvalidRange(t *testing.T) {
	_, err := NewEvaluator(5, 1, formula.DefaultRules())
	assert.Error(t, err)

	_, err = NewEvaluator(0, MaxRangeSize, formula.DefaultRules())
	assert.Error(t, err)
}

func TestEvaluatorAccessors(t *testing.T) {
	e, err := NewEvaluator(-1, 1, formula.DefaultRules())
	require.NoError(t, err)

	assert.Equal(t, 3, e.Len())
	assert.Equal(t, []int64{-1, 0, 1}, e.Numbers())
	assert.Equal(t, []string{"NEGATIVE ONE", "ZERO", "ONE"}, e.Spellings())
	assert.False(t, errors.Is(nil, formula.ErrParse))
}
