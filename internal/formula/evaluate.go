package formula

import (
	"fmt"
	"math"
)

const (
	// DivisionEpsilon is the smallest divisor magnitude treated as non-zero.
	DivisionEpsilon = 1e-9
	// DivisionPenalty replaces the result of a division by a near-zero value
	// and any non-finite intermediate.
	DivisionPenalty = 1e6
)

// StepKind distinguishes leaf products from operator applications.
type StepKind int

const (
	StepLeaf StepKind = iota
	StepOp
)

// Step is one arithmetic action recorded during evaluation.
type Step struct {
	Kind    StepKind  `json:"kind"`
	Word    string    `json:"word,omitempty"`
	Letters []float64 `json:"letters,omitempty"`
	Op      Op        `json:"op"`
	Left    float64   `json:"left"`
	Right   float64   `json:"right"`
	Value   float64   `json:"value"`
	Guarded bool      `json:"guarded,omitempty"`
}

// Trace is the post-order list of steps that produced a value.
type Trace struct {
	Steps []Step  `json:"steps"`
	Value float64 `json:"value"`
}

// Guarded reports whether any step hit the division or overflow guard.
func (t *Trace) Guarded() bool {
	for _, s := range t.Steps {
		if s.Guarded {
			return true
		}
	}
	return false
}

// Format renders the trace as an expression with per-word products. A "!"
// after an operator marks a guarded step.
func (t *Trace) Format(precision int) string {
	type term struct {
		text string
		op   bool
	}
	wrap := func(x term) string {
		if x.op {
			return "(" + x.text + ")"
		}
		return x.text
	}

	stack := make([]term, 0, len(t.Steps))
	for _, s := range t.Steps {
		if s.Kind == StepLeaf {
			stack = append(stack, term{text: fmt.Sprintf("%s[%.*f]", s.Word, precision, s.Value)})
			continue
		}
		if len(stack) < 2 {
			return "<malformed trace>"
		}
		l, r := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		sym := s.Op.Symbol()
		if s.Guarded {
			sym += "!"
		}
		stack = append(stack, term{text: wrap(l) + " " + sym + " " + wrap(r), op: true})
	}
	if len(stack) != 1 {
		return "<malformed trace>"
	}
	return fmt.Sprintf("%s = %.*f", stack[0].text, precision, t.Value)
}

func (t *Trace) String() string { return t.Format(4) }

// Evaluate computes the tree's value for the given letter values and records
// each step for explanation.
func Evaluate(n Node, values *[26]float64) (float64, *Trace) {
	trace := &Trace{}
	v := evalTraced(n, values, trace)
	trace.Value = v
	return v, trace
}

func evalTraced(n Node, values *[26]float64, trace *Trace) float64 {
	switch n := n.(type) {
	case *Leaf:
		letters := make([]float64, 0, len(n.Text))
		p := 1.0
		for i := 0; i < len(n.Text); i++ {
			c := n.Text[i]
			if c < 'A' || c > 'Z' {
				continue
			}
			letters = append(letters, values[c-'A'])
			p *= values[c-'A']
		}
		p, guarded := finite(p)
		trace.Steps = append(trace.Steps, Step{Kind: StepLeaf, Word: n.Text, Letters: letters, Value: p, Guarded: guarded})
		return p
	case *Binary:
		l := evalTraced(n.Left, values, trace)
		r := evalTraced(n.Right, values, trace)
		v, guarded := apply(n.Op, l, r)
		trace.Steps = append(trace.Steps, Step{Kind: StepOp, Op: n.Op, Left: l, Right: r, Value: v, Guarded: guarded})
		return v
	}
	return 0
}

// Value is the trace-free fast path of Evaluate.
func Value(n Node, values *[26]float64) float64 {
	switch n := n.(type) {
	case *Leaf:
		p := 1.0
		for i := 0; i < len(n.Text); i++ {
			if c := n.Text[i]; c >= 'A' && c <= 'Z' {
				p *= values[c-'A']
			}
		}
		p, _ = finite(p)
		return p
	case *Binary:
		v, _ := apply(n.Op, Value(n.Left, values), Value(n.Right, values))
		return v
	}
	return 0
}

func apply(op Op, l, r float64) (float64, bool) {
	var v float64
	switch op {
	case OpAdd:
		v = l + r
	case OpSub:
		v = l - r
	case OpMul:
		v = l * r
	case OpDiv:
		if math.Abs(r) < DivisionEpsilon {
			return DivisionPenalty, true
		}
		v = l / r
	}
	return finite(v)
}

func finite(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return DivisionPenalty, true
	case math.IsInf(v, 1):
		return DivisionPenalty, true
	case math.IsInf(v, -1):
		return -DivisionPenalty, true
	}
	return v, false
}
