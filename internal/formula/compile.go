package formula

import (
	"strings"

	"github.com/cwbudde/letterfit/internal/words"
)

// Separator is the character that preceded a component in the spelling.
type Separator int

const (
	SepNone Separator = iota
	SepSpace
	SepHyphen
)

func (s Separator) String() string {
	switch s {
	case SepSpace:
		return "space"
	case SepHyphen:
		return "hyphen"
	default:
		return "none"
	}
}

// signMagnitude marks the NEGATIVE component, which has no ordering magnitude.
const signMagnitude = -1

// Component is one lexical unit of a spelling.
type Component struct {
	Text      string    `json:"text"`
	Magnitude int64     `json:"magnitude"`
	Position  int       `json:"position"`
	Separator Separator `json:"separator"`
}

// Node is a formula tree: either *Leaf or *Binary.
type Node interface {
	String() string
	isNode()
}

// Leaf evaluates to the product of its component's letter values.
type Leaf struct {
	Component
}

// Binary combines two subtrees with an operator.
type Binary struct {
	Op    Op
	Left  Node
	Right Node
}

func (*Leaf) isNode()   {}
func (*Binary) isNode() {}

func (l *Leaf) String() string { return l.Text }

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.Symbol() + " " + b.Right.String() + ")"
}

// Tokenize splits a spelling on spaces and hyphens and resolves each
// component against the vocabulary.
func Tokenize(spelling string) ([]Component, error) {
	if spelling == "" {
		return nil, &ParseError{Reason: "empty spelling"}
	}

	var comps []Component
	start := 0
	sep := SepNone

	emit := func(end int, next Separator) error {
		text := spelling[start:end]
		if text == "" {
			return &ParseError{Position: end, Reason: "malformed separator sequence"}
		}
		comp := Component{Text: text, Position: start, Separator: sep}
		if words.IsNegative(text) {
			comp.Magnitude = signMagnitude
		} else if m, ok := words.Magnitude(text); ok {
			comp.Magnitude = m
		} else {
			return &ParseError{Token: text, Position: start}
		}
		comps = append(comps, comp)
		start = end + 1
		sep = next
		return nil
	}

	for i := 0; i < len(spelling); i++ {
		var next Separator
		switch spelling[i] {
		case ' ':
			next = SepSpace
		case '-':
			next = SepHyphen
		default:
			continue
		}
		if err := emit(i, next); err != nil {
			return nil, err
		}
	}
	if err := emit(len(spelling), SepNone); err != nil {
		return nil, err
	}
	return comps, nil
}

// Compile turns a spelling into a formula tree under the given rules. The
// tree depends only on the spelling and the operators, never on letter values.
func Compile(spelling string, rules Rules) (Node, error) {
	comps, err := Tokenize(strings.ToUpper(spelling))
	if err != nil {
		return nil, err
	}

	var sign *Leaf
	if comps[0].Magnitude == signMagnitude {
		if len(comps) == 1 {
			return &Leaf{Component: comps[0]}, nil
		}
		if comps[1].Separator != SepSpace {
			return nil, &ParseError{Token: comps[1].Text, Position: comps[1].Position, Reason: "NEGATIVE must be followed by a space"}
		}
		sign = &Leaf{Component: comps[0]}
		comps = comps[1:]
	}

	var tree Node = &Leaf{Component: comps[0]}
	for i := 1; i < len(comps); i++ {
		right := comps[i]
		if right.Magnitude == signMagnitude {
			return nil, &ParseError{Token: right.Text, Position: right.Position, Reason: "sign word out of place"}
		}

		var op Op
		if right.Separator == SepHyphen {
			op = rules.hyphenOp()
		} else {
			op = rules.spaceOp(comps[i-1], right)
		}
		tree = &Binary{Op: op, Left: tree, Right: &Leaf{Component: right}}
	}

	if sign != nil {
		tree = &Binary{Op: OpMul, Left: sign, Right: tree}
	}
	return tree, nil
}
