// Package formula compiles number spellings into arithmetic trees over
// per-word letter products and evaluates them against letter values.
package formula

// SpaceOperator selects how space-separated components combine.
type SpaceOperator string

const (
	SpaceAuto     SpaceOperator = "auto"
	SpaceAdd      SpaceOperator = "add"
	SpaceSubtract SpaceOperator = "subtract"
	SpaceMultiply SpaceOperator = "multiply"
	SpaceDivide   SpaceOperator = "divide"
)

// HyphenOperator selects how hyphen-joined components combine.
type HyphenOperator string

const (
	HyphenMinus    HyphenOperator = "minus"
	HyphenAdd      HyphenOperator = "add"
	HyphenMultiply HyphenOperator = "multiply"
	HyphenDivide   HyphenOperator = "divide"
)

// Rules is the rule configuration resolved once per run.
type Rules struct {
	SpaceOperator        SpaceOperator  `json:"spaceOperator" env:"SPACE_OPERATOR" envDefault:"auto" validate:"oneof=auto add subtract multiply divide" jsonschema:"enum=auto,enum=add,enum=subtract,enum=multiply,enum=divide,default=auto"`
	HyphenOperator       HyphenOperator `json:"hyphenOperator" env:"HYPHEN_OPERATOR" envDefault:"minus" validate:"oneof=minus add multiply divide" jsonschema:"enum=minus,enum=add,enum=multiply,enum=divide,default=minus"`
	DecimalPrecision     int            `json:"decimalPrecision" env:"DECIMAL_PRECISION" envDefault:"4" validate:"min=0,max=10" jsonschema:"minimum=0,maximum=10,default=4"`
	AllowNegativeLetters bool           `json:"allowNegativeLetters" env:"ALLOW_NEGATIVE" envDefault:"true"`
	LetterBound          float64        `json:"letterBound" env:"LETTER_BOUND" envDefault:"5" validate:"gt=0,lte=1000" jsonschema:"exclusiveMinimum=0,maximum=1000,default=5"`
}

// DefaultRules returns the default rule configuration.
func DefaultRules() Rules {
	return Rules{
		SpaceOperator:        SpaceAuto,
		HyphenOperator:       HyphenMinus,
		DecimalPrecision:     4,
		AllowNegativeLetters: true,
		LetterBound:          5,
	}
}

// Bounds returns the closed interval every letter value must lie in.
func (r Rules) Bounds() (lo, hi float64) {
	if r.AllowNegativeLetters {
		return -r.LetterBound, r.LetterBound
	}
	return 0, r.LetterBound
}

// Key identifies the parts of the rules that shape a compiled tree.
func (r Rules) Key() string {
	return string(r.SpaceOperator) + "|" + string(r.HyphenOperator)
}

// Op is a binary arithmetic operator in a formula tree.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

// Symbol returns the printable operator.
func (o Op) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "×"
	case OpDiv:
		return "÷"
	default:
		return "?"
	}
}

func (o Op) String() string { return o.Symbol() }

func (r Rules) spaceOp(left, right Component) Op {
	switch r.SpaceOperator {
	case SpaceAdd:
		return OpAdd
	case SpaceSubtract:
		return OpSub
	case SpaceMultiply:
		return OpMul
	case SpaceDivide:
		return OpDiv
	}
	// auto: smaller-then-larger multiplies ("THREE HUNDRED"), everything else,
	// including equal magnitudes, adds.
	if left.Magnitude < right.Magnitude {
		return OpMul
	}
	return OpAdd
}

func (r Rules) hyphenOp() Op {
	switch r.HyphenOperator {
	case HyphenAdd:
		return OpAdd
	case HyphenMultiply:
		return OpMul
	case HyphenDivide:
		return OpDiv
	default:
		return OpSub
	}
}
