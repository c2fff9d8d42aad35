package fit

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/letterfit/internal/formula"
)

// Letters is the number of symbols in an assignment.
const Letters = 26

// Assignment maps each letter A–Z to a real value. It is a value type, so a
// copy handed out as a result cannot be changed by the engine afterwards.
type Assignment [Letters]float64

// Uniform returns an assignment with every letter set to v.
func Uniform(v float64) Assignment {
	var a Assignment
	for i := range a {
		a[i] = v
	}
	return a
}

// Get returns the value of an upper-case letter.
func (a *Assignment) Get(letter byte) float64 {
	return a[letter-'A']
}

// Set assigns the value of an upper-case letter.
func (a *Assignment) Set(letter byte, v float64) {
	a[letter-'A'] = v
}

// Values exposes the assignment in the shape the formula evaluator reads.
func (a *Assignment) Values() *[Letters]float64 {
	return (*[Letters]float64)(a)
}

// Valid reports whether every value is finite.
func (a *Assignment) Valid() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Map returns the assignment keyed by letter.
func (a Assignment) Map() map[string]float64 {
	m := make(map[string]float64, Letters)
	for i, v := range a {
		m[string(rune('A'+i))] = v
	}
	return m
}

func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

func (a *Assignment) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, v := range m {
		if len(k) != 1 || k[0] < 'A' || k[0] > 'Z' {
			return fmt.Errorf("invalid letter %q", k)
		}
		a[k[0]-'A'] = v
	}
	return nil
}

// String renders the assignment as "A=1.0000 B=..." in alphabetical order.
func (a Assignment) String() string {
	var sb strings.Builder
	for i, v := range a {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%c=%.4f", 'A'+i, v)
	}
	return sb.String()
}

// ParseAssignment reads "A=1.5,B=-2" style input. Letters that are not
// mentioned take the value def.
func ParseAssignment(s string, def float64) (Assignment, error) {
	a := Uniform(def)
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		k, v, ok := strings.Cut(field, "=")
		k = strings.ToUpper(strings.TrimSpace(k))
		if !ok || len(k) != 1 || k[0] < 'A' || k[0] > 'Z' {
			return a, fmt.Errorf("invalid letter assignment %q", field)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return a, fmt.Errorf("invalid value for %s: %w", k, err)
		}
		a.Set(k[0], x)
	}
	return a, nil
}

// Bounds is the closed interval every letter value is kept in.
type Bounds struct {
	Lower float64
	Upper float64
}

// NewBounds derives the letter interval from the rule configuration.
func NewBounds(rules formula.Rules) Bounds {
	lo, hi := rules.Bounds()
	return Bounds{Lower: lo, Upper: hi}
}

// Span returns the width of the interval.
func (b Bounds) Span() float64 {
	return b.Upper - b.Lower
}

// Contains reports whether v lies inside the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Clamp clamps a single value to the bounds. NaN maps to the lower bound.
func (b Bounds) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Lower
	}
	return clamp(v, b.Lower, b.Upper)
}

// ClampAssignment clamps every letter in place.
func (b Bounds) ClampAssignment(a *Assignment) {
	for i := range a {
		a[i] = b.Clamp(a[i])
	}
}

func clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}
