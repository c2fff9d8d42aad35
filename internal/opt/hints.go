package opt

import (
	"log/slog"
	"math"

	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/cwbudde/letterfit/internal/words"
	"gonum.org/v1/gonum/mat"
)

// minHintRows is the smallest range whose least-squares solution is trusted
// as a letter hint.
const minHintRows = 5

// letterHint is a preferred seeding interval for one letter.
type letterHint struct {
	lo, hi float64
	ok     bool
}

// hintRanges derives seeding intervals from the spellings of the range.
// Earlier sources win: least-squares values, then Z near zero when ZERO is
// fitted, then the letters of ONE near one, then frequency bands where
// frequent letters get smaller values.
func (r *run) hintRanges() [fit.Letters]letterHint {
	var hints [fit.Letters]letterHint

	counts := LetterCounts(r.eval.Spellings())
	total := mat.Sum(counts)
	var perLetter [fit.Letters]float64
	for j := range perLetter {
		perLetter[j] = mat.Sum(counts.ColView(j))
	}

	if r.lsqOK && r.eval.Len() >= minHintRows {
		for i, v := range r.lsq {
			if perLetter[i] == 0 || math.Abs(v) >= 1e6 {
				continue
			}
			if !r.cfg.AllowNegativeLetters {
				v = math.Abs(v)
			}
			switch {
			case v == 0:
				hints[i] = letterHint{lo: -0.5, hi: 0.5, ok: true}
			case v > 0:
				hints[i] = letterHint{lo: v * 0.9, hi: v * 1.1, ok: true}
			default:
				hints[i] = letterHint{lo: v * 1.1, hi: v * 0.9, ok: true}
			}
		}
	}

	contains := func(n int64) bool { return r.cfg.RangeStart <= n && n <= r.cfg.RangeEnd }
	if contains(0) {
		hints['Z'-'A'] = letterHint{lo: 0, hi: 0.1, ok: true}
	}
	if contains(1) {
		for _, c := range words.Spell(1) {
			if i := c - 'A'; !hints[i].ok {
				hints[i] = letterHint{lo: 0.5, hi: 1.5, ok: true}
			}
		}
	}

	for i, c := range perLetter {
		if c == 0 || hints[i].ok {
			continue
		}
		switch freq := c / total; {
		case freq > 0.15:
			hints[i] = letterHint{lo: 0.1, hi: 0.8, ok: true}
		case freq > 0.08:
			hints[i] = letterHint{lo: 0.3, hi: 1.2, ok: true}
		default:
			hints[i] = letterHint{lo: 0.5, hi: 2.0, ok: true}
		}
	}

	n := 0
	for _, h := range hints {
		if h.ok {
			n++
		}
	}
	slog.Debug("Letter hints ready", "hinted", n, "least_squares", r.lsqOK)
	return hints
}
