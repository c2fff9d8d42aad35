package opt

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/letterfit/internal/fit"
	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the relative singular value cutoff for the seed solve.
const rankTolerance = 1e-10

// LetterCounts builds the m×26 matrix of letter occurrences per spelling.
// Separators and any other non-letters are ignored.
func LetterCounts(spellings []string) *mat.Dense {
	counts := mat.NewDense(len(spellings), fit.Letters, nil)
	for i, s := range spellings {
		for j := 0; j < len(s); j++ {
			c := s[j]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			if c < 'A' || c > 'Z' {
				continue
			}
			col := int(c - 'A')
			counts.Set(i, col, counts.At(i, col)+1)
		}
	}
	return counts
}

// LeastSquaresSeed treats each spelling as a linear sum of its letters and
// returns the minimum-norm least-squares solution of counts·x = targets.
// Letters that never occur get zero.
func LeastSquaresSeed(spellings []string, targets []int64) (fit.Assignment, error) {
	var a fit.Assignment
	if len(spellings) == 0 {
		return a, errors.New("no spellings")
	}
	if len(spellings) != len(targets) {
		return a, fmt.Errorf("%d spellings but %d targets", len(spellings), len(targets))
	}

	counts := LetterCounts(spellings)
	b := mat.NewDense(len(targets), 1, nil)
	for i, n := range targets {
		b.Set(i, 0, float64(n))
	}

	var svd mat.SVD
	if ok := svd.Factorize(counts, mat.SVDThin); !ok {
		return a, errors.New("singular value decomposition failed")
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return a, errors.New("letter count matrix has rank zero")
	}

	var x mat.Dense
	svd.SolveTo(&x, b, rank)
	for i := range a {
		v := x.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return a, fmt.Errorf("non-finite solution for letter %c", 'A'+i)
		}
		a[i] = v
	}
	return a, nil
}
