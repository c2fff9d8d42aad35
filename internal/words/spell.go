package words

import "strings"

var (
	ones  = [...]string{"", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE"}
	teens = [...]string{"TEN", "ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN",
		"SIXTEEN", "SEVENTEEN", "EIGHTEEN", "NINETEEN"}
	tens = [...]string{"", "", "TWENTY", "THIRTY", "FORTY", "FIFTY", "SIXTY", "SEVENTY", "EIGHTY", "NINETY"}
)

// scales lists the group words from largest to smallest.
var scales = []struct {
	word  string
	value uint64
}{
	{"QUINTILLION", 1_000_000_000_000_000_000},
	{"QUADRILLION", 1_000_000_000_000_000},
	{"TRILLION", 1_000_000_000_000},
	{"BILLION", 1_000_000_000},
	{"MILLION", 1_000_000},
	{"THOUSAND", 1_000},
}

// Spell converts n to its upper-case English spelling.
//
//	1     -> "ONE"
//	23    -> "TWENTY-THREE"
//	300   -> "THREE HUNDRED"
//	1234  -> "ONE THOUSAND TWO HUNDRED THIRTY-FOUR"
//	-45   -> "NEGATIVE FORTY-FIVE"
func Spell(n int64) string {
	if n == 0 {
		return "ZERO"
	}
	if n < 0 {
		// Two's complement negation keeps MinInt64 representable as uint64.
		return Negative + " " + spellUnsigned(uint64(^n)+1)
	}
	return spellUnsigned(uint64(n))
}

func spellUnsigned(n uint64) string {
	parts := make([]string, 0, 8)
	for _, s := range scales {
		if n >= s.value {
			parts = append(parts, belowThousand(n/s.value), s.word)
			n %= s.value
		}
	}
	if n > 0 {
		parts = append(parts, belowThousand(n))
	}
	return strings.Join(parts, " ")
}

func belowThousand(n uint64) string {
	switch {
	case n == 0:
		return ""
	case n < 10:
		return ones[n]
	case n < 20:
		return teens[n-10]
	case n < 100:
		if n%10 == 0 {
			return tens[n/10]
		}
		return tens[n/10] + "-" + ones[n%10]
	}

	result := ones[n/100] + " HUNDRED"
	if rest := n % 100; rest > 0 {
		result += " " + belowThousand(rest)
	}
	return result
}
