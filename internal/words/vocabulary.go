// Package words holds the English number vocabulary and the integer-to-words
// converter that feeds the spelling compiler.
package words

// Negative is the sign word placed in front of negative spellings.
const Negative = "NEGATIVE"

var magnitudes = map[string]int64{
	"ZERO":        0,
	"ONE":         1,
	"TWO":         2,
	"THREE":       3,
	"FOUR":        4,
	"FIVE":        5,
	"SIX":         6,
	"SEVEN":       7,
	"EIGHT":       8,
	"NINE":        9,
	"TEN":         10,
	"ELEVEN":      11,
	"TWELVE":      12,
	"THIRTEEN":    13,
	"FOURTEEN":    14,
	"FIFTEEN":     15,
	"SIXTEEN":     16,
	"SEVENTEEN":   17,
	"EIGHTEEN":    18,
	"NINETEEN":    19,
	"TWENTY":      20,
	"THIRTY":      30,
	"FORTY":       40,
	"FIFTY":       50,
	"SIXTY":       60,
	"SEVENTY":     70,
	"EIGHTY":      80,
	"NINETY":      90,
	"HUNDRED":     100,
	"THOUSAND":    1_000,
	"MILLION":     1_000_000,
	"BILLION":     1_000_000_000,
	"TRILLION":    1_000_000_000_000,
	"QUADRILLION": 1_000_000_000_000_000,
	"QUINTILLION": 1_000_000_000_000_000_000,
}

// Magnitude returns the numeric magnitude of an upper-case vocabulary word.
// NEGATIVE is not a magnitude word and reports false.
func Magnitude(word string) (int64, bool) {
	m, ok := magnitudes[word]
	return m, ok
}

// IsNegative reports whether word is the sign word.
func IsNegative(word string) bool {
	return word == Negative
}

// Known reports whether word can appear in a spelling.
func Known(word string) bool {
	_, ok := magnitudes[word]
	return ok || IsNegative(word)
}
