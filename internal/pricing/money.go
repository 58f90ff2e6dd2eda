package pricing

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// FormatMoney renders amount with two decimals and thousands separators,
// prefixed by symbol: FormatMoney("$", 1234.5) => "$1,234.50".
// Alphabetic symbols get a separating space: "Rs 500.00".
func FormatMoney(symbol string, amount float64) string {
	cents := int64(math.Round(amount * 100))
	neg := cents < 0
	if neg {
		cents = -cents
	}

	body := thousandSep(cents/100) + "." + fmt.Sprintf("%02d", cents%100)
	if symbol != "" {
		last := []rune(symbol)[len([]rune(symbol))-1]
		if unicode.IsLetter(last) {
			body = symbol + " " + body
		} else {
			body = symbol + body
		}
	}
	if neg {
		return "-" + body
	}
	return body
}

func thousandSep(n int64) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// round2 rounds to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
