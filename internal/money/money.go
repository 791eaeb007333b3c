// Package money converts between Brazilian currency text and numbers.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const currencyMarker = "R$"

// ParseBRL converts text like "R$ -10.690,39" to -10690.39.
// A minus sign anywhere makes the result negative. Unparseable input yields 0.
func ParseBRL(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, currencyMarker, "", 1))

	// Sign must be detected before separators are touched.
	negative := strings.Contains(s, "-")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(leadingNumber(s))
	if err != nil {
		return 0
	}
	v := d.InexactFloat64()
	if negative {
		v = -v
	}
	return v
}

// leadingNumber keeps the longest numeric prefix, the way a lenient float
// parser reads "12.5abc" as 12.5.
func leadingNumber(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		default:
			return s[:end]
		}
	}
	return s[:end]
}

// FormatBRL renders v as "R$ 1.234,56".
func FormatBRL(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return currencyMarker + " " + sign + b.String() + "," + frac
}
