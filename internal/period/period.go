// Package period resolves the invoice period a statement belongs to.
package period

import (
	"regexp"
	"time"
)

// Marker is the word that precedes the period date in statement filenames,
// as in "Fatura2025-10-20.csv".
const Marker = "Fatura"

const layout = "2006-01-02"

var filenamePattern = regexp.MustCompile(Marker + `(\d{4}-\d{2}-\d{2})`)

// FromFilename returns the YYYY-MM-DD date following Marker in name, verbatim.
// Without a match it returns now formatted as YYYY-MM-DD.
func FromFilename(name string, now time.Time) string {
	if m := filenamePattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return Today(now)
}

// Today formats now as a period string.
func Today(now time.Time) string {
	return now.Format(layout)
}

// Month returns the YYYY-MM prefix of an invoice date (YYYY-MM-DD or YYYY-MM).
func Month(invoiceDate string) string {
	if len(invoiceDate) < 7 {
		return invoiceDate
	}
	return invoiceDate[:7]
}
