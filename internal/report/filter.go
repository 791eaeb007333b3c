// Package report filters and aggregates stored transactions.
package report

import (
	"fmt"
	"time"

	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/period"
)

const (
	chargeDateLayout = "02/01/2006"
	boundLayout      = "2006-01-02"
)

// Filter selects transactions. Zero fields match everything.
type Filter struct {
	Category string
	// DateFrom and DateTo bound the charge date, inclusive, as YYYY-MM-DD.
	DateFrom string
	DateTo   string
	ValueMin *float64
	ValueMax *float64
	// InvoiceMonth matches the YYYY-MM of the invoice date. A full
	// YYYY-MM-DD is accepted and truncated.
	InvoiceMonth string
	Type         model.TransactionType
}

// Apply returns the transactions matching f, in input order. Charge dates
// that cannot be parsed are never excluded by the date range.
func Apply(txns []model.Transaction, f Filter) ([]model.Transaction, error) {
	from, err := parseBound(f.DateFrom)
	if err != nil {
		return nil, fmt.Errorf("dateFrom: %w", err)
	}
	to, err := parseBound(f.DateTo)
	if err != nil {
		return nil, fmt.Errorf("dateTo: %w", err)
	}
	month := period.Month(f.InvoiceMonth)

	out := []model.Transaction{}
	for _, t := range txns {
		if f.Category != "" && t.CategoryID() != f.Category {
			continue
		}
		if !from.IsZero() || !to.IsZero() {
			if d, err := time.Parse(chargeDateLayout, t.Date); err == nil {
				if !from.IsZero() && d.Before(from) {
					continue
				}
				if !to.IsZero() && d.After(to) {
					continue
				}
			}
		}
		if f.ValueMin != nil && t.Value < *f.ValueMin {
			continue
		}
		if f.ValueMax != nil && t.Value > *f.ValueMax {
			continue
		}
		if month != "" && t.InvoiceMonth() != month {
			continue
		}
		if f.Type != "" && t.TypeOrEmpty() != f.Type {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(boundLayout, s)
}
