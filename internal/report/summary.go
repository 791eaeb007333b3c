package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fpachecos/dashboard-faturas/internal/model"
)

// TypeTotal is the spend of one transaction type.
type TypeTotal struct {
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Fixed    float64 `json:"fixed"`
	Variable float64 `json:"variable"`
}

// MonthTotal is the spend charged in one calendar month.
type MonthTotal struct {
	Month    string  `json:"month"`
	Total    float64 `json:"total"`
	Fixed    float64 `json:"fixed"`
	Variable float64 `json:"variable"`
}

// Summary aggregates transactions by absolute value, so refunds count as spend.
type Summary struct {
	Count      int             `json:"count"`
	Total      float64         `json:"total"`
	Fixed      TypeTotal       `json:"fixed"`
	Variable   TypeTotal       `json:"variable"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}

type bucket struct {
	total, fixed, variable decimal.Decimal
	count                  int
}

func (b *bucket) add(t model.Transaction) {
	v := decimal.NewFromFloat(t.Value).Abs()
	b.total = b.total.Add(v)
	b.count++
	switch t.TypeOrEmpty() {
	case model.TypeFixed:
		b.fixed = b.fixed.Add(v)
	case model.TypeVariable:
		b.variable = b.variable.Add(v)
	}
}

// Summarize totals txns. Categories with no spend are left out, the rest are
// sorted by total, largest first. Months are keyed by the charge date and
// sorted chronologically.
func Summarize(txns []model.Transaction, cats []model.Category) Summary {
	var (
		all        bucket
		fixedCount int
		varCount   int
		byCategory = map[string]*bucket{}
		byMonth    = map[string]*bucket{}
	)
	for _, t := range txns {
		all.add(t)
		switch t.TypeOrEmpty() {
		case model.TypeFixed:
			fixedCount++
		case model.TypeVariable:
			varCount++
		}
		if id := t.CategoryID(); id != "" {
			get(byCategory, id).add(t)
		}
		get(byMonth, chargeMonth(t)).add(t)
	}

	typed := all.fixed.Add(all.variable)
	s := Summary{
		Count:    len(txns),
		Total:    money(all.total),
		Fixed:    TypeTotal{Total: money(all.fixed), Count: fixedCount, Percent: percent(all.fixed, typed)},
		Variable: TypeTotal{Total: money(all.variable), Count: varCount, Percent: percent(all.variable, typed)},
	}

	for _, c := range cats {
		b, ok := byCategory[c.ID]
		if !ok || b.total.IsZero() {
			continue
		}
		s.ByCategory = append(s.ByCategory, CategoryTotal{
			ID:       c.ID,
			Name:     c.Name,
			Color:    c.Color,
			Total:    money(b.total),
			Count:    b.count,
			Average:  money(b.total.Div(decimal.NewFromInt(int64(b.count)))),
			Fixed:    money(b.fixed),
			Variable: money(b.variable),
		})
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Total > s.ByCategory[j].Total
	})

	for month, b := range byMonth {
		s.ByMonth = append(s.ByMonth, MonthTotal{
			Month:    month,
			Total:    money(b.total),
			Fixed:    money(b.fixed),
			Variable: money(b.variable),
		})
	}
	sort.Slice(s.ByMonth, func(i, j int) bool { return s.ByMonth[i].Month < s.ByMonth[j].Month })
	return s
}

func get(m map[string]*bucket, key string) *bucket {
	b, ok := m[key]
	if !ok {
		b = &bucket{}
		m[key] = b
	}
	return b
}

// chargeMonth returns the YYYY-MM of the charge date, falling back to the
// invoice month when the date is unreadable.
func chargeMonth(t model.Transaction) string {
	d, err := time.Parse(chargeDateLayout, t.Date)
	if err != nil {
		return t.InvoiceMonth()
	}
	return d.Format("2006-01")
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}
