package model

import (
	"strings"

	"github.com/fpachecos/dashboard-faturas/internal/period"
)

// TransactionType labels an expense as recurring or ad-hoc.
type TransactionType string

const (
	TypeFixed    TransactionType = "Fixo"
	TypeVariable TransactionType = "Variável"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == TypeFixed || t == TypeVariable
}

// Transaction is one card charge from a statement.
type Transaction struct {
	ID            string           `json:"id"`
	Date          string           `json:"date"` // DD/MM/YYYY, as read from the statement
	Establishment string           `json:"establishment"`
	Cardholder    string           `json:"cardholder"`
	Value         float64          `json:"value"` // negative = credit/refund
	Installment   string           `json:"installment"`
	InvoiceDate   string           `json:"invoiceDate"` // YYYY-MM-DD statement period
	Category      *string          `json:"category,omitempty"`
	Type          *TransactionType `json:"type,omitempty"`
}

// InvoiceMonth returns the YYYY-MM part of the invoice date.
func (t Transaction) InvoiceMonth() string {
	return period.Month(t.InvoiceDate)
}

// CategoryID returns the category id, or "" when unclassified.
func (t Transaction) CategoryID() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// TypeOrEmpty returns the type, or "" when unclassified.
func (t Transaction) TypeOrEmpty() TransactionType {
	if t.Type == nil {
		return ""
	}
	return *t.Type
}

// ParseTransactionType maps stored text to a type. Unknown text yields nil.
func ParseTransactionType(s string) *TransactionType {
	t := TransactionType(strings.TrimSpace(s))
	if !t.Valid() {
		return nil
	}
	return &t
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
