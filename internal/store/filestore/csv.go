package filestore

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/fpachecos/dashboard-faturas/internal/model"
)

// Header is the CSV header of a month's transactions.csv.
var Header = []string{"id", "date", "establishment", "cardholder", "value", "installment", "invoice_date", "category", "type"}

const (
	numFields      = 9
	colID          = 0
	colDate        = 1
	colEstablish   = 2
	colCardholder  = 3
	colValue       = 4
	colInstallment = 5
	colInvoiceDate = 6
	colCategory    = 7
	colType        = 8
)

// ReadTransactions reads a transactions.csv.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	txns := make([]model.Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes a transactions.csv, header included.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = txn.ID
	row[colDate] = txn.Date
	row[colEstablish] = txn.Establishment
	row[colCardholder] = txn.Cardholder
	row[colValue] = decimal.NewFromFloat(txn.Value).String()
	row[colInstallment] = txn.Installment
	row[colInvoiceDate] = txn.InvoiceDate
	row[colCategory] = txn.CategoryID()
	row[colType] = string(txn.TypeOrEmpty())
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	value, err := decimal.NewFromString(record[colValue])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing value %q: %w", record[colValue], err)
	}

	txn := model.Transaction{
		ID:            record[colID],
		Date:          record[colDate],
		Establishment: record[colEstablish],
		Cardholder:    record[colCardholder],
		Value:         value.InexactFloat64(),
		Installment:   record[colInstallment],
		InvoiceDate:   record[colInvoiceDate],
		Type:          model.ParseTransactionType(record[colType]),
	}
	if record[colCategory] != "" {
		txn.Category = model.Ptr(record[colCategory])
	}
	return txn, nil
}
