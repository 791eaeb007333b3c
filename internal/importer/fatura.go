package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fpachecos/dashboard-faturas/internal/id"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/money"
)

// Column names of the card statement export.
const (
	ColDate          = "Data"
	ColEstablishment = "Estabelecimento"
	ColCardholder    = "Portador"
	ColValue         = "Valor"
	ColInstallment   = "Parcela"
)

// NoInstallment replaces a blank installment column.
const NoInstallment = "-"

const faturaDelimiter = ';'

// FaturaParser parses semicolon-delimited credit card statement exports.
// Columns are located by header name, so their order does not matter.
type FaturaParser struct {
	// Now stamps generated IDs. Defaults to time.Now.
	Now func() time.Time
}

// Format returns the parser name.
func (p *FaturaParser) Format() string { return "fatura" }

// Parse reads a statement and returns one transaction per valid data row, in
// file order. Rows without a date or establishment and malformed rows are
// dropped; only read failures are returned as errors.
func (p *FaturaParser) Parse(r io.Reader, invoiceDate string) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = faturaDelimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := readRecord(cr)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading statement header: %w", err)
	}
	cols := indexColumns(header)

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	stamp := now()

	var txns []model.Transaction
	for index := 0; ; index++ {
		rec, err := readRecord(cr)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading statement row %d: %w", index+2, err)
		}
		if rec == nil {
			continue
		}

		txn, ok := buildTransaction(rec, cols, invoiceDate)
		if !ok {
			continue
		}
		txn.ID = id.Transaction(invoiceDate, index, stamp)
		txns = append(txns, txn)
	}
	return txns, nil
}

// readRecord returns the next record. A malformed record comes back as nil
// with no error so the caller can skip it.
func readRecord(cr *csv.Reader) ([]string, error) {
	rec, err := cr.Read()
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return nil, nil
	}
	return rec, err
}

type columns map[string]int

func indexColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

// get returns the named field, or "" when the header or row lacks it.
func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func buildTransaction(rec []string, cols columns, invoiceDate string) (model.Transaction, bool) {
	date := strings.TrimSpace(cols.get(rec, ColDate))
	establishment := strings.TrimSpace(cols.get(rec, ColEstablishment))
	if date == "" || establishment == "" {
		return model.Transaction{}, false
	}

	installment := cols.get(rec, ColInstallment)
	if installment == "" {
		installment = NoInstallment
	}

	return model.Transaction{
		Date:          date,
		Establishment: establishment,
		Cardholder:    strings.TrimSpace(cols.get(rec, ColCardholder)),
		Value:         money.ParseBRL(cols.get(rec, ColValue)),
		Installment:   installment,
		InvoiceDate:   invoiceDate,
	}, true
}
