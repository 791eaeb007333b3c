// Package importlog keeps an append-only CSV record of statement imports.
package importlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fpachecos/dashboard-faturas/internal/ingest"
)

// Import outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp   time.Time
	UserID      string
	File        string
	InvoiceDate string
	Count       int
	Status      string
	Error       string
}

// Header is the CSV header for import-log.csv.
var Header = []string{"timestamp", "user_id", "file", "invoice_date", "count", "status", "error"}

const (
	numFields      = 7
	logDir         = "logs"
	logFile        = "import-log.csv"
	colTimestamp   = 0
	colUserID      = 1
	colFile        = 2
	colInvoiceDate = 3
	colCount       = 4
	colStatus      = 5
	colError       = 6
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colUserID] = e.UserID
	row[colFile] = e.File
	row[colInvoiceDate] = e.InvoiceDate
	row[colCount] = strconv.Itoa(e.Count)
	row[colStatus] = e.Status
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	count, err := strconv.Atoi(record[colCount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing count %q: %w", record[colCount], err)
	}

	return Entry{
		Timestamp:   ts,
		UserID:      record[colUserID],
		File:        record[colFile],
		InvoiceDate: record[colInvoiceDate],
		Count:       count,
		Status:      record[colStatus],
		Error:       record[colError],
	}, nil
}

// FromRecord converts an ingest record to a log entry.
func FromRecord(rec ingest.Record) Entry {
	e := Entry{
		Timestamp:   rec.At,
		UserID:      rec.UserID,
		File:        rec.Filename,
		InvoiceDate: rec.InvoiceDate,
		Count:       rec.Count,
		Status:      StatusOK,
	}
	if rec.Err != nil {
		e.Status = StatusFailed
		e.Error = rec.Err.Error()
	}
	return e
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dir, logFile)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logDir, logFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var _ ingest.Auditor = (*Log)(nil)

// Log is an ingest.Auditor appending to the import log under Root.
type Log struct {
	Root string
	mu   sync.Mutex
}

// RecordImport appends rec.
func (l *Log) RecordImport(_ context.Context, rec ingest.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Append(l.Root, []Entry{FromRecord(rec)})
}
