package importlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpachecos/dashboard-faturas/internal/ingest"
)

var testTime = time.Date(2025, 10, 21, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:   testTime,
		UserID:      "alice",
		File:        "Fatura2025-10-20.csv",
		InvoiceDate: "2025-10-20",
		Count:       5,
		Status:      StatusOK,
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].UserID)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.File = "Fatura2025-11-20.csv"
	e2.Status = StatusFailed
	e2.Error = "loading categories: timeout, retry later"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusOK, entries[0].Status)
	assert.Equal(t, e2, entries[1])
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	require.NoError(t, Append(dir, []Entry{original}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, original.File, got.File)
	assert.Equal(t, original.InvoiceDate, got.InvoiceDate)
	assert.Equal(t, original.Count, got.Count)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "import-log.csv"),
		[]byte("timestamp,user_id,file,invoice_date,count,status,error\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 7 fields")

	row := MarshalEntry(testEntry())
	row[colCount] = "many"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing count")
}

func TestTimestampFormat(t *testing.T) {
	row := MarshalEntry(testEntry())
	assert.Equal(t, "2025-10-21T10:30:00Z", row[colTimestamp])
}

func TestFromRecord(t *testing.T) {
	ok := FromRecord(ingest.Record{At: testTime, UserID: "alice", Filename: "f.csv", InvoiceDate: "2025-10-20", Count: 3})
	assert.Equal(t, StatusOK, ok.Status)
	assert.Empty(t, ok.Error)

	failed := FromRecord(ingest.Record{At: testTime, UserID: "alice", Err: errors.New("boom")})
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
}

func TestLog_RecordImport(t *testing.T) {
	dir := t.TempDir()
	l := &Log{Root: dir}
	require.NoError(t, l.RecordImport(context.Background(), ingest.Record{At: testTime, UserID: "alice", Count: 2}))
	require.NoError(t, l.RecordImport(context.Background(), ingest.Record{At: testTime, UserID: "bob", Count: 1}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[1].UserID)
}
