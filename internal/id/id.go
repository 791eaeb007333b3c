package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transaction returns an ID like "2025-10-20-3-1729430400000-1b4e28ba".
// The row index keeps IDs unique within a batch even when the clock and the
// random suffix collide.
func Transaction(invoiceDate string, index int, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%d-%s", invoiceDate, index, now.UnixMilli(), suffix)
}

var transactionPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(\d+)-`)

// ParseTransaction extracts the invoice date and row index from a transaction ID.
func ParseTransaction(id string) (invoiceDate string, index int, err error) {
	m := transactionPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, fmt.Errorf("invalid transaction ID format: %q", id)
	}
	index, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid row index in transaction ID %q: %w", id, err)
	}
	return m[1], index, nil
}
