package categories

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/fpachecos/dashboard-faturas/internal/model"
)

// Header is the CSV header for categories.csv.
var Header = []string{"id", "name", "color"}

const (
	numFields = 3
	colID     = 0
	colName   = 1
	colColor  = 2
)

// ReadCategories reads categories.csv.
func ReadCategories(r io.Reader) ([]model.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	cats := make([]model.Category, 0, len(records)-1)
	for _, rec := range records[1:] {
		cats = append(cats, UnmarshalCategory(rec))
	}
	return cats, nil
}

// WriteCategories writes categories.csv, header included.
func WriteCategories(w io.Writer, cats []model.Category) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, c := range cats {
		if err := cw.Write(MarshalCategory(c)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(c model.Category) []string {
	row := make([]string, numFields)
	row[colID] = c.ID
	row[colName] = c.Name
	row[colColor] = c.Color
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) model.Category {
	return model.Category{
		ID:    record[colID],
		Name:  record[colName],
		Color: record[colColor],
	}
}
