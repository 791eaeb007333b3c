// Package store defines the persistence contracts of the import pipeline and
// the editing surface around it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fpachecos/dashboard-faturas/internal/model"
)

var (
	// ErrNotFound is returned when a transaction or category does not exist
	// for the user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidUser is returned for an empty or unusable user ID.
	ErrInvalidUser = errors.New("invalid user id")
	// ErrConflict is returned when a category ID is already taken.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCategory is returned for a category without a name.
	ErrInvalidCategory = errors.New("invalid category")
)

// CategoryStore lists a user's categories. Implementations seed and return
// the default set when the user has none.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
}

// TransactionStore is what the importer needs to replace a statement period.
type TransactionStore interface {
	// DeleteByInvoiceMonth removes every transaction of userID whose invoice
	// date shares the year-month of invoiceDate.
	DeleteByInvoiceMonth(ctx context.Context, userID, invoiceDate string) error
	InsertTransactions(ctx context.Context, userID string, txns []model.Transaction) error
}

// Replacer is implemented by stores that can purge a month and insert its
// new batch atomically.
type Replacer interface {
	ReplaceInvoiceMonth(ctx context.Context, userID, invoiceDate string, txns []model.Transaction) error
}

// TransactionReader lists a user's stored transactions.
type TransactionReader interface {
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

// Update holds the editable fields of a transaction. Nil fields are left unchanged.
type Update struct {
	Category      *string
	Type          *model.TransactionType
	Date          *string
	Establishment *string
	Cardholder    *string
	Value         *float64
	Installment   *string
}

// Apply copies the set fields of u onto txn.
func (u Update) Apply(txn *model.Transaction) {
	if u.Category != nil {
		txn.Category = u.Category
	}
	if u.Type != nil {
		txn.Type = u.Type
	}
	if u.Date != nil {
		txn.Date = *u.Date
	}
	if u.Establishment != nil {
		txn.Establishment = *u.Establishment
	}
	if u.Cardholder != nil {
		txn.Cardholder = *u.Cardholder
	}
	if u.Value != nil {
		txn.Value = *u.Value
	}
	if u.Installment != nil {
		txn.Installment = *u.Installment
	}
}

// TransactionEditor changes or removes single transactions by ID.
type TransactionEditor interface {
	UpdateTransaction(ctx context.Context, userID, id string, u Update) (model.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// CategoryUpdate holds the editable fields of a category. Nil fields are left unchanged.
type CategoryUpdate struct {
	Name  *string
	Color *string
}

// Validate rejects a blank name.
func (u CategoryUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("name is empty: %w", ErrInvalidCategory)
	}
	return nil
}

// Apply copies the set fields of u onto c.
func (u CategoryUpdate) Apply(c *model.Category) {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
}

// PrepareCategory trims a new category's fields and gives it an ID when it has none.
func PrepareCategory(c model.Category) (model.Category, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Color = strings.TrimSpace(c.Color)
	if c.Name == "" {
		return model.Category{}, fmt.Errorf("name is empty: %w", ErrInvalidCategory)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c, nil
}

// CategoryEditor manages user-defined categories. Adding seeds the default
// set first, so a user's own categories never hide the defaults.
type CategoryEditor interface {
	AddCategory(ctx context.Context, userID string, c model.Category) (model.Category, error)
	UpdateCategory(ctx context.Context, userID, id string, u CategoryUpdate) (model.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
}

// Backend is a full storage backend.
type Backend interface {
	CategoryStore
	CategoryEditor
	TransactionStore
	TransactionReader
	TransactionEditor
	Close() error
}
