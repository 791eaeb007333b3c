// Package supabase stores data in the "transactions" and "categories" tables
// of a Supabase project through its PostgREST API.
//
// PostgREST offers no multi-statement transactions, so this backend does not
// implement store.Replacer: a month replace is a delete followed by an insert.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/period"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

// DefaultSchema is the database schema the tables live in.
const DefaultSchema = "faturas"

const (
	transactionsTable = "transactions"
	categoriesTable   = "categories"
)

var _ store.Backend = (*Store)(nil)

// TransactionRow is the table representation of a transaction.
type TransactionRow struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Date          string  `json:"date"`
	Establishment string  `json:"establishment"`
	Cardholder    string  `json:"cardholder"`
	Value         float64 `json:"value"`
	Installment   string  `json:"installment"`
	InvoiceDate   string  `json:"invoice_date"`
	Category      *string `json:"category"`
	Type          *string `json:"type"`
}

// CategoryRow is the table representation of a category.
type CategoryRow struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Store is a Supabase storage backend.
type Store struct {
	client *supabase.Client
}

// New connects to the project at url with key. An empty schema means DefaultSchema.
func New(url, key, schema string) (*Store, error) {
	if schema == "" {
		schema = DefaultSchema
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ListCategories returns the user's categories ordered by name, inserting the
// defaults when the user has none.
func (s *Store) ListCategories(_ context.Context, userID string) ([]model.Category, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	data, _, err := s.client.From(categoriesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("name", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	cats, err := decodeCategories(data)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		return cats, nil
	}

	defaults := categories.Default()
	seed := make([]CategoryRow, len(defaults))
	for i, c := range defaults {
		seed[i] = CategoryToRow(c, userID)
	}
	if _, _, err := s.client.From(categoriesTable).Insert(seed, false, "", "minimal", "").Execute(); err != nil {
		return nil, fmt.Errorf("seeding categories: %w", err)
	}
	return defaults, nil
}

// AddCategory inserts a user-defined category after making sure the defaults exist.
func (s *Store) AddCategory(ctx context.Context, userID string, c model.Category) (model.Category, error) {
	c, err := store.PrepareCategory(c)
	if err != nil {
		return model.Category{}, err
	}
	cats, err := s.ListCategories(ctx, userID)
	if err != nil {
		return model.Category{}, err
	}
	for _, existing := range cats {
		if existing.ID == c.ID {
			return model.Category{}, fmt.Errorf("category %s: %w", c.ID, store.ErrConflict)
		}
	}
	row := CategoryToRow(c, userID)
	if _, _, err := s.client.From(categoriesTable).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return model.Category{}, fmt.Errorf("inserting category: %w", err)
	}
	return c, nil
}

// UpdateCategory patches the set fields of u and returns the stored row.
func (s *Store) UpdateCategory(_ context.Context, userID, id string, u store.CategoryUpdate) (model.Category, error) {
	if err := checkUser(userID); err != nil {
		return model.Category{}, err
	}
	if err := u.Validate(); err != nil {
		return model.Category{}, err
	}

	q := s.client.From(categoriesTable)
	patch := CategoryPatchFields(u)
	var (
		data []byte
		err  error
	)
	if len(patch) == 0 {
		data, _, err = q.Select("*", "", false).Eq("id", id).Eq("user_id", userID).Execute()
	} else {
		data, _, err = q.Update(patch, "representation", "").Eq("id", id).Eq("user_id", userID).Execute()
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("updating category: %w", err)
	}
	cats, err := decodeCategories(data)
	if err != nil {
		return model.Category{}, err
	}
	if len(cats) == 0 {
		return model.Category{}, store.ErrNotFound
	}
	return cats[0], nil
}

// DeleteCategory removes one category.
func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	data, _, err := s.client.From(categoriesTable).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	cats, err := decodeCategories(data)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByInvoiceMonth removes the user's transactions whose invoice_date
// starts with the year-month of invoiceDate.
func (s *Store) DeleteByInvoiceMonth(_ context.Context, userID, invoiceDate string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	month := period.Month(invoiceDate)
	if len(month) != 7 {
		return fmt.Errorf("invalid invoice date %q", invoiceDate)
	}
	_, _, err := s.client.From(transactionsTable).
		Delete("minimal", "").
		Eq("user_id", userID).
		Like("invoice_date", month+"%").
		Execute()
	if err != nil {
		return fmt.Errorf("deleting invoice month %s: %w", month, err)
	}
	return nil
}

// InsertTransactions adds txns for the user in a single request.
func (s *Store) InsertTransactions(_ context.Context, userID string, txns []model.Transaction) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}
	rows := make([]TransactionRow, len(txns))
	for i, t := range txns {
		rows[i] = TransactionToRow(t, userID)
	}
	if _, _, err := s.client.From(transactionsTable).Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("inserting transactions: %w", err)
	}
	return nil
}

// ListTransactions returns the user's transactions ordered by invoice date.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	data, _, err := s.client.From(transactionsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("invoice_date", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	return decodeTransactions(data)
}

// UpdateTransaction patches the set fields of u and returns the stored row.
func (s *Store) UpdateTransaction(_ context.Context, userID, id string, u store.Update) (model.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return model.Transaction{}, err
	}
	patch := PatchFields(u)
	if len(patch) == 0 {
		return s.getTransaction(userID, id)
	}
	data, _, err := s.client.From(transactionsTable).
		Update(patch, "representation", "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction: %w", err)
	}
	txns, err := decodeTransactions(data)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(txns) == 0 {
		return model.Transaction{}, store.ErrNotFound
	}
	return txns[0], nil
}

func (s *Store) getTransaction(userID, id string) (model.Transaction, error) {
	data, _, err := s.client.From(transactionsTable).
		Select("*", "", false).
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("fetching transaction: %w", err)
	}
	txns, err := decodeTransactions(data)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(txns) == 0 {
		return model.Transaction{}, store.ErrNotFound
	}
	return txns[0], nil
}

// DeleteTransaction removes one transaction.
func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	data, _, err := s.client.From(transactionsTable).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	var rows []TransactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decoding deleted rows: %w", err)
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// TransactionToRow maps a transaction to its table row.
func TransactionToRow(t model.Transaction, userID string) TransactionRow {
	r := TransactionRow{
		ID:            t.ID,
		UserID:        userID,
		Date:          t.Date,
		Establishment: t.Establishment,
		Cardholder:    t.Cardholder,
		Value:         t.Value,
		Installment:   t.Installment,
		InvoiceDate:   t.InvoiceDate,
	}
	if c := t.CategoryID(); c != "" {
		r.Category = &c
	}
	if typ := t.TypeOrEmpty(); typ != "" {
		s := string(typ)
		r.Type = &s
	}
	return r
}

// RowToTransaction maps a table row back to a transaction. Empty or unknown
// category and type values become unclassified.
func RowToTransaction(r TransactionRow) model.Transaction {
	t := model.Transaction{
		ID:            r.ID,
		Date:          r.Date,
		Establishment: r.Establishment,
		Cardholder:    r.Cardholder,
		Value:         r.Value,
		Installment:   r.Installment,
		InvoiceDate:   r.InvoiceDate,
	}
	if r.Category != nil && *r.Category != "" {
		t.Category = model.Ptr(*r.Category)
	}
	if r.Type != nil {
		t.Type = model.ParseTransactionType(*r.Type)
	}
	return t
}

// CategoryToRow maps a category to its table row.
func CategoryToRow(c model.Category, userID string) CategoryRow {
	return CategoryRow{ID: c.ID, UserID: userID, Name: c.Name, Color: c.Color}
}

// RowToCategory maps a table row to a category.
func RowToCategory(r CategoryRow) model.Category {
	return model.Category{ID: r.ID, Name: r.Name, Color: r.Color}
}

// PatchFields returns the column updates for the set fields of u.
func PatchFields(u store.Update) map[string]any {
	patch := map[string]any{}
	if u.Category != nil {
		patch["category"] = *u.Category
	}
	if u.Type != nil {
		patch["type"] = string(*u.Type)
	}
	if u.Date != nil {
		patch["date"] = *u.Date
	}
	if u.Establishment != nil {
		patch["establishment"] = *u.Establishment
	}
	if u.Cardholder != nil {
		patch["cardholder"] = *u.Cardholder
	}
	if u.Value != nil {
		patch["value"] = *u.Value
	}
	if u.Installment != nil {
		patch["installment"] = *u.Installment
	}
	return patch
}

// CategoryPatchFields returns the column updates for the set fields of u.
func CategoryPatchFields(u store.CategoryUpdate) map[string]any {
	var c model.Category
	u.Apply(&c)
	patch := map[string]any{}
	if u.Name != nil {
		patch["name"] = c.Name
	}
	if u.Color != nil {
		patch["color"] = c.Color
	}
	return patch
}

func decodeCategories(data []byte) ([]model.Category, error) {
	var rows []CategoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	out := make([]model.Category, len(rows))
	for i, r := range rows {
		out[i] = RowToCategory(r)
	}
	return out, nil
}

func decodeTransactions(data []byte) ([]model.Transaction, error) {
	var rows []TransactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}
	out := make([]model.Transaction, len(rows))
	for i, r := range rows {
		out[i] = RowToTransaction(r)
	}
	return out, nil
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return store.ErrInvalidUser
	}
	return nil
}
