// Package postgres stores transactions and categories in PostgreSQL through a
// pgx connection pool. A month replace runs in a single database transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/period"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

// Schema creates the tables the store expects. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id      TEXT NOT NULL,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	color   TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	date          TEXT NOT NULL,
	establishment TEXT NOT NULL,
	cardholder    TEXT NOT NULL,
	value         DOUBLE PRECISION NOT NULL,
	installment   TEXT NOT NULL,
	invoice_date  TEXT NOT NULL,
	category      TEXT,
	type          TEXT
);

CREATE INDEX IF NOT EXISTS transactions_user_invoice_idx ON transactions (user_id, invoice_date);
`

const transactionColumns = `id, date, establishment, cardholder, value, installment, invoice_date, category, type`

const insertTransactionSQL = `
INSERT INTO transactions (user_id, ` + transactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const deleteMonthSQL = `DELETE FROM transactions WHERE user_id = $1 AND invoice_date LIKE $2`

var (
	_ store.Backend  = (*Store)(nil)
	_ store.Replacer = (*Store)(nil)
)

// Store is a PostgreSQL storage backend.
type Store struct {
	Pool *pgxpool.Pool
}

// Open connects to dsn and makes sure the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	s := &Store{Pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

// ListCategories returns the user's categories, inserting the defaults when
// the user has none.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	cats, err := s.queryCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		return cats, nil
	}

	defaults := categories.Default()
	b := &pgx.Batch{}
	for _, c := range defaults {
		b.Queue(`INSERT INTO categories (id, user_id, name, color) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, id) DO NOTHING`, c.ID, userID, c.Name, c.Color)
	}
	if err := s.Pool.SendBatch(ctx, b).Close(); err != nil {
		return nil, fmt.Errorf("seeding categories: %w", err)
	}
	return defaults, nil
}

func (s *Store) queryCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT id, name, color
FROM categories
WHERE user_id = $1
ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCategory inserts a user-defined category after making sure the defaults exist.
func (s *Store) AddCategory(ctx context.Context, userID string, c model.Category) (model.Category, error) {
	c, err := store.PrepareCategory(c)
	if err != nil {
		return model.Category{}, err
	}
	if _, err := s.ListCategories(ctx, userID); err != nil {
		return model.Category{}, err
	}

	tag, err := s.Pool.Exec(ctx, `INSERT INTO categories (id, user_id, name, color) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, id) DO NOTHING`, c.ID, userID, c.Name, c.Color)
	if err != nil {
		return model.Category{}, fmt.Errorf("inserting category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Category{}, fmt.Errorf("category %s: %w", c.ID, store.ErrConflict)
	}
	return c, nil
}

// UpdateCategory changes the set fields of one category.
func (s *Store) UpdateCategory(ctx context.Context, userID, id string, u store.CategoryUpdate) (model.Category, error) {
	if err := checkUser(userID); err != nil {
		return model.Category{}, err
	}
	if err := u.Validate(); err != nil {
		return model.Category{}, err
	}
	var name *string
	if u.Name != nil {
		name = model.Ptr(strings.TrimSpace(*u.Name))
	}

	var c model.Category
	err := s.Pool.QueryRow(ctx, `
UPDATE categories
SET name = COALESCE($3::text, name), color = COALESCE($4::text, color)
WHERE user_id = $1 AND id = $2
RETURNING id, name, color`, userID, id, name, u.Color).Scan(&c.ID, &c.Name, &c.Color)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Category{}, store.ErrNotFound
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("updating category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes one category.
func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM categories WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByInvoiceMonth removes the user's transactions whose invoice date
// starts with the year-month of invoiceDate.
func (s *Store) DeleteByInvoiceMonth(ctx context.Context, userID, invoiceDate string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	pattern, err := MonthPattern(invoiceDate)
	if err != nil {
		return err
	}
	if _, err := s.Pool.Exec(ctx, deleteMonthSQL, userID, pattern); err != nil {
		return fmt.Errorf("deleting invoice month: %w", err)
	}
	return nil
}

// InsertTransactions adds txns for the user.
func (s *Store) InsertTransactions(ctx context.Context, userID string, txns []model.Transaction) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}
	if err := s.Pool.SendBatch(ctx, insertBatch(userID, txns)).Close(); err != nil {
		return fmt.Errorf("inserting transactions: %w", err)
	}
	return nil
}

// ReplaceInvoiceMonth deletes the month of invoiceDate and inserts txns in one
// database transaction.
func (s *Store) ReplaceInvoiceMonth(ctx context.Context, userID, invoiceDate string, txns []model.Transaction) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	pattern, err := MonthPattern(invoiceDate)
	if err != nil {
		return err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteMonthSQL, userID, pattern); err != nil {
		return fmt.Errorf("deleting invoice month: %w", err)
	}
	if len(txns) > 0 {
		if err := tx.SendBatch(ctx, insertBatch(userID, txns)).Close(); err != nil {
			return fmt.Errorf("inserting transactions: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing month replace: %w", err)
	}
	return nil
}

// ListTransactions returns all of the user's transactions ordered by invoice date.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE user_id = $1
ORDER BY invoice_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTransaction applies u to the transaction and returns the stored result.
func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, u store.Update) (model.Transaction, error) {
	if err := checkUser(userID); err != nil {
		return model.Transaction{}, err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTransaction(tx.QueryRow(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE user_id = $1 AND id = $2
FOR UPDATE`, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}

	u.Apply(&t)
	_, err = tx.Exec(ctx, `
UPDATE transactions
SET date = $3, establishment = $4, cardholder = $5, value = $6, installment = $7, category = $8, type = $9
WHERE user_id = $1 AND id = $2`,
		userID, id, t.Date, t.Establishment, t.Cardholder, t.Value, t.Installment, t.Category, typeText(t.Type))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Transaction{}, fmt.Errorf("committing update: %w", err)
	}
	return t, nil
}

// DeleteTransaction removes one transaction.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MonthPattern returns the LIKE pattern matching every invoice date in the
// year-month of invoiceDate, e.g. "2025-10%".
func MonthPattern(invoiceDate string) (string, error) {
	month := period.Month(invoiceDate)
	if len(month) != 7 || month[4] != '-' || strings.ContainsAny(month, "%_") {
		return "", fmt.Errorf("invalid invoice date %q", invoiceDate)
	}
	return month + "%", nil
}

func insertBatch(userID string, txns []model.Transaction) *pgx.Batch {
	b := &pgx.Batch{}
	for _, t := range txns {
		b.Queue(insertTransactionSQL, insertArgs(userID, t)...)
	}
	return b
}

func insertArgs(userID string, t model.Transaction) []any {
	return []any{
		userID, t.ID, t.Date, t.Establishment, t.Cardholder, t.Value,
		t.Installment, t.InvoiceDate, t.Category, typeText(t.Type),
	}
}

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var (
		t   model.Transaction
		typ *string
	)
	err := row.Scan(&t.ID, &t.Date, &t.Establishment, &t.Cardholder, &t.Value,
		&t.Installment, &t.InvoiceDate, &t.Category, &typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, err
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("scanning transaction: %w", err)
	}
	if typ != nil {
		t.Type = model.ParseTransactionType(*typ)
	}
	return t, nil
}

func typeText(t *model.TransactionType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return store.ErrInvalidUser
	}
	return nil
}
