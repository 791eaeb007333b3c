// Package filestore keeps each user's data as CSV files under a root
// directory, one transactions.csv per invoice month:
//
//	<root>/users/<user>/categories.csv
//	<root>/users/<user>/<YYYY>/<MM>/transactions.csv
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/id"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/period"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

const (
	usersDir         = "users"
	categoriesFile   = "categories.csv"
	transactionsFile = "transactions.csv"
)

var monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

var (
	_ store.Backend  = (*Store)(nil)
	_ store.Replacer = (*Store)(nil)
)

// Store is a file-backed storage backend. Month files are replaced with
// write-to-temp and rename, so a month is never left half written.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a Store rooted at root. The directory is created on first write.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ListCategories returns the user's categories, seeding the defaults on first access.
func (s *Store) ListCategories(_ context.Context, userID string) ([]model.Category, error) {
	path, err := s.categoriesPath(userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return loadCategories(path)
}

// AddCategory stores a new user-defined category.
func (s *Store) AddCategory(_ context.Context, userID string, c model.Category) (model.Category, error) {
	path, err := s.categoriesPath(userID)
	if err != nil {
		return model.Category{}, err
	}
	c, err = store.PrepareCategory(c)
	if err != nil {
		return model.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := loadCategories(path)
	if err != nil {
		return model.Category{}, err
	}
	for _, existing := range cats {
		if existing.ID == c.ID {
			return model.Category{}, fmt.Errorf("category %s: %w", c.ID, store.ErrConflict)
		}
	}
	if err := saveCategories(path, append(cats, c)); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// UpdateCategory applies u to the category with the given ID.
func (s *Store) UpdateCategory(_ context.Context, userID, catID string, u store.CategoryUpdate) (model.Category, error) {
	path, err := s.categoriesPath(userID)
	if err != nil {
		return model.Category{}, err
	}
	if err := u.Validate(); err != nil {
		return model.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := loadCategories(path)
	if err != nil {
		return model.Category{}, err
	}
	for i := range cats {
		if cats[i].ID != catID {
			continue
		}
		u.Apply(&cats[i])
		if err := saveCategories(path, cats); err != nil {
			return model.Category{}, err
		}
		return cats[i], nil
	}
	return model.Category{}, store.ErrNotFound
}

// DeleteCategory removes the category with the given ID. Transactions keep
// the deleted ID.
func (s *Store) DeleteCategory(_ context.Context, userID, catID string) error {
	path, err := s.categoriesPath(userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := loadCategories(path)
	if err != nil {
		return err
	}
	kept := cats[:0]
	for _, c := range cats {
		if c.ID != catID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(cats) {
		return store.ErrNotFound
	}
	return saveCategories(path, kept)
}

func (s *Store) categoriesPath(userID string) (string, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, categoriesFile), nil
}

// loadCategories reads the categories file, writing the defaults when it is
// missing or empty. Callers hold s.mu.
func loadCategories(path string) ([]model.Category, error) {
	f, err := os.Open(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("opening categories: %w", err)
	}
	if err == nil {
		defer f.Close()
		cats, err := categories.ReadCategories(f)
		if err != nil {
			return nil, fmt.Errorf("reading categories %s: %w", path, err)
		}
		if len(cats) > 0 {
			return cats, nil
		}
	}

	defaults := categories.Default()
	if err := saveCategories(path, defaults); err != nil {
		return nil, fmt.Errorf("seeding categories: %w", err)
	}
	return defaults, nil
}

func saveCategories(path string, cats []model.Category) error {
	return writeAtomic(path, func(f *os.File) error {
		return categories.WriteCategories(f, cats)
	})
}

// DeleteByInvoiceMonth removes the month file for invoiceDate's year-month.
func (s *Store) DeleteByInvoiceMonth(_ context.Context, userID, invoiceDate string) error {
	path, err := s.monthPath(userID, invoiceDate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

// InsertTransactions appends txns to their invoice months.
func (s *Store) InsertTransactions(_ context.Context, userID string, txns []model.Transaction) error {
	byMonth := make(map[string][]model.Transaction)
	var months []string
	for _, txn := range txns {
		m := txn.InvoiceMonth()
		if _, ok := byMonth[m]; !ok {
			months = append(months, m)
		}
		byMonth[m] = append(byMonth[m], txn)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range months {
		path, err := s.monthPath(userID, m)
		if err != nil {
			return err
		}
		existing, err := readMonth(path)
		if err != nil {
			return err
		}
		if err := writeMonth(path, append(existing, byMonth[m]...)); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceInvoiceMonth swaps the month's file for one holding exactly txns.
func (s *Store) ReplaceInvoiceMonth(_ context.Context, userID, invoiceDate string, txns []model.Transaction) error {
	path, err := s.monthPath(userID, invoiceDate)
	if err != nil {
		return err
	}
	month := period.Month(invoiceDate)
	for _, txn := range txns {
		if txn.InvoiceMonth() != month {
			return fmt.Errorf("transaction %s belongs to %s, not %s", txn.ID, txn.InvoiceMonth(), month)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(txns) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting %s: %w", path, err)
		}
		return nil
	}
	return writeMonth(path, txns)
}

// ListTransactions returns all of the user's transactions, oldest month first.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.monthFiles(dir)
	if err != nil {
		return nil, err
	}

	var all []model.Transaction
	for _, p := range paths {
		txns, err := readMonth(p)
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
	}
	return all, nil
}

// UpdateTransaction applies u to the transaction with the given ID.
func (s *Store) UpdateTransaction(_ context.Context, userID, txnID string, u store.Update) (model.Transaction, error) {
	var updated model.Transaction
	err := s.editTransaction(userID, txnID, func(txns []model.Transaction, i int) []model.Transaction {
		u.Apply(&txns[i])
		updated = txns[i]
		return txns
	})
	return updated, err
}

// DeleteTransaction removes the transaction with the given ID.
func (s *Store) DeleteTransaction(_ context.Context, userID, txnID string) error {
	return s.editTransaction(userID, txnID, func(txns []model.Transaction, i int) []model.Transaction {
		return append(txns[:i], txns[i+1:]...)
	})
}

func (s *Store) editTransaction(userID, txnID string, edit func([]model.Transaction, int) []model.Transaction) error {
	dir, err := s.userDir(userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// IDs minted by the importer name their month; others need a full scan.
	var candidates []string
	if invoiceDate, _, err := id.ParseTransaction(txnID); err == nil {
		if p, err := s.monthPath(userID, invoiceDate); err == nil {
			candidates = append(candidates, p)
		}
	}
	all, err := s.monthFiles(dir)
	if err != nil {
		return err
	}
	candidates = append(candidates, all...)

	for _, path := range candidates {
		txns, err := readMonth(path)
		if err != nil {
			return err
		}
		for i := range txns {
			if txns[i].ID != txnID {
				continue
			}
			txns = edit(txns, i)
			if len(txns) == 0 {
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("deleting %s: %w", path, err)
				}
				return nil
			}
			return writeMonth(path, txns)
		}
	}
	return fmt.Errorf("transaction %s: %w", txnID, store.ErrNotFound)
}

func (s *Store) userDir(userID string) (string, error) {
	if userID == "" || userID == "." || userID == ".." || filepath.Base(userID) != userID {
		return "", fmt.Errorf("%q: %w", userID, store.ErrInvalidUser)
	}
	return filepath.Join(s.root, usersDir, userID), nil
}

func (s *Store) monthPath(userID, invoiceDate string) (string, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return "", err
	}
	m := monthPattern.FindStringSubmatch(period.Month(invoiceDate))
	if m == nil {
		return "", fmt.Errorf("invalid invoice date %q", invoiceDate)
	}
	return filepath.Join(dir, m[1], m[2], transactionsFile), nil
}

// monthFiles lists the user's month files in chronological order.
func (s *Store) monthFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]", transactionsFile))
	if err != nil {
		return nil, fmt.Errorf("listing months: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func readMonth(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return txns, nil
}

func writeMonth(path string, txns []model.Transaction) error {
	return writeAtomic(path, func(f *os.File) error {
		return WriteTransactions(f, txns)
	})
}

func writeAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
