// Package ingest turns an uploaded statement into the stored transactions of
// its invoice month.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fpachecos/dashboard-faturas/internal/classifier"
	"github.com/fpachecos/dashboard-faturas/internal/importer"
	"github.com/fpachecos/dashboard-faturas/internal/logger"
	"github.com/fpachecos/dashboard-faturas/internal/period"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

// ErrMissingUser is returned when a request has no user ID.
var ErrMissingUser = errors.New("user id is required")

// Store is what an import needs from a backend.
type Store interface {
	store.CategoryStore
	store.TransactionStore
}

// Request is one statement upload.
type Request struct {
	UserID string
	// Filename is the uploaded file's name. It may be empty, in which case the
	// import is filed under today's date.
	Filename string
	Content  io.Reader
}

// Result reports how many transactions replaced the period.
type Result struct {
	Count       int    `json:"count"`
	InvoiceDate string `json:"invoiceDate"`
}

// Record describes a finished import attempt for auditing.
type Record struct {
	At          time.Time
	UserID      string
	Filename    string
	InvoiceDate string
	Count       int
	Err         error
}

// Auditor receives a Record after every import attempt that got past
// request validation.
type Auditor interface {
	RecordImport(ctx context.Context, rec Record) error
}

// Service runs imports.
type Service struct {
	store      Store
	parser     importer.Parser
	classifier *classifier.Classifier
	now        func() time.Time
	auditor    Auditor
	locks      keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithParser replaces the default semicolon statement parser.
func WithParser(p importer.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithClassifier replaces the built-in classification rules.
func WithClassifier(c *classifier.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithClock sets the time source used for the default period and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAuditor records every import attempt.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// NewService returns a Service writing to st.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		classifier: classifier.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = &importer.FaturaParser{Now: s.now}
	}
	return s
}

// Import replaces every stored transaction of the user whose invoice month
// matches the request's period with the freshly parsed and classified batch.
// Imports for the same user and month are serialized.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Result{}, ErrMissingUser
	}

	invoiceDate := period.FromFilename(req.Filename, s.now())
	month := period.Month(invoiceDate)
	log := logger.WithFields(logger.FromContext(ctx), map[string]any{
		"user_id":      req.UserID,
		"file":         req.Filename,
		"invoice_date": invoiceDate,
	})
	ctx = logger.WithContext(ctx, log)

	unlock := s.locks.Lock(req.UserID + "|" + month)
	defer unlock()

	res, err := s.replace(ctx, req, invoiceDate)
	if err != nil {
		log.Error().Err(err).Msg("import failed")
	} else {
		log.Info().Int("count", res.Count).Str("purged_month", month).Msg("import complete")
	}

	if s.auditor != nil {
		rec := Record{
			At:          s.now(),
			UserID:      req.UserID,
			Filename:    req.Filename,
			InvoiceDate: invoiceDate,
			Count:       res.Count,
			Err:         err,
		}
		if aerr := s.auditor.RecordImport(ctx, rec); aerr != nil {
			log.Warn().Err(aerr).Msg("recording import")
		}
	}
	return res, err
}

func (s *Service) replace(ctx context.Context, req Request, invoiceDate string) (Result, error) {
	log := logger.FromContext(ctx)

	txns, err := s.parser.Parse(req.Content, invoiceDate)
	if err != nil {
		return Result{}, fmt.Errorf("parsing statement: %w", err)
	}
	log.Debug().Int("parsed", len(txns)).Msg("statement parsed")

	cats, err := s.store.ListCategories(ctx, req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("loading categories: %w", err)
	}
	classified := s.classifier.Classify(txns, cats)

	if r, ok := s.store.(store.Replacer); ok {
		if err := r.ReplaceInvoiceMonth(ctx, req.UserID, invoiceDate, classified); err != nil {
			return Result{}, fmt.Errorf("replacing invoice month: %w", err)
		}
	} else {
		if err := s.store.DeleteByInvoiceMonth(ctx, req.UserID, invoiceDate); err != nil {
			return Result{}, fmt.Errorf("deleting invoice month: %w", err)
		}
		if err := s.store.InsertTransactions(ctx, req.UserID, classified); err != nil {
			return Result{}, fmt.Errorf("inserting transactions: %w", err)
		}
	}

	return Result{Count: len(classified), InvoiceDate: invoiceDate}, nil
}
