package server

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fpachecos/dashboard-faturas/internal/ingest"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/report"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

type importRequest struct {
	CSVContent string `json:"csvContent"`
	Filename   string `json:"filename"`
}

type updateRequest struct {
	Category      *string  `json:"category"`
	Type          *string  `json:"type"`
	Date          *string  `json:"date"`
	Establishment *string  `json:"establishment"`
	Cardholder    *string  `json:"cardholder"`
	Value         *float64 `json:"value"`
	Installment   *string  `json:"installment"`
}

type categoryRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type categoryUpdateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	txns, err := s.filtered(c)
	if err != nil {
		return err
	}
	return c.JSON(txns)
}

// importStatement accepts either a JSON body {csvContent, filename} or a
// multipart upload in the "file" field.
func (s *Server) importStatement(c *fiber.Ctx) error {
	var (
		content  io.Reader
		filename string
	)

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unreadable upload")
		}
		defer f.Close()
		content, filename = f, fh.Filename
	} else {
		var body importRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(body.CSVContent) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "CSV content is required")
		}
		content, filename = strings.NewReader(body.CSVContent), body.Filename
	}

	res, err := s.Ingest.Import(c.UserContext(), ingest.Request{
		UserID:   userID(c),
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":     "Transactions imported successfully",
		"count":       res.Count,
		"invoiceDate": res.InvoiceDate,
	})
}

func (s *Server) updateTransaction(c *fiber.Ctx) error {
	var body updateRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	u := store.Update{
		Category:      body.Category,
		Date:          body.Date,
		Establishment: body.Establishment,
		Cardholder:    body.Cardholder,
		Value:         body.Value,
		Installment:   body.Installment,
	}
	if body.Type != nil {
		t := model.ParseTransactionType(*body.Type)
		if t == nil {
			return fiber.NewError(fiber.StatusBadRequest, "type must be Fixo or Variável")
		}
		u.Type = t
	}

	txn, err := s.Store.UpdateTransaction(c.UserContext(), userID(c), c.Params("id"), u)
	if err != nil {
		return err
	}
	return c.JSON(txn)
}

func (s *Server) deleteTransaction(c *fiber.Ctx) error {
	if err := s.Store.DeleteTransaction(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Transaction deleted"})
}

func (s *Server) listCategories(c *fiber.Ctx) error {
	cats, err := s.Store.ListCategories(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(cats)
}

func (s *Server) summary(c *fiber.Ctx) error {
	sum, err := s.summarize(c)
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (s *Server) summaryChart(c *fiber.Ctx) error {
	sum, err := s.summarize(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.RenderCategoryChart(sum, c.Query("invoiceDate"), &buf); err != nil {
		if errors.Is(err, report.ErrNoData) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

func (s *Server) summarize(c *fiber.Ctx) (report.Summary, error) {
	txns, err := s.filtered(c)
	if err != nil {
		return report.Summary{}, err
	}
	cats, err := s.Store.ListCategories(c.UserContext(), userID(c))
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(txns, cats), nil
}

func (s *Server) filtered(c *fiber.Ctx) ([]model.Transaction, error) {
	f, err := filterFromQuery(c)
	if err != nil {
		return nil, err
	}
	txns, err := s.Store.ListTransactions(c.UserContext(), userID(c))
	if err != nil {
		return nil, err
	}
	out, err := report.Apply(txns, f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return out, nil
}

func filterFromQuery(c *fiber.Ctx) (report.Filter, error) {
	f := report.Filter{
		Category:     c.Query("category"),
		DateFrom:     c.Query("dateFrom"),
		DateTo:       c.Query("dateTo"),
		InvoiceMonth: c.Query("invoiceDate"),
	}
	if v := c.Query("type"); v != "" {
		t := model.ParseTransactionType(v)
		if t == nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "type must be Fixo or Variável")
		}
		f.Type = *t
	}
	for _, q := range []struct {
		name string
		dst  **float64
	}{
		{"valueMin", &f.ValueMin},
		{"valueMax", &f.ValueMax},
	} {
		v := c.Query(q.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, q.name+" must be a number")
		}
		*q.dst = &n
	}
	return f, nil
}

func (s *Server) addCategory(c *fiber.Ctx) error {
	var body categoryRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	cat, err := s.Store.AddCategory(c.UserContext(), userID(c), model.Category{
		ID:    body.ID,
		Name:  body.Name,
		Color: body.Color,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

func (s *Server) updateCategory(c *fiber.Ctx) error {
	var body categoryUpdateRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	cat, err := s.Store.UpdateCategory(c.UserContext(), userID(c), c.Params("id"), store.CategoryUpdate{
		Name:  body.Name,
		Color: body.Color,
	})
	if err != nil {
		return err
	}
	return c.JSON(cat)
}

func (s *Server) deleteCategory(c *fiber.Ctx) error {
	if err := s.Store.DeleteCategory(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}
