// Package server exposes the import pipeline and the stored transactions over
// a JSON HTTP API.
package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fpachecos/dashboard-faturas/internal/ingest"
	"github.com/fpachecos/dashboard-faturas/internal/logger"
	"github.com/fpachecos/dashboard-faturas/internal/store"
)

// UserHeader carries the caller's user ID. Authentication happens in front of
// this service.
const UserHeader = "X-User-ID"

const (
	requestIDHeader = "X-Request-ID"
	localUserID     = "user_id"
	maxUploadBytes  = 10 << 20
)

// Server holds the handlers' dependencies.
type Server struct {
	Store  store.Backend
	Ingest *ingest.Service
	Log    zerolog.Logger
}

// New builds the fiber app with every route registered.
func New(st store.Backend, svc *ingest.Service, log zerolog.Logger) *fiber.App {
	s := &Server{Store: st, Ingest: svc, Log: log}

	app := fiber.New(fiber.Config{
		AppName:               "faturas",
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	app.Use(s.requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := app.Group("/api", requireUser())
	api.Get("/transactions", s.listTransactions)
	api.Post("/transactions", s.importStatement)
	api.Patch("/transactions/:id", s.updateTransaction)
	api.Delete("/transactions/:id", s.deleteTransaction)
	api.Get("/categories", s.listCategories)
	api.Post("/categories", s.addCategory)
	api.Put("/categories/:id", s.updateCategory)
	api.Delete("/categories/:id", s.deleteCategory)
	api.Get("/summary", s.summary)
	api.Get("/summary/chart.png", s.summaryChart)

	return app
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)

		log := s.Log.With().Str("request_id", reqID).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext(), log))

		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return nil
	}
}

func requireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(UserHeader))
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing "+UserHeader+" header")
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	v, _ := c.Locals(localUserID).(string)
	return v
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
		message = "not found"
	case errors.Is(err, store.ErrConflict):
		code = fiber.StatusConflict
		message = err.Error()
	case errors.Is(err, store.ErrInvalidUser), errors.Is(err, store.ErrInvalidCategory), errors.Is(err, ingest.ErrMissingUser):
		code = fiber.StatusBadRequest
		message = err.Error()
	default:
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
