// Package httpapi exposes the ranking host operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/roach88/toplist/internal/gateway"
	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/session"
	"github.com/roach88/toplist/internal/store"
)

// Ranker is the slice of *session.Manager the API drives.
type Ranker interface {
	StartRanking(ctx context.Context, userID string) (session.Result, error)
	Resume(ctx context.Context, userID string) (session.Result, error)
	Cancel(ctx context.Context, userID string) (session.Result, error)
	Current(ctx context.Context, userID string) (rank.Comparison, error)
	Progress(ctx context.Context, userID string) (rank.Progress, error)
}

// Catalog is the read side of the game catalog.
type Catalog interface {
	SearchGames(ctx context.Context, q store.GameQuery) ([]store.Game, error)
	UserGames(ctx context.Context, userID string) ([]store.Game, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Ranker   Ranker
	Mailbox  *gateway.Mailbox
	TopLists session.TopListReader

	// Catalog, if set, backs /api/games and /api/users/:user/games.
	Catalog Catalog

	// Metrics, if set, is served on /metrics.
	Metrics http.Handler

	// Health, if set, backs /healthz.
	Health func(ctx context.Context) error

	Logger *slog.Logger
}

// Server is the fiber application.
type Server struct {
	app      *fiber.App
	deps     Deps
	validate *validator.Validate
	logger   *slog.Logger
}

// New builds the app and registers every route.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		deps:     deps,
		validate: validator.New(),
		logger:   logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "toplist",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())

	s.app.Get("/healthz", s.healthz)
	if deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}
	s.RegisterRoutes(s.app.Group("/api/ranking"))
	if deps.Catalog != nil {
		s.app.Get("/api/games", s.searchGames)
		s.app.Get("/api/users/:user/games", s.userGames)
	}
	return s
}

// RegisterRoutes mounts the ranking routes on r.
func (s *Server) RegisterRoutes(r fiber.Router) {
	r.Post("/start", s.start)
	r.Post("/answer", s.answer)
	r.Post("/resume", s.resume)
	r.Post("/cancel", s.cancel)
	r.Get("/:user/prompt", s.prompt)
	r.Get("/:user/progress", s.progress)
	r.Get("/:user/top", s.top)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) healthz(c *fiber.Ctx) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(errorBody(fiber.StatusServiceUnavailable, "UNHEALTHY", err.Error()))
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleError maps errors to the response envelope.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody(fe.Code, "HTTP", fe.Message))
	}

	status := StatusFor(err)
	code := string(rank.KindOf(err))
	if code == "" {
		code = "INTERNAL"
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(errorBody(status, code, err.Error()))
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch rank.KindOf(err) {
	case rank.KindInvalidInput:
		return fiber.StatusBadRequest
	case rank.KindNoActiveSession:
		return fiber.StatusNotFound
	case rank.KindSourceUnavailable, rank.KindStorage, rank.KindStorageConflict:
		return fiber.StatusServiceUnavailable
	case rank.KindDelivery:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
