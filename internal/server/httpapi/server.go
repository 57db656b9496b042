// Package httpapi is the HTTP transport: an echo server exposing the
// authentication, task, and user surfaces, translating service errors to
// transport status codes.
package httpapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
)

// UserService is the account surface the transport depends on.
type UserService interface {
	Register(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Authenticate(ctx context.Context, tokenString string) (*models.User, *auth.Claims, error)
	Refresh(ctx context.Context, claims *auth.Claims) (string, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Verify(ctx context.Context, userID, linkToken string) (bool, error)
	ResendVerification(ctx context.Context, userID string) error
	List(ctx context.Context, actor models.Actor) ([]*models.User, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.User, error)
	Update(ctx context.Context, actor models.Actor, id string, params services.UpdateUserParams) (*models.User, bool, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// TaskService is the task surface the transport depends on.
type TaskService interface {
	Create(ctx context.Context, actor models.Actor, params services.CreateTaskParams) (*models.Task, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Task, error)
	List(ctx context.Context, actor models.Actor, filter, sort string) ([]*models.Task, error)
	Update(ctx context.Context, actor models.Actor, id string, params services.UpdateTaskParams) (*models.Task, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.Task, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	UploadFile(ctx context.Context, actor models.Actor, id string, data []byte) (*models.Task, error)
	DownloadFile(ctx context.Context, actor models.Actor, id string) (string, error)
}

// Server wraps the echo engine and its bind address.
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer builds the echo engine with recovery and request logging and
// registers every route.
func NewServer(cfg *config.Config, logger logging.Logger, users UserService, tasks TaskService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	registerRoutes(e, logger, users, tasks)

	return &Server{echo: e, addr: cfg.EndpointAddrHTTP}
}

// Start runs the server until Shutdown. It returns http.ErrServerClosed on a
// clean shutdown.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func registerRoutes(e *echo.Echo, logger logging.Logger, users UserService, tasks TaskService) {
	registerAuthRoutes(e, logger, users)
	registerVerificationRoutes(e, logger, users)

	api := e.Group("", requireAuth(users))
	registerTaskRoutes(api, logger, tasks)
	registerUserRoutes(api, logger, users)
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info(c.Request().Context(), "request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start).String(),
			)
			return err
		}
	}
}
