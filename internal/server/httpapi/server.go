// Package httpapi is the JSON HTTP surface of gophblog, built on echo.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/metrics"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	Register(ctx context.Context, in models.NewUser) (*services.AuthResponse, error)
	ResolveCaller(ctx context.Context, token string) (*models.User, error)
}

type UserAPI interface {
	FindAll(ctx context.Context, page models.Page) (*models.PageResult[models.PublicUser], error)
	FindOne(ctx context.Context, id int64) (*models.UserWithPosts, error)
	Update(ctx context.Context, caller *models.User, id int64, in models.UpdateUser) (*models.User, error)
	Remove(ctx context.Context, caller *models.User, id int64) error
}

type PostAPI interface {
	Create(ctx context.Context, caller *models.User, in models.NewPost) (*models.Post, error)
	FindAll(ctx context.Context, page models.Page) (*models.PageResult[*models.Post], error)
	FindByAuthor(ctx context.Context, authorID int64, page models.Page) (*models.PageResult[*models.Post], error)
	FindOne(ctx context.Context, id int64) (*models.Post, error)
	Update(ctx context.Context, caller *models.User, id int64, in models.UpdatePost) (*models.Post, error)
	Remove(ctx context.Context, caller *models.User, id int64) error
	PresignCoverUpload(ctx context.Context, caller *models.User, id int64) (*models.PresignedURL, error)
	PresignCoverDownload(ctx context.Context, id int64) (*models.PresignedURL, error)
}

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Addr      string
	Prefix    string
	CORS      bool
	RateLimit rate.Limit
	RateBurst int
}

type Deps struct {
	Auth    AuthAPI
	Users   UserAPI
	Posts   PostAPI
	DB      Pinger
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

type Server struct {
	opts    Options
	echo    *echo.Echo
	auth    AuthAPI
	users   UserAPI
	posts   PostAPI
	db      Pinger
	metrics *metrics.Metrics
	logger  logging.Logger
	limiter *RateLimiter
}

func New(opts Options, deps Deps) *Server {
	s := &Server{
		opts:    opts,
		echo:    echo.New(),
		auth:    deps.Auth,
		users:   deps.Users,
		posts:   deps.Posts,
		db:      deps.DB,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateBurst),
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	s.limiter.onLimited = func(c echo.Context) {
		s.metrics.RateLimited.WithLabelValues(routeOf(c)).Inc()
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = NewValidator()
	s.echo.HTTPErrorHandler = s.errorHandler

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.Use(s.recoverPanics, s.assignRequestID, s.logRequests, s.observe)
	if s.opts.CORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  []string{"*"},
			AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, requestIDHeader},
			ExposeHeaders: []string{requestIDHeader, "Retry-After"},
		}))
	}

	g := e.Group(prefixPath(s.opts.Prefix))
	limited := s.limiter.Middleware()

	g.GET("/healthz", s.health)
	g.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	g.POST("/auth/register", s.register, limited)
	g.POST("/auth/login", s.login, limited)
	g.GET("/auth/me", s.me, s.authenticate)

	g.GET("/users", s.listUsers)
	g.GET("/users/:id", s.getUser)
	g.PATCH("/users/:id", s.updateUser, s.authenticate)
	g.DELETE("/users/:id", s.deleteUser, s.authenticate)

	g.POST("/posts", s.createPost, s.authenticate)
	g.GET("/posts", s.listPosts)
	g.GET("/posts/my-posts", s.myPosts, s.authenticate)
	g.GET("/posts/:id", s.getPost)
	g.PATCH("/posts/:id", s.updatePost, s.authenticate)
	g.DELETE("/posts/:id", s.deletePost, s.authenticate)
	g.POST("/posts/:id/cover", s.uploadCover, s.authenticate)
	g.GET("/posts/:id/cover", s.downloadCover)
}

func prefixPath(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on opts.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.limiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		s.logger.Info(ctx, "HTTP server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) health(c echo.Context) error {
	if s.db != nil {
		if err := s.db.PingContext(c.Request().Context()); err != nil {
			s.logger.Warn(c.Request().Context(), "health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
