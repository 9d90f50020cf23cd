// Package server wires configuration, storage, services and the HTTP and gRPC
// listeners into one runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/config"
	"github.com/dmitrijs2005/gophblog/internal/server/httpapi"
	"github.com/dmitrijs2005/gophblog/internal/server/media"
	"github.com/dmitrijs2005/gophblog/internal/server/metrics"
	"github.com/dmitrijs2005/gophblog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophblog/internal/server/seed"
	"github.com/dmitrijs2005/gophblog/internal/server/services"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	gs "github.com/dmitrijs2005/gophblog/internal/server/grpc"
)

const healthInterval = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	repos   repomanager.RepositoryManager
	metrics *metrics.Metrics

	Users *services.UserService
	Posts *services.PostService
	Auth  *services.AuthService
}

// openDB is swapped in tests.
var openDB = repomanager.Open

// newPresigner is swapped in tests.
var newPresigner = func(ctx context.Context, cfg config.S3Config) (media.Presigner, error) {
	return media.NewS3Presigner(ctx, cfg)
}

// NewApp connects to the database and builds the services. The caller owns
// the returned App and must Close it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	hasher, err := auth.NewBcryptHasher(c.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	presigner, err := newPresigner(ctx, c.S3)
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	db, err := openDB(ctx, c.Database.DSN, c.Database.ConnectTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	us := services.NewUserService(db, repos, hasher)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		repos:   repos,
		metrics: metrics.New(),
		Users:   us,
		Posts:   services.NewPostService(db, repos, presigner),
		Auth:    services.NewAuthService(us, hasher, auth.NewTokenIssuer(c.JWT.Secret, c.JWT.ExpiresIn)),
	}, nil
}

func (app *App) Close() error {
	return app.db.Close()
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	app.logger.Info(ctx, "Applying migrations...")
	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Seed loads the sample users and posts.
func (app *App) Seed(ctx context.Context) (seed.Result, error) {
	return seed.Run(ctx, app.Users, app.Posts, app.logger)
}

func (app *App) httpServer() *httpapi.Server {
	return httpapi.New(httpapi.Options{
		Addr:      app.config.HTTP.Addr,
		Prefix:    app.config.HTTP.Prefix,
		CORS:      app.config.HTTP.CORS,
		RateLimit: rate.Limit(app.config.Auth.RateLimit),
		RateBurst: app.config.Auth.RateBurst,
	}, httpapi.Deps{
		Auth:    app.Auth,
		Users:   app.Users,
		Posts:   app.Posts,
		DB:      app.db,
		Metrics: app.metrics,
		Logger:  app.logger,
	})
}

// Run serves HTTP, and gRPC health when configured, until ctx is cancelled
// or the process receives SIGINT, SIGTERM or SIGQUIT. A listener failure
// stops the others.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.httpServer().Run(gctx)
	})

	if app.config.GRPC.Addr != "" {
		g.Go(func() error {
			return gs.NewGRPCServer(app.config.GRPC.Addr, app.logger, app.db, healthInterval).Run(gctx)
		})
	}

	err := g.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return err
}
