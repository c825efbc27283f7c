// Package server assembles the workout API: database pool, migrations, token
// verification, services and the HTTP server, and runs it until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/workout/internal/logging"
	"github.com/dmitrijs2005/workout/internal/server/auth"
	"github.com/dmitrijs2005/workout/internal/server/config"
	"github.com/dmitrijs2005/workout/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/workout/internal/server/rest"
	"github.com/dmitrijs2005/workout/internal/server/services"
)

const migrationTimeout = 30 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	server      *rest.HTTPServer
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(c.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(c.DatabaseMaxIdleConns)

	rm := repomanager.NewPostgresRepositoryManager()

	keys := auth.NewKeySet(c.JWKSURL(),
		auth.WithHTTPClient(&http.Client{Timeout: c.JWKSFetchTimeout}),
		auth.WithMaxAge(c.JWKSMaxAge),
		auth.WithMinRefreshInterval(c.JWKSMinRefreshInterval),
		auth.WithLogger(logger.With("module", "jwks")),
	)
	verifier := auth.NewVerifier(keys, c.Issuer(), c.CognitoClientID)

	authn := services.NewAuthenticator(verifier, services.NewIdentityService(db, rm))
	messages := services.NewMessageService(db, rm)

	h := rest.NewHandler(authn, messages, logger, c.AllowedOrigins)
	srv := rest.NewHTTPServer(c.HTTPAddr, h.Router(), logger, c.ShutdownTimeout)

	return &App{config: c, logger: logger, db: db, repomanager: rm, server: srv}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// migrate applies schema migrations. The API still starts when the database
// is unreachable; requests that need it fail until it comes back.
func (app *App) migrate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, migrationTimeout)
	defer cancel()

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Warn(ctx, "Database initialization skipped", "error", err)
		return
	}
	app.logger.Info(ctx, "Database initialized successfully")
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "issuer", app.config.Issuer())

	app.initSignalHandler(ctx, cancelFunc)
	app.migrate(ctx)

	err := app.server.Run(ctx)

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "closing database", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
