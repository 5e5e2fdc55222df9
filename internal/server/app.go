// Package server initializes and runs the batch print server: database,
// migrations, remote object store, upload and merge services, HTTP API,
// and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/notify"
	"github.com/printbatch/printbatch/internal/server/config"
	"github.com/printbatch/printbatch/internal/server/httpapi"
	"github.com/printbatch/printbatch/internal/server/repositories/repomanager"
	"github.com/printbatch/printbatch/internal/server/services"
	"github.com/printbatch/printbatch/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	store  *storage.GitHubStore
	api    *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store := storage.NewGitHubStore(storage.Config{
		Token:      c.GitHubToken,
		Repository: c.GitHubRepository,
		RetryBase:  c.GitHubRetryBase,
	}, logger)

	sink := notify.NewSMTPSink(notify.Config{
		Host:      c.SMTPHost,
		Port:      c.SMTPPort,
		Username:  c.SMTPUsername,
		Password:  c.SMTPPassword,
		From:      c.SMTPFrom,
		To:        c.SMTPTo,
		RetryBase: c.SMTPRetryBase,
	}, logger)

	uploadsRepo := rm.Uploads(db)
	usersRepo := rm.Users(db)

	uploadSvc := services.NewUploadService(store, uploadsRepo, logger)
	mergeSvc := services.NewMergeService(store, uploadsRepo, services.NewResultCache(), sink, logger)

	api := httpapi.NewServer(uploadSvc, mergeSvc, usersRepo, store, logger)

	return &App{config: c, logger: logger, db: db, store: store, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// probeStorage checks the remote store on startup. Both the README seed
// and the connectivity probe are non-fatal; the service starts degraded
// and the health endpoint reports the state.
func (app *App) probeStorage(ctx context.Context) {
	if err := app.store.Init(ctx); err != nil {
		app.logger.Warn(ctx, "storage init skipped", "error", err)
	}
	if app.store.TestConnection(ctx) {
		info, err := app.store.RepositoryInfo(ctx)
		if err != nil {
			app.logger.Warn(ctx, "storage info unavailable", "error", err)
			return
		}
		app.logger.Info(ctx, "storage connected", "info", info)
	} else {
		app.logger.Warn(ctx, "storage unreachable, uploads will fail until it recovers")
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)
	app.probeStorage(ctx)

	app.api.Start(app.config.EndpointAddrHTTP)

	<-ctx.Done()

	app.logger.Info(ctx, "Shutting down...")
	if err := app.api.Stop(); err != nil {
		app.logger.Error(ctx, "http shutdown error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
