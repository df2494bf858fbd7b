package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/notify"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
	"github.com/iliyamo/event-ticketing/internal/storage"
)

func serveCommand() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(parent context.Context, migrateFirst bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(dbOptions(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if migrateFirst {
		if err := database.MigrateUp(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	notifier, err := notify.New(cfg, log)
	if err != nil {
		return err
	}
	m := metrics.New()

	events := repository.NewEventRepo(db)
	eventSvc := service.NewEventService(events, store, m, log, service.EventServiceConfig{
		BaseURL:   cfg.BaseURL,
		QRSize:    cfg.QRSize,
		QRWorkers: cfg.QRWorkers,
	})
	regSvc := service.NewRegistrationService(repository.NewTicketRepo(db), notifier, m, log)
	dashSvc := service.NewDashboardService(events, repository.NewCertificateRepo(db))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log, m))
	// Multipart overhead on top of the design file itself.
	e.Use(echomw.BodyLimit(strconv.FormatInt(cfg.MaxUploadBytes+1<<20, 10)))

	router.RegisterRoutes(e, db, m)
	if local, ok := store.(*storage.LocalStore); ok {
		router.RegisterStatic(e, local.Root())
	}
	router.RegisterAuth(e, handler.NewAuthHandler(cfg,
		repository.NewUserRepo(db), repository.NewTokenRepo(db), log), cfg.JWTSecret)
	router.RegisterStaff(e,
		handler.NewEventHandler(eventSvc, log, cfg.RequestTimeout, cfg.MaxUploadBytes),
		handler.NewDashboardHandler(dashSvc, log, cfg.RequestTimeout),
		cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewRegistrationHandler(regSvc, log, cfg.RequestTimeout),
		rateLimiter(log))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newStore(cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3Store(storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			PublicURL: cfg.S3.PublicURL,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	}
	return storage.NewLocalStore(cfg.PublicDir)
}

// rateLimiter returns the registration limiter, or nil when it is disabled
// or Redis is unreachable.
func rateLimiter(log *zap.Logger) echo.MiddlewareFunc {
	rl := config.LoadRateLimitConfig()
	if !rl.Enabled {
		return nil
	}
	rdb := config.NewRedisClient(config.RedisOptions())
	if rdb == nil {
		log.Warn("redis unavailable, registration rate limit disabled")
		return nil
	}
	return middleware.NewTokenBucket(rl, rdb, log)
}
