// Command api serves the pickup sports HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pickupsports/config"
	"pickupsports/internal/adapters/auth"
	delivery "pickupsports/internal/delivery/http"
	"pickupsports/internal/delivery/http/controllers"
	"pickupsports/internal/domain"
	"pickupsports/internal/repository/memory"
	mongostore "pickupsports/internal/repository/mongo"
	"pickupsports/internal/repository/postgres"
	"pickupsports/internal/services"
)

// @title Pickup Sports API
// @version 1.0
// @description Create pickup events and check in or out of them.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventRepo, userRepo, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	jwt := auth.NewJWT(cfg.JWTSecret)
	membership := services.NewMembershipService(eventRepo, userRepo, logger, services.MembershipConfig{
		Timeout: cfg.RequestTimeout,
		Retry: services.RetryPolicy{
			MaxAttempts:     cfg.RetryAttempts,
			InitialInterval: cfg.RetryInitialInterval,
		},
		ReconcileGrace: cfg.ReconcileGrace,
	})
	authSvc := services.NewAuthService(userRepo, auth.NewBcryptHasher(cfg.BcryptCost), jwt, cfg.JWTExpiry)
	userSvc := services.NewUserService(userRepo, eventRepo)

	mux := delivery.NewRouter(
		controllers.NewEventController(logger, membership),
		controllers.NewAuthController(logger, authSvc),
		controllers.NewUserController(logger, userSvc),
		jwt,
	)

	if cfg.ReconcileInterval > 0 {
		go services.RunReconciler(ctx, membership, cfg.ReconcileInterval, logger)
		logger.Info("reconciler started", "interval", cfg.ReconcileInterval.String())
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      delivery.Wrap(logger, cfg.CORSAllowedOrigins, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.StoreDriver, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.EventRepository, domain.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.Migrate(pingCtx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		logger.Info("connected to postgres")
		return postgres.NewEventRepository(db), postgres.NewUserRepository(db), func() { _ = db.Close() }, nil

	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongodriver.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		disconnect := func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			_ = client.Disconnect(dctx)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			disconnect()
			return nil, nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(connectCtx, db); err != nil {
			disconnect()
			return nil, nil, nil, err
		}
		logger.Info("connected to mongo", "database", cfg.MongoDatabase)
		return mongostore.NewEventRepository(db), mongostore.NewUserRepository(db), disconnect, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewEventRepository(), memory.NewUserRepository(), func() {}, nil
	}
}
