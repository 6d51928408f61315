package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iudanet/productreviews/internal/config"
	"github.com/iudanet/productreviews/internal/crypto"
	"github.com/iudanet/productreviews/internal/server"
	"github.com/iudanet/productreviews/internal/server/jwt"
	"github.com/iudanet/productreviews/internal/server/metrics"
	"github.com/iudanet/productreviews/internal/server/middleware"
	"github.com/iudanet/productreviews/internal/server/session"
	"github.com/iudanet/productreviews/internal/server/storage"
	"github.com/iudanet/productreviews/internal/server/storage/mongo"
	"github.com/iudanet/productreviews/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("storage opened", slog.String("driver", cfg.StorageDriver))

	sessions, closeSessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()
	logger.Info("session store opened", slog.String("backend", cfg.SessionStore))

	tokens, err := jwt.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter := middleware.NewRateLimiter(middleware.DefaultPolicies(), logger, m)
	defer limiter.Stop()

	manager := session.NewManager(sessions, session.Config{
		TTL:    session.DefaultTTL,
		Secure: cfg.CookieSecure,
	}, logger)

	handler := server.NewRouter(server.RouterConfig{
		APIVersion:     cfg.APIVersion,
		BuildVersion:   Version,
		AllowedOrigins: cfg.AllowedOrigins,
		StoreTimeout:   cfg.StoreTimeout,
		TrustProxy:     cfg.TrustProxy,
	}, server.Deps{
		Logger:   logger,
		Storage:  store,
		Sessions: manager,
		Limiter:  limiter,
		Tokens:   tokens,
		Hasher:   crypto.NewPasswordHasher(crypto.HasherConfig{Cost: crypto.DefaultCost}),
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			slog.String("addr", srv.Addr),
			slog.String("api_version", cfg.APIVersion),
			slog.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		uri := cfg.Mongo.URI
		if uri == "" {
			uri = mongo.BuildURI(cfg.Mongo.Protocol, cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host)
		}

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		store, err := mongo.New(connectCtx, uri, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo storage: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return store, nil
	}
}

// openSessions создает хранилище сессий и функцию его закрытия
func openSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.SessionBolt:
		store, err := session.NewBoltStore(cfg.SessionBoltPath)
		if err != nil {
			return nil, nil, err
		}

		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepBolt(sweepCtx, store, logger)

		return store, func() {
			cancel()
			if err := store.Close(); err != nil {
				logger.Error("failed to close session store", slog.Any("error", err))
			}
		}, nil
	case config.SessionRedis:
		client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client), func() { client.Close() }, nil
	default:
		store := session.NewMemoryStore(time.Minute)
		return store, store.Stop, nil
	}
}

// sweepBolt периодически удаляет истекшие сессии из файла
func sweepBolt(ctx context.Context, store *session.BoltStore, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.RemoveExpired()
			if err != nil {
				logger.Error("failed to remove expired sessions", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.Debug("expired sessions removed", slog.Int("count", removed))
			}
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("Product Reviews API Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
