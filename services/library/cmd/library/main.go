package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"booklibrary/internal/metrics"
	"booklibrary/internal/ratelimit"
	"booklibrary/internal/security"
	"booklibrary/internal/util"
	"booklibrary/pkg/auth"
	"booklibrary/pkg/storage"
	"booklibrary/pkg/store"
	"booklibrary/services/library/internal/app"
	"booklibrary/services/library/internal/config"
	"booklibrary/services/library/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("library exited", "err", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until shutdown. Deferred closes run before it returns.
func run() error {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("parse session TTL: %w", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	m := metrics.New()

	dataStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init store %s: %w", cfg.StoreDriver, err)
	}
	files, err := openFileStore(cfg)
	if err != nil {
		return fmt.Errorf("init file storage %s: %w", cfg.StorageDriver, err)
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, sessionTTL, auth.TokenOptions{Issuer: cfg.JWTIssuer})
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	appCore, err := app.New(app.Config{
		Store:  dataStore,
		Files:  m.InstrumentFileStore(files, cfg.StorageDriver),
		Tokens: tokens,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	srvCfg := server.Config{
		App:                appCore,
		Metrics:            m,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     trusted,
	}
	if cfg.RedisAddr != "" {
		loginLimiter, registerLimiter, err := openLimiters(cfg)
		if err != nil {
			return fmt.Errorf("init rate limiters: %w", err)
		}
		defer loginLimiter.Close()
		defer registerLimiter.Close()
		srvCfg.LoginLimiter = loginLimiter
		srvCfg.RegisterLimiter = registerLimiter

		alerter := security.NewRedisAuditAlerter(cfg.RedisAddr, cfg.RedisPassword, "booklibrary:alerts")
		defer alerter.Close()
		srvCfg.Alerter = alerter
	} else {
		logger.Warn("redisAddr not set, rate limiting and security alerts are disabled")
	}
	httpServer, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr, "store", cfg.StoreDriver, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func openStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func openFileStore(cfg config.FileConfig) (storage.FileStore, error) {
	if cfg.StorageDriver == config.StorageDriverMinio {
		return storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewLocalStore(cfg.UploadDir)
}

func openLimiters(cfg config.FileConfig) (*ratelimit.FixedWindowLimiter, *ratelimit.FixedWindowLimiter, error) {
	login, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword,
		"booklibrary:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
	if err != nil {
		return nil, nil, err
	}
	register, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword,
		"booklibrary:ratelimit:register", cfg.RegisterRateLimitPerMinute, time.Minute)
	if err != nil {
		_ = login.Close()
		return nil, nil, err
	}
	return login, register, nil
}
