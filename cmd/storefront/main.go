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

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/cache"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/images"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
	purgeEvery      = time.Hour
)

func main() {
	cfg := config.Load()
	cfg.MustServe()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("storefront_exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	gdb, err := db.Open(startCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}()

	store := repo.New(gdb)
	if err := store.Migrate(startCtx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod := events.NewProducer(cfg.KafkaBrokers)
		defer func() {
			if err := prod.Close(); err != nil {
				logger.Error("kafka_close_error", "error", err)
			}
		}()
		publisher = prod
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	catalog := &service.CatalogService{Repo: store, Events: publisher}

	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(startCtx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer closeRedis(logger, rdb)
		catalog.Cache = cache.NewFeatured(rdb)
		logger.Info("redis_enabled", "addr", cfg.RedisAddr)
	}

	if cfg.ESURL != "" {
		es, err := search.NewClient(startCtx, search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
		})
		if err != nil {
			return err
		}
		catalog.Index = search.NewIndex(es, search.DefaultIndex)
		logger.Info("search_enabled", "url", cfg.ESURL)
	}

	if cfg.MinIOEndpoint != "" {
		imgs, err := images.NewMinIOStore(startCtx, images.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return err
		}
		catalog.Images = imgs
		logger.Info("images_enabled", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
	}

	auth := &service.AuthService{
		Repo:          store,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		AdminEmails:   cfg.AdminEmails,
		Events:        publisher,
	}

	limiter := ratelimit.New(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	go limiter.Run(ctx.Done(), time.Minute)
	go purgeTokens(ctx, auth)

	deps := &httpserver.Deps{
		AuthHandler:      &httpserver.AuthHTTP{Svc: auth, CookieSecure: cfg.CookieSecure},
		CatalogHandler:   &httpserver.CatalogHTTP{Svc: catalog},
		CartHandler:      &httpserver.CartHTTP{Svc: &service.CartService{Repo: store, Events: publisher}},
		CouponHandler:    &httpserver.CouponHTTP{Svc: &service.CouponService{Repo: store}},
		PaymentHandler:   &httpserver.PaymentHTTP{Svc: &service.OrderService{Repo: store, Events: publisher}},
		AnalyticsHandler: &httpserver.AnalyticsHTTP{Svc: &service.AnalyticsService{Repo: store}},
		JWTSecret:        cfg.JWTAccessSecret,
		AuthLimiter:      limiter,
		Ready:            store.Ping,
	}
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.CookieSecure
		deps.CSRF = &c
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           httpserver.New(logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting_down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	logger.Info("shutdown_complete")
	return nil
}

func purgeTokens(ctx context.Context, auth *service.AuthService) {
	l := logging.FromContext(ctx)
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := auth.PurgeExpiredTokens(ctx)
			if err != nil {
				l.Warn("purge_refresh_tokens_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("purged_refresh_tokens", "count", n)
			}
		}
	}
}

func closeRedis(l *slog.Logger, rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		l.Error("redis_close_error", "error", err)
	}
}
