package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/auth"
	"github.com/papertrade/market-engine/internal/config"
	"github.com/papertrade/market-engine/internal/metrics"
	"github.com/papertrade/market-engine/internal/pricing"
	"github.com/papertrade/market-engine/internal/store"
	"github.com/papertrade/market-engine/internal/trade"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.UsingDevSecret() {
		slog.Warn("JWT_SECRET not set, using development secret")
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		if err := store.Migrate(context.Background(), pool); err != nil {
			slog.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Price engine ---
	engine := pricing.NewEngine(nil, pricing.WithObserver(func(symbol string, state decimal.Decimal) {
		metrics.TickerPrice.WithLabelValues(symbol).Set(state.InexactFloat64())
	}))

	// --- WebSocket hub ---
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	wsHub := trade.NewWSHub()
	go wsHub.Run(ctx)

	// --- Services ---
	tokens := auth.NewTokens(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authSvc := auth.NewService(st, auth.NewBcryptAuthenticator(0), tokens, cfg.StartingBalance)
	tradeSvc := trade.NewService(st, engine, nil, wsHub, trade.WithHistoryLimit(cfg.HistoryLimit))

	r := newRouter(cfg, routes{
		auth:   authSvc,
		tokens: tokens,
		trade:  tradeSvc,
		ws:     wsHub,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("papertrade listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down papertrade...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stop()
	fmt.Println("papertrade stopped")
}
