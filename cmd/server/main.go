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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gravitas/share-engine/internal/address"
	"github.com/gravitas/share-engine/internal/clock"
	"github.com/gravitas/share-engine/internal/config"
	"github.com/gravitas/share-engine/internal/curve"
	"github.com/gravitas/share-engine/internal/eventgate"
	"github.com/gravitas/share-engine/internal/limits"
	"github.com/gravitas/share-engine/internal/metrics"
	"github.com/gravitas/share-engine/internal/registry"
	"github.com/gravitas/share-engine/internal/settlement"
	"github.com/gravitas/share-engine/internal/store"
	"github.com/gravitas/share-engine/internal/store/migrations"
	"github.com/gravitas/share-engine/internal/trade"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		if err := migrations.Apply(ctx, pool); err != nil {
			slog.Error("database migration failed", "err", err)
			os.Exit(1)
		}
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.URL != "" {
			opt, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.Redis.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.Redis.CacheTTL)
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

	// --- Engine components ---
	programID, _ := cfg.ProgramKey() // validated by config.Load
	deriver := address.NewDeriver(programID)
	clk := clock.NewSystem()

	c, err := curve.New(cfg.Engine.BasePrice, cfg.Engine.Steepness)
	if err != nil {
		slog.Error("invalid curve", "err", err)
		os.Exit(1)
	}
	limiter := limits.NewTradeLimiter(
		decimal.NewFromInt(cfg.Limits.MaxTradeAmount),
		decimal.NewFromInt(cfg.Limits.MaxPerCreator),
		decimal.NewFromInt(cfg.Limits.MaxTotal),
	)

	engine, err := settlement.New(st, deriver,
		settlement.WithCurve(c),
		settlement.WithLimiter(limiter),
		settlement.WithClock(clk),
		settlement.WithLogger(logger),
	)
	if err != nil {
		slog.Error("settlement engine init failed", "err", err)
		os.Exit(1)
	}
	reg := registry.New(st, deriver, clk, logger)
	gate := eventgate.New(st, deriver, clk, logger)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run(ctx)

	svc := trade.NewService(engine, reg, gate, st, wsHub, cfg.FaucetMax())
	if cfg.FaucetMax() > 0 {
		slog.Warn("faucet enabled", "max_amount", cfg.FaucetMax())
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+trade.CallerHeader)
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"share-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for trade and event broadcasts; not under the
		// request timeout.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
			svc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("share-engine listening", "port", cfg.Server.Port, "program_id", programID.String(), "pool", engine.PoolAddress().String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down share-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("share-engine stopped")
}
