// Package main is the entry point for the Tripdesk API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/tripdesk/backend/internal/auth"
	"github.com/tripdesk/backend/internal/config"
	"github.com/tripdesk/backend/internal/handler"
	"github.com/tripdesk/backend/internal/kvstore"
	"github.com/tripdesk/backend/internal/middleware"
	"github.com/tripdesk/backend/internal/reminder"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/internal/service"
	"github.com/tripdesk/backend/internal/splitwise"
	"github.com/tripdesk/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A local .env file overlays the environment in development; production
	// deployments set real environment variables and ship no .env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// log/slog with a JSON handler writes machine-readable output suitable
	// for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// Bring the schema up to date. goose drives database/sql, so it gets its
	// own short-lived connection next to the pgx pool.
	if err := migrate(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// --- Redis ------------------------------------------------------------
	// Redis backs the TTL store for password-reset codes and OAuth states.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.Info("redis connection established")

	// --- Dependencies -----------------------------------------------------
	users := repo.NewUserRepo(pool)
	departments := repo.NewDepartmentRepo(pool)
	trips := repo.NewTripRepo(pool)
	memberships := repo.NewMembershipRepo(pool)
	polls := repo.NewPollRepo(pool)
	votes := repo.NewVoteRepo(pool)

	store := kvstore.NewRedis(rdb)
	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	provider := splitwise.New(splitwise.Config{
		ConsumerKey:    cfg.SplitwiseConsumerKey,
		ConsumerSecret: cfg.SplitwiseConsumerSecret,
		RedirectURL:    cfg.SplitwiseRedirectURL,
		Timeout:        cfg.ProviderTimeout,
	})

	authService := service.NewAuthService(users, departments, issuer, store, service.NewLogOTPSender(logger), logger)
	tripService := service.NewTripService(trips)
	membershipService := service.NewMembershipService(trips, memberships, users, provider, logger)
	groupService := service.NewGroupService(trips, memberships, users, provider, logger)
	pollService := service.NewPollService(polls)
	voteService := service.NewVoteService(users, polls, votes)
	expenseService := service.NewExpenseService(users, provider)
	accountService := service.NewAccountService(users, provider, store)

	server := handler.NewServer(
		authService, tripService, membershipService, groupService,
		pollService, voteService, expenseService, accountService,
		logger,
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body-size limit. The JWT auth middleware is applied inside
	// Routes, to the protected route group only.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", server.Routes(middleware.NewAuthHandler(issuer)))

	// --- Reminder sweep ---------------------------------------------------
	// The daily sweep is the only background work; it stops with the server.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := reminder.New(trips, memberships, reminder.LogNotifier{Log: logger}, logger)
	go sweeper.Run(sweepCtx)

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies all pending goose migrations from the embedded FS.
func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return err
	}
	return nil
}
