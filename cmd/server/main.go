package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/bloks-dev/backend/internal/auth"
	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/config"
	"github.com/bloks-dev/backend/internal/database"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/logging"
	"github.com/bloks-dev/backend/internal/submissions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("bloks-api", "info").Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("bloks-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fatal := func(msg string, err error) {
		logger.Error(msg, "err", err)
		os.Exit(1)
	}

	// Initialize database
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		fatal("failed to run migrations", err)
	}
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer db.Close()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		fatal("failed to load catalog", err)
	}
	policy, err := submissions.ParseDuplicatePolicy(cfg.DuplicatePolicy)
	if err != nil {
		fatal("invalid duplicate policy", err)
	}

	// Initialize services
	gamStore := gamification.NewStore(db)
	gamService, err := gamification.NewService(gamStore, gamStore, cat, gamification.WithLogger(logger))
	if err != nil {
		fatal("failed to build badge rules", err)
	}
	subService := submissions.NewService(submissions.NewStore(db), gamService, gamService, cat,
		submissions.WithDuplicatePolicy(policy),
		submissions.WithLogger(logger),
	)

	if err := gamService.SeedBadges(ctx); err != nil {
		fatal("failed to seed badges", err)
	}
	if err := subService.SeedTracks(ctx); err != nil {
		fatal("failed to seed tracks", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth())
	if err != nil {
		fatal("failed to init auth", err)
	}

	if err := gamService.StartStreakReconciler(ctx, cfg.ReconcileInterval, cfg.ReconcileBatch); err != nil {
		fatal("failed to start streak reconciler", err)
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	api := r.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware(verifier))

	gamification.NewHandler(gamService, subService).Routes(api, protected)
	submissions.NewHandler(subService).Routes(api, protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := `{"status":"ok"}`
		if err := db.PingContext(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body = `{"status":"degraded"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID", "X-Request-Id"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "duplicate_policy", string(policy))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
