// Programming Helper AI - learning platform server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/api"
	"github.com/Bogdusik/programming-helper-ai/internal/assess"
	"github.com/Bogdusik/programming-helper-ai/internal/catalog"
	"github.com/Bogdusik/programming-helper-ai/internal/chat"
	"github.com/Bogdusik/programming-helper-ai/internal/config"
	"github.com/Bogdusik/programming-helper-ai/internal/consent"
	"github.com/Bogdusik/programming-helper-ai/internal/gate"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/Bogdusik/programming-helper-ai/internal/middleware"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"github.com/Bogdusik/programming-helper-ai/internal/store"
	"github.com/Bogdusik/programming-helper-ai/internal/taskflow"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	tasks, err := catalog.Load(cfg.TasksSeedPath)
	if err != nil {
		slog.Error("Failed to load task catalog", "error", err)
		os.Exit(1)
	}
	if err := repo.SeedTasks(context.Background(), tasks); err != nil {
		slog.Error("Failed to seed task catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Task catalog ready", "tasks", len(tasks))

	consents, err := consent.NewStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize consent store", "error", err)
		os.Exit(1)
	}

	// Blocked status is answered from the users table; any fetch failure
	// degrades to loading rather than assuming "not blocked".
	blockSource := gate.BlockSourceFunc(func(ctx context.Context, userID string) (bool, error) {
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return false, err
		}
		if user == nil {
			return false, shared.Errorf(shared.KindNotFound, "user %s not found", userID)
		}
		return user.Blocked, nil
	})
	resolver := gate.NewBlockStatusResolver(blockSource, cfg.BlockCacheTTL)
	gatherer := gate.NewGatherer(repo, consents, resolver)

	// Chat and task attempt services.
	hub := chat.NewHub()
	var responder chat.Responder
	if cfg.ResponderAddr != "" {
		responder = chat.NewHTTPResponder(cfg.ResponderAddr)
		slog.Info("Assistant responder configured", "address", cfg.ResponderAddr)
	} else {
		slog.Info("Assistant responder disabled (RESPONDER_ADDR not set)")
	}
	chatService := chat.NewService(repo, responder, hub)

	invalidator := taskflow.NewInvalidator()
	statsCache := taskflow.NewStatsCache(repo, invalidator)
	coordinator := taskflow.NewCoordinator(repo, chatService, invalidator, cfg.AutoSendDelay)
	defer coordinator.Close()

	assessments := assess.NewService(repo, assess.DefaultBank())

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, cfg)
	healthHandler := api.NewHealthHandler(repo)
	onboardingHandler := api.NewOnboardingHandler(baseHandler, gatherer, consents, assessments, statsCache)
	taskHandler := api.NewTaskHandler(baseHandler, coordinator, statsCache)
	chatHandler := api.NewChatHandler(baseHandler, chatService)
	adminHandler := api.NewAdminHandler(baseHandler, resolver)
	wsHandler := chat.NewWebSocketHandler(chatService, hub)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else carries anonymous identity and the block gate.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment(), cfg.AdminUserIDs))
		r.Use(middleware.RequireNotBlocked(resolver))

		// REST routes are bounded; the websocket route below is not.
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))

			baseHandler.RegisterMe(r)
			onboardingHandler.RegisterRoutes(r)
			taskHandler.RegisterRoutes(r)
			chatHandler.RegisterRoutes(r)
			adminHandler.RegisterRoutes(r)
		})

		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taskflow.StartOrphanSweeper(ctx, repo, cfg.OrphanSweep.Interval, cfg.OrphanSweep.IdleTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
