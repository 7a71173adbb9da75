package app

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

	"github.com/vadim/neo-chat/internal/auth"
	"github.com/vadim/neo-chat/internal/config"
	httpcontroller "github.com/vadim/neo-chat/internal/controller/http"
	"github.com/vadim/neo-chat/internal/database"
	"github.com/vadim/neo-chat/internal/docstore"
	chatdao "github.com/vadim/neo-chat/internal/domain/chat/dao"
	chatpolicy "github.com/vadim/neo-chat/internal/domain/chat/policy"
	"github.com/vadim/neo-chat/internal/domain/chat/scheduler"
	chatservice "github.com/vadim/neo-chat/internal/domain/chat/service"
	userdao "github.com/vadim/neo-chat/internal/domain/user/dao"
	userservice "github.com/vadim/neo-chat/internal/domain/user/service"
	"github.com/vadim/neo-chat/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	store docstore.Store
	pg    *pgxpool.Pool

	tokens *auth.TokenManager
	users  *userservice.Service
	chats  *chatpolicy.Policy

	// Scheduler draining the index repair queue
	scheduler *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	app.initDomains()

	// Register routes
	app.registerRoutes()

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure initializes the document store and the optional
// message archive database.
func (a *App) initInfrastructure(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case "firestore":
		fs, err := docstore.NewFirestore(ctx, a.cfg.Store.FirestoreProjectID, a.cfg.Store.FirestoreCredentials)
		if err != nil {
			return fmt.Errorf("connecting to firestore: %w", err)
		}
		a.store = fs
	case "memory", "":
		a.store = docstore.NewMemory()
	default:
		return fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}

	// The archive is optional: without a DSN statistics are unavailable
	// and conversations live only in the document store.
	if a.cfg.Database.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pg = pool
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains() {
	a.tokens = auth.NewTokenManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)

	// User domain
	userStore := userdao.NewUserStore(a.store)
	userChats := chatdao.NewUserChatsStore(a.store)
	provider := auth.NewLocal(a.store)
	a.users = userservice.New(provider, userStore, userChats, a.logger)

	// Chat domain
	conversations := chatdao.NewConversationStore(a.store)
	updater := chatservice.NewUpdater(userChats, a.logger)

	var archiver chatservice.Archiver
	var stats chatpolicy.StatisticsRepository
	if a.pg != nil {
		archive := chatdao.NewArchivePostgres(a.pg)
		archiver = archive
		stats = archive
	}

	engine := chatservice.NewEngine(conversations, updater, archiver, chatservice.Config{
		DeliveredDelay: a.cfg.Sync.DeliveredDelay,
		SeenDelay:      a.cfg.Sync.SeenDelay,
		TypingExpiry:   a.cfg.Sync.TypingExpiry,
	}, a.logger)

	a.chats = chatpolicy.New(engine, conversations, userChats, userStore, stats)

	if a.cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(updater, scheduler.Config{
			Interval: a.cfg.Scheduler.Interval,
		}, a.logger)
	}
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	swaggerHandler := httpcontroller.NewSwaggerHandler("Neo-Chat API", OpenAPISpec)
	swaggerHandler.RegisterRoutes(a.router)

	uploader := storage.NewS3Storage(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		authHandler := httpcontroller.NewAuthHandler(a.users, a.tokens)
		authHandler.RegisterRoutes(r)

		// Websocket auth comes from a query parameter, so the route
		// stays outside the bearer middleware.
		wsHandler := httpcontroller.NewWSHandler(a.chats, a.tokens, a.logger)
		wsHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(a.tokens))

			userHandler := httpcontroller.NewUserHandler(a.users)
			userHandler.RegisterRoutes(r)

			chatHandler := httpcontroller.NewChatHandler(a.chats)
			chatHandler.RegisterRoutes(r)

			mediaHandler := httpcontroller.NewMediaHandler(uploader, a.logger)
			mediaHandler.RegisterRoutes(r)
		})
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.pg != nil {
		if err := a.pg.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	// Start scheduler if enabled
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	// Stop scheduler
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.pg != nil {
		a.pg.Close()
	}
	if closer, ok := a.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}
