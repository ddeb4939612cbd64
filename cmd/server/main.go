package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"threadscout/backend/internal/api"
	"threadscout/backend/internal/config"
	"threadscout/backend/internal/engine"
	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/mcp"
	"threadscout/backend/internal/repository"
	"threadscout/backend/internal/services"
)

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger.Info("Starting Threadscout engagement engine")

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	// Initialize repository layer
	runStore := repository.NewPostgresRunStore(dbPool)
	processedStore := repository.NewPostgresProcessedStore(dbPool)
	definitionStore := repository.NewPostgresDefinitionStore(dbPool)
	workspaceStore := repository.NewPostgresWorkspaceStore(dbPool)

	// Initialize external capability clients
	redditClient := services.NewRedditClient(
		cfg.Reddit.BaseURL, cfg.Reddit.TokenURL,
		cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent)
	llmClient := services.NewLLMClient(
		cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
		cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)

	// Initialize the execution engine
	executor := engine.NewExecutor(runStore, processedStore, redditClient, llmClient, llmClient, logger, engine.Options{
		MaxConcurrentCalls: cfg.Engine.MaxConcurrentCalls,
		RecordDryRuns:      cfg.Engine.RecordDryRuns,
	})
	pool := engine.NewPool(executor, cfg.Engine.Workers, cfg.Engine.QueueSize, logger)

	logger.Info("Engine initialized: workers=%d queue=%d", cfg.Engine.Workers, cfg.Engine.QueueSize)

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("threadscout"))

	// Mount REST API handlers
	apiServer := api.NewServer(runStore, definitionStore, workspaceStore, pool, logger)
	apiServer.RegisterRoutes(e.Group("/api/v1"))
	e.GET("/healthz", apiServer.HandleHealth)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(pool, runStore, definitionStore, workspaceStore)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting on %s", addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received: %v", sig)

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error: %v", err)
			}
		}

		// Drain queued runs before exiting; in-flight runs are canceled if
		// the deadline passes.
		if err := pool.Shutdown(ctx); err != nil {
			logger.Error("Run pool shutdown error: %v", err)
		}

		logger.Info("Server stopped gracefully")
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
