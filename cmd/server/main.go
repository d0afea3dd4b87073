package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"loom/internal/auth"
	"loom/internal/capabilities"
	"loom/internal/config"
	"loom/internal/handler"
	"loom/internal/handler/sse"
	"loom/internal/middleware"
	"loom/internal/repository/postgres"
	chatsvc "loom/internal/service/chat"
	"loom/internal/service/ingest"
	"loom/internal/service/reasoning"
	anthropicProvider "loom/internal/service/reasoning/providers/anthropic"
	scriptProvider "loom/internal/service/reasoning/providers/script"
	"loom/internal/service/retrieval"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	// Create table names and apply schema
	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.Migrate(ctx, pool, tables, cfg.EmbeddingDims); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	logger.Info("database ready", "table_prefix", cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	threadRepo := postgres.NewThreadRepository(repoConfig)
	turnRepo := postgres.NewTurnRepository(repoConfig)
	documentRepo := postgres.NewDocumentRepository(repoConfig)
	chunkRepo := postgres.NewChunkRepository(repoConfig)

	// Initialize capability registry
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	// Setup reasoning provider
	factory := reasoning.NewFactory(cfg)
	factory.RegisterConstructor("anthropic", func(cfg *config.Config) (reasoning.Provider, error) {
		return anthropicProvider.NewProvider(cfg.AnthropicAPIKey)
	})
	factory.RegisterConstructor("script", func(cfg *config.Config) (reasoning.Provider, error) {
		return scriptProvider.NewProvider(), nil
	})

	provider, err := factory.GetProvider(cfg.DefaultProvider)
	if err != nil {
		log.Fatalf("Failed to setup reasoning provider: %v", err)
	}

	// The orchestrator depends on structured tool calls, so the configured
	// model must be known and tool-capable.
	if cfg.DefaultProvider == "anthropic" {
		caps, err := capabilityRegistry.GetModelCapabilities("anthropic", cfg.DefaultModel)
		if err != nil {
			log.Fatalf("Unknown model %q: %v", cfg.DefaultModel, err)
		}
		if !caps.SupportsTools {
			log.Fatalf("Model %q does not support tool use", cfg.DefaultModel)
		}
		cfg.Orchestrator.MaxTokens = caps.MaxOutput
	}
	invoker := reasoning.NewInvoker(provider, reasoning.InvokerConfig{
		StepTimeout:    cfg.Orchestrator.StepTimeout,
		RetryBaseDelay: cfg.Orchestrator.RetryBaseDelay,
		RetryAttempts:  cfg.Orchestrator.RetryAttempts,
	}, logger)

	// Retrieval and ingest
	embedder := retrieval.NewOpenAIEmbedder(cfg.EmbeddingsBaseURL, cfg.EmbeddingsAPIKey, cfg.EmbeddingsModel)
	gateway := retrieval.NewGateway(embedder, chunkRepo, cfg.Orchestrator.MinScore, logger)
	txManager := postgres.NewTransactionManager(pool)
	ingestService := ingest.NewService(documentRepo, chunkRepo, embedder, ingest.NewExtractorRegistry(), txManager, cfg.UploadDir, logger)

	// Conversation services
	orchestrator := chatsvc.NewOrchestrator(
		threadRepo,
		turnRepo,
		invoker,
		gateway,
		cfg.DefaultModel,
		cfg.Orchestrator,
		logger,
	)
	chatService := chatsvc.NewService(threadRepo, turnRepo, logger)

	// Create handlers
	chatHandler := handler.NewChatHandler(orchestrator, logger)
	streamHandler := handler.NewStreamHandler(orchestrator, sse.DefaultConfig(), logger)
	threadHandler := handler.NewThreadHandler(chatService, logger)
	documentHandler := handler.NewDocumentHandler(ingestService, logger)
	systemHandler := handler.NewSystemHandler(cfg, capabilityRegistry, logger)

	logger.Info("services initialized",
		"provider", cfg.DefaultProvider,
		"model", cfg.DefaultModel,
	)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", systemHandler.HealthCheck)

	// Model capabilities
	mux.HandleFunc("GET /api/models", systemHandler.GetModels)

	// Chat routes
	mux.HandleFunc("POST /api/chat", chatHandler.Chat)
	mux.HandleFunc("POST /api/chat/stream", streamHandler.ChatStream)

	// Thread routes
	mux.HandleFunc("POST /api/threads", threadHandler.CreateThread)
	mux.HandleFunc("GET /api/threads", threadHandler.ListThreads)
	mux.HandleFunc("GET /api/threads/{id}", threadHandler.GetThread)
	mux.HandleFunc("PATCH /api/threads/{id}", threadHandler.RenameThread)
	mux.HandleFunc("DELETE /api/threads/{id}", threadHandler.DeleteThread)
	mux.HandleFunc("GET /api/threads/{id}/turns", threadHandler.GetTranscript)
	mux.HandleFunc("GET /api/turns/{id}", threadHandler.GetTurn)

	// Document routes
	mux.HandleFunc("POST /api/documents", documentHandler.UploadDocument)
	mux.HandleFunc("GET /api/documents", documentHandler.ListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", documentHandler.GetDocument)
	mux.HandleFunc("POST /api/documents/{id}/reprocess", documentHandler.ReprocessDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", documentHandler.DeleteDocument)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	// Start server and wait for a shutdown signal
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}

		// Let in-flight document processing finish.
		ingestService.Wait()
	}
}
