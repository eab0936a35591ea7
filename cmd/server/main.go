package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"h1nted/internal/auth"
	"h1nted/internal/config"
	"h1nted/internal/handler"
	"h1nted/internal/handler/sse"
	"h1nted/internal/middleware"
	"h1nted/internal/repository/postgres"
	"h1nted/internal/service"
	"h1nted/internal/service/formula"
	"h1nted/internal/service/grok"
	"h1nted/internal/service/storage"
	"h1nted/internal/service/usage"
	"h1nted/internal/service/xai"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logFile io.Writer
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}

	logger := config.NewLogger(cfg.Environment, logFile)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"model", cfg.XAI.Model,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.SupabaseDBURL, logger); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(),
		Logger: logger,
	}
	chatRepo := postgres.NewChatMessageRepository(repoConfig)
	reportRepo := postgres.NewSavedReportRepository(repoConfig)
	usageRepo := postgres.NewUsageRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Grok pipeline
	prompts, err := grok.LoadPrompts()
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	formulas := formula.NewLoader(storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey), logger)
	notifier := usage.NewNotifier(cfg.Usage.IncrementURL, cfg.Usage.NotifyTimeout, nil, logger)

	xaiClient := xai.NewClient(xai.Config{
		APIKey:         cfg.XAI.APIKey,
		BaseURL:        cfg.XAI.BaseURL,
		Model:          cfg.XAI.Model,
		Retries:        cfg.XAI.Retries,
		Budget:         cfg.XAI.Budget(),
		AttemptTimeout: cfg.XAI.AttemptTimeout(),
		BackoffBase:    cfg.XAI.BackoffBase(),
		Temperature:    cfg.XAI.Temperature,
		MaxTokens:      cfg.XAI.MaxTokens,
	}, nil, logger)

	grokService := grok.NewService(
		grok.NewValidator(cfg.ImageMaxCount, cfg.ImageMaxBytes, cfg.DefaultLanguage),
		grok.NewAssembler(chatRepo, reportRepo, formulas, prompts, grok.AssemblerConfig{
			HistoryWindow:          cfg.HistoryWindow,
			MaxImages:              cfg.ImageMaxCount,
			ProfilingFormulaBucket: cfg.ProfilingFormulaBucket,
			ProfilingFormulaKey:    cfg.ProfilingFormulaKey,
			CDRsFormulaBucket:      cfg.CDRsFormulaBucket,
			CDRsFormulaKey:         cfg.CDRsFormulaKey,
		}, logger),
		xaiClient,
		grok.NewSink(txManager, chatRepo, reportRepo, notifier, prompts, cfg.AutosaveFolder),
		logger,
	)

	// Other services
	reportService := service.NewSavedReportService(reportRepo, logger)
	historyService := service.NewChatHistoryService(chatRepo, cfg.HistoryWindow, logger)
	usageService := usage.NewService(usageRepo, usage.Costs{
		Chat:      cfg.Usage.CostChat,
		Image:     cfg.Usage.CostImage,
		CDRs:      cfg.Usage.CostCDRs,
		Profiling: cfg.Usage.CostProfiling,
	}, logger)

	// Handlers
	grokHandler := handler.NewGrokHandler(grokService, &sse.Config{HeartbeatInterval: cfg.SSEHeartbeatInterval}, logger)
	reportHandler := handler.NewSavedReportHandler(reportService, logger)
	historyHandler := handler.NewHistoryHandler(historyService, logger)
	usageHandler := handler.NewUsageHandler(usageService, logger)

	logger.Info("services initialized")

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health(pool))

	mux.HandleFunc("POST /api/ai/grok-3", grokHandler.Complete)

	mux.HandleFunc("GET /api/saved-chats", reportHandler.List)
	mux.HandleFunc("POST /api/saved-chats", reportHandler.Create)
	mux.HandleFunc("DELETE /api/saved-chats/{id}", reportHandler.Delete)

	mux.HandleFunc("GET /api/profiles/{id}/messages", historyHandler.Recent)

	mux.HandleFunc("POST /api/usage/increment", usageHandler.Increment)
	mux.HandleFunc("GET /api/usage", usageHandler.Today)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Trace → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery()(h)
	h = middleware.Trace(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TraceHeader},
		ExposedHeaders:   []string{middleware.TraceHeader, "x-branch", "x-history-count", "x-cdrs-formula", "x-prof-sig"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := shutdown(server, notifier, cfg.XAI.Budget()); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// shutdown drains in-flight requests, then waits for usage notifications
func shutdown(server *http.Server, notifier *usage.Notifier, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	var result *multierror.Error
	if err := server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http server: %w", err))
	}

	done := make(chan struct{})
	go func() {
		notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		result = multierror.Append(result, fmt.Errorf("usage notifications: %w", ctx.Err()))
	}

	return result.ErrorOrNil()
}
