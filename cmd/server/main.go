package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clearword/misread/internal/api"
	"github.com/clearword/misread/internal/culture"
	"github.com/clearword/misread/internal/detector"
	"github.com/clearword/misread/internal/pipeline"
	"github.com/clearword/misread/internal/reasoner"
	"github.com/clearword/misread/internal/tracing"
	"github.com/clearword/misread/internal/translator"
	"github.com/clearword/misread/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("misread service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("misread")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	apiKeyDefault := getEnv("OPENROUTER_API_KEY", "")
	baseURLDefault := getEnv("OPENROUTER_BASE_URL", reasoner.DefaultBaseURL)
	modelDefault := getEnv("OPENROUTER_MODEL", reasoner.DefaultModel)
	translateURLDefault := getEnv("TRANSLATE_URL", translator.DefaultBaseURL)
	workingLangDefault := getEnv("WORKING_LANG", pipeline.DefaultWorkingLang)
	maxTextLenDefault := getEnvInt("MAX_TEXT_LEN", pipeline.DefaultMaxTextLen)
	reasonTimeoutDefault := getEnvInt("REASON_TIMEOUT_SECONDS", 8)

	var (
		port          = flag.String("port", portDefault, "Server port (env: PORT)")
		apiKey        = flag.String("api-key", apiKeyDefault, "OpenRouter API key (env: OPENROUTER_API_KEY)")
		baseURL       = flag.String("base-url", baseURLDefault, "OpenRouter base URL (env: OPENROUTER_BASE_URL)")
		model         = flag.String("model", modelDefault, "Reasoning model to use (env: OPENROUTER_MODEL)")
		translateURL  = flag.String("translate-url", translateURLDefault, "Translation endpoint URL (env: TRANSLATE_URL)")
		workingLang   = flag.String("working-lang", workingLangDefault, "Working language for the reasoning service (env: WORKING_LANG)")
		maxTextLen    = flag.Int("max-text-len", maxTextLenDefault, "Maximum accepted input length in bytes (env: MAX_TEXT_LEN)")
		reasonTimeout = flag.Int("reason-timeout", reasonTimeoutDefault, "Reasoning call timeout in seconds (env: REASON_TIMEOUT_SECONDS)")
	)
	flag.Parse()

	if *apiKey == "" {
		// Startup still succeeds; the first reasoning call will surface the
		// configuration error to the caller
		logger.Warn("OPENROUTER_API_KEY not set, analysis requests will fail until configured")
	}

	// Load the cultural multiplier table (read-only for the process lifetime)
	table, err := culture.Load()
	if err != nil {
		logger.Error("failed to load cultural multiplier table", "error", err)
		os.Exit(1)
	}
	logger.Info("cultural multiplier table loaded", "languages", len(table.Languages()))

	// Initialize pipeline collaborators
	det := detector.New(*workingLang)
	trans := translator.New(*translateURL)
	reason := reasoner.NewWithOptions(*apiKey, *baseURL, *model,
		reasoner.WithTimeout(time.Duration(*reasonTimeout)*time.Second))

	pipe := pipeline.New(det, trans, reason, table, pipeline.Config{
		WorkingLang: *workingLang,
		MaxTextLen:  *maxTextLen,
	})

	// Initialize API handler
	apiHandler := api.NewHandler(pipe, reason, trans)

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("misread")(apiHandler),
	)

	// Timeouts sized for two sequential external calls per request
	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("misread service starting",
			"port", *port,
			"model", *model,
			"working_lang", *workingLang,
			"reasoner_configured", *apiKey != "",
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
