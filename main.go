package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Roifine/us-stocks-cgt-helper/src/config"
	"github.com/Roifine/us-stocks-cgt-helper/src/database"
	"github.com/Roifine/us-stocks-cgt-helper/src/fx"
	"github.com/Roifine/us-stocks-cgt-helper/src/handlers"
	"github.com/Roifine/us-stocks-cgt-helper/src/logger"
	"github.com/Roifine/us-stocks-cgt-helper/src/parsers"
	"github.com/Roifine/us-stocks-cgt-helper/src/security"
	"github.com/Roifine/us-stocks-cgt-helper/src/services"
)

// loadConverter builds the exchange rate converter from the configured CSV
// files, falling back to the remote source when no local file is usable.
func loadConverter() (*fx.Converter, error) {
	rates, err := fx.LoadRatesCSV(config.Cfg.RatesCSVPaths...)
	if err != nil {
		if config.Cfg.RatesSourceURL == "" {
			return nil, err
		}
		logger.L.Warn("Local rate files unavailable, fetching from remote source",
			"error", err, "url", config.Cfg.RatesSourceURL)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		rates, err = services.NewRateSourceService(config.Cfg.RatesSourceURL).FetchRates(ctx)
		if err != nil {
			return nil, err
		}
	}

	table, err := fx.NewRateTable(rates, fx.NewBand(config.Cfg.RateBandMin, config.Cfg.RateBandMax))
	if err != nil {
		return nil, err
	}
	logger.L.Info("Exchange rate table loaded",
		"rates", table.Len(), "skipped", table.Skipped(),
		"first", table.First(), "last", table.Last())

	return fx.NewConverter(table)
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel, config.Cfg.LogFormat)
	logger.L.Info("CGT Helper backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	converter, err := loadConverter()
	if err != nil {
		logger.L.Error("Failed to load exchange rates", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	userHandler := handlers.NewUserHandler(authService, emailService)

	ingestService := services.NewIngestService(parsers.NewCanonicalCSVParser(), reportCache)
	reportService := services.NewReportService(converter, reportCache)

	transactionHandler := handlers.NewTransactionHandler(ingestService)
	reportHandler := handlers.NewReportHandler(reportService)

	handlers.InitializeGoogleOAuthConfig()

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public GET routes.
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)
	apiRouter.HandleFunc("GET /api/auth/google/login", userHandler.HandleGoogleLogin)
	apiRouter.HandleFunc("GET /api/auth/google/callback", userHandler.HandleGoogleCallback)

	// Auth actions are mutating and go through the CSRF check.
	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.Handle("POST /logout", userHandler.AuthMiddleware(http.HandlerFunc(userHandler.LogoutUserHandler)))
	authActionRouter.HandleFunc("POST /request-password-reset", userHandler.RequestPasswordResetHandler)
	authActionRouter.HandleFunc("POST /reset-password", userHandler.ResetPasswordHandler)

	csrfProtection := handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)
	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", csrfProtection(authActionRouter)))

	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(handler))
	}

	apiRouter.Handle("POST /api/transactions/upload", applyCsrfAndAuth(transactionHandler.HandleUpload))
	apiRouter.Handle("GET /api/transactions", applyCsrfAndAuth(transactionHandler.HandleGetTransactions))
	apiRouter.Handle("DELETE /api/transactions", applyCsrfAndAuth(transactionHandler.HandleDeleteTransactions))
	apiRouter.Handle("GET /api/reports/cgt", applyCsrfAndAuth(reportHandler.HandleGetReport))
	apiRouter.Handle("GET /api/reports/cost-basis", applyCsrfAndAuth(reportHandler.HandleGetSnapshot))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "CGT Helper backend is running"})
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	rateLimit := handlers.RateLimitMiddleware(10, 30)
	finalHandler := handlers.CORSMiddleware(rateLimit(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Error("Failed to start server", "error", err)
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	logger.L.Info("Shutdown signal received, draining connections...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Server stopped gracefully.")
}
