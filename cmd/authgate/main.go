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

	"github.com/joho/godotenv"

	"github.com/brewschews/authgate/internal/config"
	httpserver "github.com/brewschews/authgate/internal/http"
	"github.com/brewschews/authgate/pkg/auth"
	"github.com/brewschews/authgate/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	eventsRepo := repository.NewEventsRepository(db)

	// Initialize services
	cipher, err := auth.NewEmailCipher(cfg.EmailEncryptionKey)
	if err != nil {
		logger.Error("failed to initialize email cipher", "error", err)
		os.Exit(1)
	}

	limiter := auth.NewRateLimiter(eventsRepo, logger)
	gate := auth.NewGate(usersRepo, eventsRepo, limiter, cipher, auth.Argon2Hasher{}, auth.Policy{
		SignupWindow:  cfg.SignupRateWindow,
		SignupLimit:   cfg.SignupRateLimit,
		LoginWindow:   cfg.LoginRateWindow,
		LoginLimit:    cfg.LoginRateLimit,
		LockThreshold: cfg.LockoutThreshold,
		LockDuration:  cfg.LockoutDuration,
	}, logger)

	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL: cfg.AccessTokenTTL,
		JWTSecret:      []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
	})

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:             logger,
		Gate:               gate,
		SessionService:     sessionService,
		EmailCipher:        cipher,
		UsersRepo:          usersRepo,
		BurstGuardEnabled:  cfg.BurstGuardEnabled,
		BurstGuardRequests: cfg.BurstGuardRequests,
		BurstGuardWindow:   cfg.BurstGuardWindow,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		CookieSecure:       cfg.CookieSecure,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
