// cmd/yamdb/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/MaxRadzey/api-yamdb/internal/account"
	httpAPI "github.com/MaxRadzey/api-yamdb/internal/api"
	"github.com/MaxRadzey/api-yamdb/internal/config"
	grpcServer "github.com/MaxRadzey/api-yamdb/internal/grpc"
	"github.com/MaxRadzey/api-yamdb/internal/mail"
	"github.com/MaxRadzey/api-yamdb/internal/review"
	"github.com/MaxRadzey/api-yamdb/internal/store"
	"github.com/MaxRadzey/api-yamdb/pkg/auth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("YaMDb Service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// --- Хранилище ---
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL, cfg.Database.MaxOpenConns, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", slog.String("error", err.Error()))
		} else {
			logger.Info("Database connection closed.")
		}
	}()
	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	users, err := store.NewSQLUserStore(db, logger)
	if err != nil {
		return err
	}
	catalog, err := store.NewSQLCatalogStore(db, logger)
	if err != nil {
		return err
	}
	reviews, err := store.NewSQLReviewStore(db, logger)
	if err != nil {
		return err
	}
	logger.Info("Stores initialized.", slog.String("driver", cfg.Database.Driver))

	// --- JWT и почта ---
	tokenManager, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}
	sender, err := newMailSender(cfg.Mail, logger)
	if err != nil {
		return err
	}

	accounts := account.NewService(users, sender, tokenManager, logger)
	engine := review.NewEngine(reviews, catalog, logger)

	// --- gRPC ---
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on port %d: %w", cfg.GRPC.Port, err)
	}
	grpcSrv := grpc.NewServer()
	grpcServer.RegisterCatalogInterServiceServer(grpcSrv, grpcServer.NewServer(catalog, users, logger))
	reflection.Register(grpcSrv)

	go func() {
		logger.Info("YaMDb gRPC Service starting", slog.Int("port", cfg.GRPC.Port))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("YaMDb gRPC Service Serve() failed", slog.String("error", err.Error()))
		}
	}()

	// --- HTTP ---
	handler := httpAPI.NewHandler(users, catalog, engine, accounts, db, logger, httpAPI.NewValidator(), httpAPI.Options{
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
		CORSOrigins:     cfg.Security.CORSOrigins,
		SignupRateLimit: cfg.Security.SignupRateLimit,
		RateLimitWindow: cfg.Security.RateLimitWindow,
	})
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      httpAPI.NewHTTPRouter(handler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("YaMDb HTTP Service starting", slog.Int("port", cfg.HTTP.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("YaMDb Service shutting down...")
	case err := <-serveErr:
		grpcSrv.Stop()
		return fmt.Errorf("http server failed: %w", err)
	}

	ctxHTTP, cancelHTTP := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelHTTP()
	if err := httpSrv.Shutdown(ctxHTTP); err != nil {
		logger.Error("YaMDb HTTP Server Shutdown Failed", slog.String("error", err.Error()))
	} else {
		logger.Info("YaMDb HTTP Server gracefully stopped.")
	}

	grpcSrv.GracefulStop()
	logger.Info("YaMDb gRPC Service gracefully stopped.")
	return nil
}

// newMailSender выбирает способ доставки кодов подтверждения.
func newMailSender(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error) {
	if cfg.Mode != "smtp" {
		logger.Warn("Mail mode is log: confirmation codes are written to the log, not delivered")
		return mail.NewLogSender(logger), nil
	}
	smtpSender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.From,
		UseTLS:   cfg.SMTPStartTLS,
		Timeout:  cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure smtp: %w", err)
	}
	logger.Info("SMTP mail sender initialized.", slog.String("host", cfg.SMTPHost), slog.Int("port", cfg.SMTPPort))
	return mail.NewBreakerSender(smtpSender, cfg.BreakerTimeout, logger), nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
