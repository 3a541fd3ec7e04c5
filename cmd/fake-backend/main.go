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

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/floroz/gavel-client/internal/config"
	"github.com/floroz/gavel-client/internal/fakebackend"
	"github.com/floroz/gavel-client/pkg/auth"
	pkgevents "github.com/floroz/gavel-client/pkg/events"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Token signer
	signer, err := loadSigner(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize token signer", "error", err)
		os.Exit(1)
	}

	opts := []fakebackend.Option{fakebackend.WithLogger(logger)}

	// 2. RabbitMQ (optional, enables live updates)
	if cfg.RabbitMQURL != "" {
		amqpConn, err := amqp091.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpConn.Close()

		publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn)
		if err != nil {
			logger.Error("Failed to create RabbitMQ publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, fakebackend.WithPublisher(publisher))
		logger.Info("RabbitMQ Connected")
	}

	// 3. Service with demo data
	svc := fakebackend.NewService(signer, opts...)
	if err := fakebackend.Seed(ctx, svc, time.Now()); err != nil {
		logger.Error("Failed to seed demo data", "error", err)
		os.Exit(1)
	}
	logger.Info("Demo data seeded", "email", fakebackend.DemoEmail)

	// 4. Start Server
	srv := &http.Server{
		Addr:              cfg.FakeBackendAddr,
		Handler:           h2c.NewHandler(fakebackend.NewRouter(svc, signer, logger), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down fake backend...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting fake auction backend", "addr", cfg.FakeBackendAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Fake backend stopped")
}

func loadSigner(cfg *config.Config, logger *slog.Logger) (*auth.Signer, error) {
	if cfg.PrivateKeyPath == "" || cfg.PublicKeyPath == "" {
		logger.Warn("AUTH_PRIVATE_KEY_PATH or AUTH_PUBLIC_KEY_PATH not set, using an ephemeral key pair")
		priv, pub, err := auth.GenerateKeyPair(2048)
		if err != nil {
			return nil, err
		}
		return auth.NewSigner(priv, pub, cfg.TokenIssuer)
	}

	priv, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	return auth.NewSigner(priv, pub, cfg.TokenIssuer)
}
