// Package main запускает HTTP-сервер магазина наград Converge.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/converge-shop/internal/config"
	"github.com/mmeshcher/converge-shop/internal/handler"
	"github.com/mmeshcher/converge-shop/internal/middleware"
	"github.com/mmeshcher/converge-shop/internal/repository"
	"github.com/mmeshcher/converge-shop/internal/service"
	"github.com/mmeshcher/converge-shop/internal/slack"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if cfg.SessionsSecret == "" {
		sugar.Warn("SESSIONS_SECRET is empty, sessions will not survive a restart")
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionsSecret, repo, logger)
	slackClient := slack.NewClient(cfg.SlackAPIURL, cfg.SlackClientID, cfg.SlackClientSecret)

	h := handler.NewHandler(svc, slackClient, authMiddleware, logger, handler.Options{
		SlackClientID:  cfg.SlackClientID,
		SlackWorkspace: cfg.SlackWorkspace,
		AdminKey:       cfg.AdminKey,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting converge shop", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown по сигналу или ошибке в другой горутине
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
