package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"digitalparbhani/backend/internal/chat"
	"digitalparbhani/backend/internal/config"
	"digitalparbhani/backend/internal/conversation"
	"digitalparbhani/backend/internal/model"
	"digitalparbhani/backend/internal/prompt"
	"digitalparbhani/backend/internal/server"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}
	if cfg.AppEnv != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	reference, err := prompt.LoadReference(cfg.ProfilesReferencePath)
	if err != nil {
		logger.Fatal("profiles reference unavailable", "err", err)
	}

	client, err := model.New(cfg)
	if err != nil {
		logger.Fatal("model client setup failed", "provider", cfg.AIProvider, "err", err)
	}

	store := conversation.NewStore(cfg.HistoryCap)
	service := chat.NewService(client, store, logger, chat.Options{
		ContextWindow:  cfg.ContextWindow,
		Timeout:        time.Duration(cfg.AITimeoutSeconds) * time.Second,
		City:           cfg.AssistantCity,
		Reference:      reference,
		RepairFollowUp: cfg.FollowUpPolicy == config.FollowUpPolicyRepair,
	})

	app := server.New(cfg, service, store, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("chat api listening",
			"addr", "http://localhost:"+cfg.AppPort,
			"provider", cfg.AIProvider,
			"history_cap", cfg.HistoryCap,
			"context_window", cfg.ContextWindow,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

func newLogger(cfg config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          cfg.AppName,
	})
}
