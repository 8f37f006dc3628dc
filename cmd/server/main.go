package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"excel-agent/internal/di"
	"excel-agent/internal/infrastructure/env"
	"excel-agent/internal/infrastructure/httpapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envService := env.NewEnvService()

	cfg := di.ConfigFromEnv(envService)
	cfg.SessionName = "server"
	if cfg.MutationPolicy == di.PolicyConfirm {
		log.Fatalf("MUTATION_POLICY=%s is only supported by the interactive agent", di.PolicyConfirm)
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer container.Close()

	apiCfg := httpapi.Config{
		Runner:                container.Exchange,
		Workbook:              container.Workbook,
		History:               container.Conversation,
		DefaultChatModel:      envService.Get("PROXY_CHAT_MODEL"),
		DefaultEmbeddingModel: envService.Get("PROXY_EMBEDDING_MODEL"),
		AccessLog:             envService.GetBool("HTTP_ACCESS_LOG", true),
		Logger:                container.Logger,
	}
	if container.OpenAI != nil {
		apiCfg.OpenAI = container.OpenAI
	}

	srv := &http.Server{
		Addr:              envService.GetWithDefault("HTTP_ADDR", ":3001"),
		Handler:           httpapi.NewRouter(apiCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		container.Logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("HTTP server shutdown failed", "error", err)
	}
	container.Logger.Info("HTTP server stopped")
}
