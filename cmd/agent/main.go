package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"excel-agent/internal/di"
	"excel-agent/internal/infrastructure/env"
	"excel-agent/internal/infrastructure/userinteraction"
)

func main() {
	envService := env.NewEnvService()

	console := userinteraction.NewTerminalConsole()
	defer console.Close()

	cfg := di.ConfigFromEnv(envService)
	cfg.SessionName = "repl"
	cfg.Confirm = console
	if len(os.Args) > 1 {
		cfg.WorkbookPath = os.Args[1]
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		console.Close()
		log.Fatalf("Initialization failed: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	console.ShowInfo("Workbook: %s", cfg.WorkbookPath)
	repl := userinteraction.NewREPL(
		console,
		container.Exchange,
		container.Workbook,
		container.Sheets,
		container.Conversation,
		container.Logger,
	)
	if err := repl.Run(ctx); err != nil {
		container.Logger.Error("REPL stopped", "error", err)
		console.ShowError(err)
		return
	}
	container.Logger.Info("Session ended")
}
