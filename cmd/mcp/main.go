package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/docforge/docqa/internal/adapters/mcp"
	"github.com/docforge/docqa/internal/bootstrap"
	"github.com/docforge/docqa/internal/config"
	"github.com/docforge/docqa/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	// MCP talks over stdout, so logs go to stderr only.
	logger := logging.NewStderrJSONLogger("mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server, err := mcpadapter.NewServer(app.QueryUC)
	if err != nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil {
		logger.Error("mcp run error", "error", err)
		os.Exit(1)
	}
}
