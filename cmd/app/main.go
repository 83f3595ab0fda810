package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"wallet_go/internal/app"
	"wallet_go/internal/infra"
	"wallet_go/internal/native"
)

func main() {
	// 1. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config
	infra.PrintBanner(os.Stdout, cfg, strings.ToUpper(native.Mode(bootstrap.Native)), cfg.Storage.Driver)

	// 3. Interactive screens; prompt only on a terminal
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	repl := app.NewREPL(bootstrap, os.Stdout, interactive)

	slog.InfoContext(ctx, "✨ Wallet ready. Type help for commands, Ctrl+C to exit.")
	if err := repl.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		slog.Error("REPL stopped", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
}
