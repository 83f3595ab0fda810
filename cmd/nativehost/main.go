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

	"wallet_go/internal/domain"
	"wallet_go/internal/infra"
	"wallet_go/internal/native/host"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("❌ Config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg, ""))

	initial, _ := domain.ParseFiatCode(cfg.Host.Currency)
	h := host.New(initial, cfg.Host.EventShape).WithUILimit(cfg.Host.UIBurst, cfg.Host.UIPerSec)

	srv := &http.Server{
		Addr:              cfg.Host.Listen,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("📱 Native host listening",
			slog.String("addr", cfg.Host.Listen),
			slog.String("bridge", "ws://"+cfg.Host.Listen+"/bridge"),
			slog.String("currency", string(initial)),
			slog.String("event_shape", cfg.Host.EventShape))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Native host failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("👋 Shutting down native host...")

	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Shutdown incomplete", slog.Any("error", err))
	}
}
