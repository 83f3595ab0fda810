package native

import (
	"context"
	"log/slog"

	"wallet_go/internal/infra"
)

// Probe picks the module implementation once. With no bridge URL, or a
// bridge that cannot be reached within the probe timeout, the Fallback is
// returned. The choice is never revisited.
func Probe(ctx context.Context, cfg *infra.Config) Module {
	if cfg.Native.URL == "" {
		slog.Info("No native bridge configured, using fallback")
		return NewFallback()
	}

	b := NewBridge(cfg.Native.URL, BridgeOptions{
		CallTimeout:      cfg.CallTimeout(),
		FailureThreshold: cfg.Native.FailureThreshold,
	})
	b.Start(ctx)

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout())
	defer cancel()

	if err := b.WaitConnected(probeCtx); err != nil {
		slog.Warn("Native bridge unreachable, using fallback",
			slog.String("url", cfg.Native.URL),
			slog.Any("error", err))
		b.Close()
		return NewFallback()
	}

	slog.Info("Native bridge connected", slog.String("url", cfg.Native.URL))
	return b
}
