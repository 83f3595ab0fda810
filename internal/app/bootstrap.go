package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"wallet_go/internal/domain"
	"wallet_go/internal/infra"
	"wallet_go/internal/native"
	"wallet_go/internal/preference"
	"wallet_go/internal/ratetable"
	"wallet_go/internal/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config *infra.Config
	KV     storage.KV
	Native native.Module
	Rates  *ratetable.Table
	Store  *preference.Store

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up the logger and workspace, then wires
// storage, the native module and the preference store.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}

	workDir := infra.GetWorkspaceDir()
	logDir := filepath.Join(workDir, "logs")
	if err := infra.EnsureDir(logDir); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	slog.SetDefault(infra.NewLogger(cfg, logDir))

	return b.InitializeWith(ctx, cfg, workDir)
}

// InitializeWith wires every component from cfg inside workDir.
// On error everything opened so far is released.
func (b *Bootstrap) InitializeWith(ctx context.Context, cfg *infra.Config, workDir string) (err error) {
	slog.Info("🚀 Bootstrapping wallet...", slog.String("workspace", workDir))
	b.Config = cfg

	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	// 1. Singleton lock: two processes must not share one preference db
	if err := infra.EnsureDir(workDir); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 2. Persisted store
	kv, err := openStorage(ctx, cfg, workDir)
	if err != nil {
		return err
	}
	b.KV = kv
	slog.Info("✅ Preference storage ready", slog.String("driver", cfg.Storage.Driver))

	// 3. Rate table
	rates, err := ratetable.Load(cfg.Rates.Dir)
	if err != nil {
		return fmt.Errorf("failed to load rate table: %w", err)
	}
	b.Rates = rates
	slog.Info("✅ Rate table loaded", slog.Int("holdings", len(rates.Holdings())))

	// 4. Native module, decided once
	b.Native = native.Probe(ctx, cfg)
	slog.Info("✅ Native module selected", slog.String("mode", native.Mode(b.Native)))

	// 5. Preference store; reconciliation runs in the background
	defaultCode, _ := domain.ParseFiatCode(cfg.Preference.Default)
	b.Store = preference.New(kv, b.Native, rates, preference.Options{
		Key:     cfg.Preference.Key,
		Default: defaultCode,
	})

	return nil
}

func openStorage(ctx context.Context, cfg *infra.Config, workDir string) (storage.KV, error) {
	switch cfg.Storage.Driver {
	case infra.DriverRedis:
		return storage.NewRedisKV(ctx, storage.RedisOptions{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			Namespace: cfg.Storage.Redis.Namespace,
		})
	default:
		dbPath := cfg.Storage.Path
		if dbPath == "" {
			dataDir := filepath.Join(workDir, "data")
			if err := infra.EnsureDir(dataDir); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
			dbPath = filepath.Join(dataDir, "preferences.db")
		}
		return storage.NewKVStore(dbPath)
	}
}

// LastSaved reports when the preference was last persisted.
// The zero time means it never was or the store could not say.
func (b *Bootstrap) LastSaved(ctx context.Context) time.Time {
	if b.KV == nil {
		return time.Time{}
	}
	st, ok, err := b.KV.Setting(ctx, b.Config.Preference.Key)
	if err != nil {
		slog.Warn("Failed to read preference metadata", slog.Any("error", err))
		return time.Time{}
	}
	if !ok || st.UpdatedAtUnixM == 0 {
		return time.Time{}
	}
	return time.UnixMicro(st.UpdatedAtUnixM)
}

// Close tears everything down in reverse order. Safe to call more than once.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		b.Store.Close()
		b.Store = nil
	}
	if b.Native != nil {
		b.Native.Close()
		b.Native = nil
	}
	if b.KV != nil {
		if err := b.KV.Close(); err != nil {
			slog.Warn("Failed to close storage", slog.Any("error", err))
		}
		b.KV = nil
	}
	if b.unlock != nil {
		b.unlock()
		b.unlock = nil
	}
}
