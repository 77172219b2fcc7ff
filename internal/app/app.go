// Package app wires configuration into a ready session.Manager for the
// command-line programs.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/magefree/deckplay-server-go/internal/catalog"
	"github.com/magefree/deckplay-server-go/internal/config"
	"github.com/magefree/deckplay-server-go/internal/deck"
	"github.com/magefree/deckplay-server-go/internal/session"
	"github.com/magefree/deckplay-server-go/internal/storage"
)

// App holds the long-lived pieces built from a Config.
type App struct {
	Config   *config.Config
	Registry *catalog.Registry
	Engine   *deck.Engine
	Store    storage.Store
	Transfer *storage.Transfer
	Manager  *session.Manager

	catalogPool *pgxpool.Pool
	logger      *zap.Logger
}

// Open loads the catalog and presets, opens the configured store and
// returns the assembled App.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	reg, err := a.loadCatalog(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Registry = reg
	logger.Info("card catalog loaded",
		zap.String("source", cfg.Catalog.Source),
		zap.Int("cards", reg.Len()),
	)

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	logger.Info("storage initialized", zap.String("driver", cfg.Storage.Driver))

	a.Transfer, err = storage.NewTransfer(store, cfg.Storage.Namespace, cfg.Storage.BackupPrefix)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = deck.NewEngine(reg, cfg.Rules.DeckRules(), deck.NewRandomShuffler())
	a.Manager = session.NewManager(a.Engine, store, a.Transfer, logger)

	presets, err := loadPresets(cfg.Catalog.PresetsPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Manager.SetPresets(presets)
	logger.Info("presets loaded", zap.Int("presets", len(presets)))
	return a, nil
}

func (a *App) loadCatalog(ctx context.Context) (*catalog.Registry, error) {
	if a.Config.Catalog.Source != "postgres" {
		reg, err := catalog.LoadRegistry(a.Config.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", a.Config.Catalog.Path, err)
		}
		return reg, nil
	}

	pool, err := pgxpool.New(ctx, a.Config.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	a.catalogPool = pool
	cards, err := catalog.LoadPostgres(ctx, pool)
	if err != nil {
		return nil, err
	}
	return catalog.NewRegistry(cards)
}

// loadPresets treats a missing presets file as no presets.
func loadPresets(path string) (deck.Presets, error) {
	if path == "" {
		return deck.Presets{}, nil
	}
	presets, err := deck.LoadPresets(path)
	if errors.Is(err, os.ErrNotExist) {
		return deck.Presets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load presets %s: %w", path, err)
	}
	return presets, nil
}

// WatchCatalog reloads a file catalog on change until ctx is done. It is a
// no-op for other sources or when watching is disabled.
func (a *App) WatchCatalog(ctx context.Context) {
	if a.Config.Catalog.Source == "postgres" || !a.Config.Catalog.Watch {
		return
	}
	if err := catalog.Watch(ctx, a.Config.Catalog.Path, a.Registry, a.logger); err != nil {
		a.logger.Error("catalog watcher stopped", zap.Error(err))
	}
}

// Close releases the store and any catalog connection.
func (a *App) Close() {
	if a.Manager != nil {
		a.Manager.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.catalogPool != nil {
		a.catalogPool.Close()
	}
}

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		return storage.OpenSQLite(storage.DefaultSQLiteConfig(cfg.Path))
	case "postgres":
		return storage.OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewLogger builds a zap logger from cfg: JSON in production format, colored
// console otherwise.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
