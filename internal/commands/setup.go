package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teller-dev/teller/internal/account"
	"github.com/teller-dev/teller/internal/config"
	"github.com/teller-dev/teller/internal/identity"
	"github.com/teller-dev/teller/internal/ledger"
	"github.com/teller-dev/teller/internal/store"
	"github.com/teller-dev/teller/internal/store/memstore"
	"github.com/teller-dev/teller/internal/store/postgres"
)

// app bundles the wired services a command needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    store.Store
	engine   *ledger.Engine
	accounts *account.Service
	gate     identity.Gate
	cleanup  func()
}

// newApp loads configuration and wires the store, engine, and
// services behind it.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	var st store.Store
	cleanup := func() { _ = logger.Sync() }
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		if cfg.Storage.Migrations != "" {
			if err := postgres.Migrate(cfg.Storage.Migrations, cfg.Storage.DSN, logger); err != nil {
				return nil, err
			}
		}
		pg, err := postgres.Open(ctx, cfg.Storage.DSN, cfg.LockWait(), logger)
		if err != nil {
			return nil, err
		}
		st = pg
		cleanup = func() {
			pg.Close()
			_ = logger.Sync()
		}
	case config.BackendMemory:
		st = memstore.New(cfg.LockWait())
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	gate, err := identity.NewStaticGate(cfg.Identity.Tokens)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		engine:   ledger.NewEngine(st, logger),
		accounts: account.NewService(st, logger),
		gate:     gate,
		cleanup:  cleanup,
	}, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// resolveAccount turns either an explicit --account flag or a
// --token credential into an account ID.
func (a *app) resolveAccount(ctx context.Context, accountFlag, tokenFlag string) (uuid.UUID, error) {
	switch {
	case accountFlag != "":
		id, err := uuid.Parse(accountFlag)
		if err != nil {
			return uuid.Nil, fmt.Errorf("parsing account ID %q: %w", accountFlag, err)
		}
		return id, nil
	case tokenFlag != "":
		return a.gate.Resolve(ctx, tokenFlag)
	default:
		return uuid.Nil, fmt.Errorf("either --account or --token is required")
	}
}
