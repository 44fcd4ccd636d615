package app

import (
	"log/slog"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/auth"
	"github.com/quasar/mclaunch/internal/config"
	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/directory"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/java"
	"github.com/quasar/mclaunch/internal/launch"
	"github.com/quasar/mclaunch/internal/reconcile"
	"github.com/quasar/mclaunch/internal/selector"
	"github.com/quasar/mclaunch/internal/service"
	"github.com/quasar/mclaunch/internal/store"
	"github.com/quasar/mclaunch/internal/watcher"
)

// Components is the wired launcher.
type Components struct {
	Service *service.Service
	Engine  *reconcile.Engine
	Watcher *watcher.Watcher
	Bus     *events.Bus
	Auth    *api.AuthClient
}

// Wire builds every launcher component on top of st.
func Wire(cfg *config.Config, st store.Store, logger *slog.Logger) *Components {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	accounts := core.NewAccountRepo(st)
	configs := core.NewConfigRepo(st)
	bus := events.NewBus()

	registry := auth.NewRegistry(logger.With("component", "auth"), auth.Defaults(cfg.MSAClientID, cfg.AZauthURL)...)
	engine := reconcile.NewEngine(accounts, configs, registry, bus, logger.With("component", "reconcile"))
	source := directory.NewClient(cfg.DirectoryURL, logger.With("component", "directory"))
	sel := selector.New(configs, bus, logger.With("component", "selector"))

	w := watcher.New(watcher.Options{
		Source:   source,
		Accounts: accounts,
		Configs:  configs,
		Selector: sel,
		Bus:      bus,
		Logger:   logger.With("component", "watcher"),
		Interval: cfg.Interval(),
	})

	backend := &launch.ProcessBackend{
		Command: cfg.LaunchCommand,
		Dir:     cfg.GameDir,
		Logger:  logger.With("component", "backend"),
	}
	launcher := launch.NewLauncher(accounts, configs, source, backend, cfg.GameDir, logger.With("component", "launch"))
	launcher.SetJavaFinder(java.NewFinder(logger.With("component", "java")))

	var access service.Redeemer
	if cfg.AccessCodeURL != "" {
		access = api.NewAccessClient(cfg.AccessCodeURL, logger.With("component", "access"))
	}

	svc := service.New(service.Options{
		Accounts:   accounts,
		Configs:    configs,
		Reconciler: engine,
		Directory:  source,
		Selector:   sel,
		Launcher:   launcher,
		Mojang:     api.NewMojangClient(),
		Access:     access,
		Bus:        bus,
		Logger:     logger.With("component", "service"),
	})

	return &Components{
		Service: svc,
		Engine:  engine,
		Watcher: w,
		Bus:     bus,
		Auth:    api.NewAuthClient(cfg.MSAClientID),
	}
}

// Deps returns the app dependencies for c.
func (c *Components) Deps(logger *slog.Logger) Deps {
	return Deps{
		Service: c.Service,
		Bus:     c.Bus,
		Watcher: c.Watcher,
		Auth:    c.Auth,
		Logger:  logger,
	}
}
