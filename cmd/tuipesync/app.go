package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/tuipesync/internal/config"
	"github.com/verte-zerg/tuipesync/internal/connectivity"
	"github.com/verte-zerg/tuipesync/internal/identity"
	"github.com/verte-zerg/tuipesync/internal/metrics"
	"github.com/verte-zerg/tuipesync/internal/remote"
	"github.com/verte-zerg/tuipesync/internal/store"
	"github.com/verte-zerg/tuipesync/internal/syncer"
)

// app holds the wired components shared by every command.
type app struct {
	settings  config.Settings
	logger    *slog.Logger
	logCloser io.Closer
	store     *store.Store
	ident     *identity.Stored
	prober    *connectivity.Prober
	pool      *pgxpool.Pool
	registry  *prometheus.Registry
	engine    *syncer.Engine
}

// newApp opens the local store, connects the remote when configured and
// runs one reachability probe so one-shot commands see a settled state.
func newApp(ctx context.Context, settings config.Settings, logOut io.Writer) (*app, error) {
	logger, logCloser := config.NewLogger(settings.Log, logOut)
	a := &app{
		settings:  settings,
		logger:    logger,
		logCloser: logCloser,
		registry:  prometheus.NewRegistry(),
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	a.store = st
	a.ident = identity.NewStored(st)

	var (
		pinger connectivity.Pinger
		rs     syncer.RemoteStore
	)
	if settings.Remote.DSN == "" {
		logger.Debug("remote store not configured, running offline")
		pinger, rs = remote.Disabled{}, remote.Disabled{}
	} else {
		pool, err := remote.NewPool(ctx, settings.Remote)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool
		client := remote.New(pool)
		pinger, rs = client, client
	}
	a.prober = connectivity.NewProber(pinger, settings.Sync.ProbeInterval, logger)
	a.prober.Probe(ctx)

	a.engine = syncer.New(st, rs, a.prober, a.ident,
		syncer.WithLogger(logger),
		syncer.WithMetrics(metrics.NewCollector(a.registry)),
		syncer.WithPushLimiter(rate.NewLimiter(rate.Limit(settings.Sync.PushRate), settings.Sync.PushBurst)),
	)
	return a, nil
}

// Close releases the pool, the store and the log file. Best-effort.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logErrf("failed to close db: %v\n", err)
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			logErrf("failed to close log: %v\n", err)
		}
	}
}

// loadSettings reads the config file at path and resolves it with the
// environment. When the log goes nowhere but a terminal UI, it is sent to
// the default log file instead.
func loadSettings(path string, tui bool) (config.FileConfig, config.Settings, error) {
	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return config.FileConfig{}, config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := config.Resolve(fileCfg)
	if err != nil {
		return config.FileConfig{}, config.Settings{}, err
	}
	if tui && settings.Log.File == "" {
		settings.Log.File = config.DefaultLogPath()
		if err := os.MkdirAll(filepath.Dir(settings.Log.File), 0o755); err != nil {
			return config.FileConfig{}, config.Settings{}, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return fileCfg, settings, nil
}
