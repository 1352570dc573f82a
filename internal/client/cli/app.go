package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/boatlog/internal/client/client"
	"github.com/dmitrijs2005/boatlog/internal/client/config"
	"github.com/dmitrijs2005/boatlog/internal/client/connectivity"
	"github.com/dmitrijs2005/boatlog/internal/client/importer"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/client/services"
	"github.com/dmitrijs2005/boatlog/internal/client/syncer"
	"github.com/dmitrijs2005/boatlog/internal/filex"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// App is the wired client.
type App struct {
	cfg    *config.Config
	db     *sql.DB
	logger logging.Logger

	Device   *services.DeviceService
	Tokens   *services.TokenStore
	Auth     *services.AuthService
	Logbook  *services.Logbook
	Share    *services.ShareService
	Importer *importer.Importer
	Queue    *queue.Queue

	Network  *connectivity.Monitor
	Orch     *syncer.Orchestrator
	Registry *prometheus.Registry

	closers []io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, logCloser := logging.NewFileLogger(cfg.LogFile, cfg.LogLevel)
	a := &App{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	if err := filex.EnsureParentDir(cfg.DBPath); err != nil {
		_ = a.Close()
		return nil, err
	}
	db, err := repomanager.Open(ctx, cfg.DBPath)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)

	checker, err := connectivity.NewHealthChecker(cfg.HealthAddr)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, checker)

	policy := cfg.QueuePolicy()
	a.Device = services.NewDeviceService(db)
	a.Tokens = services.NewTokenStore(db)
	remote := client.NewHTTPClient(cfg.ServerURL, a.Tokens, cfg.RequestTimeout, logger)
	a.Auth = services.NewAuthService(remote, a.Tokens, logger)
	a.Logbook = services.NewLogbook(db, policy, cfg.PhotoDir, logger)
	a.Share = services.NewShareService(db, a.Device, cfg.FragmentSize)
	a.Importer = importer.New(db, a.Device, logger)
	a.Queue = queue.New(repomanager.Pending(db), policy, logger)

	a.Network = connectivity.NewMonitor(checker, cfg.Metered, logger)
	a.Registry = prometheus.NewRegistry()
	a.Orch = syncer.NewOrchestrator(a.Queue, syncer.NewPromRecorder(a.Registry), cfg.SyncWorkers, logger)
	deps := syncer.Deps{DB: db, Remote: remote, Queue: a.Queue, Network: a.Network, Logger: logger}
	for _, h := range syncer.NewHandlers(deps) {
		if err := a.Orch.Register(h); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
