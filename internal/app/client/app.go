package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"prefectlog/internal/app/client/config"
	"prefectlog/internal/domain/admin"
	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/kvstore"
	"prefectlog/internal/netcheck"
	"prefectlog/internal/store"
)

const integrityInterval = 6 * time.Hour

// App wires the on-device store, the attendance service and the transport
// together, and owns the background maintenance goroutines.
type App struct {
	Config    *config.Config
	Log       *slog.Logger
	Store     *store.Store
	Backups   *store.Backups
	Service   *attendance.Service
	Guard     *admin.Guard
	Transport Transport

	watcher     *kvstore.Watcher
	wg          sync.WaitGroup
	cancel      context.CancelFunc
	unsubscribe func()
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	session := kvstore.NewMemory()

	// The durable store lives in a single JSON document. When the file
	// cannot be opened the app still runs, on memory only, so a check-in
	// is never refused outright.
	var (
		kv      kvstore.KV
		watcher *kvstore.Watcher
	)
	file, err := kvstore.OpenFile(cfg.DataPath, kvstore.DefaultCapacity)
	if err != nil {
		log.Warn("could not open data file, falling back to in-memory store", "path", cfg.DataPath, "error", err)
		kv = kvstore.NewMemory()
	} else {
		kv = file
		watcher, err = kvstore.NewWatcher(file.Path(), log)
		if err != nil {
			log.Warn("could not watch data file, external changes will not be picked up", "error", err)
			watcher = nil
		}
	}

	st, err := store.New(kv, session, log)
	if err != nil {
		return nil, err
	}

	var opts []attendance.ServiceOption
	if cfg.RetentionDays > 0 {
		opts = append(opts, attendance.WithRetention(time.Duration(cfg.RetentionDays)*24*time.Hour))
	}
	service := attendance.NewService(st, log, opts...)

	guard, err := admin.NewGuard(kv, cfg.AdminPIN, log)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Log:     log,
		Store:   st,
		Backups: st.Backups(),
		Service: service,
		Guard:   guard,
		watcher: watcher,
	}

	if cfg.Mode == config.ModeRemote {
		remote := NewRemoteTransport(cfg, log)
		if !netcheck.Reachable(context.Background(), remote.BaseURL()+"/api/v1/health") {
			log.Warn("attendance server not reachable, remote operations will fail until it is back",
				"address", cfg.ServerAddress)
		}
		app.Transport = remote
	} else {
		app.Transport = NewLocalTransport(service, st.Backups())
	}

	return app, nil
}

// Start launches the background maintenance loops: file-watch reloading,
// periodic integrity verification and automatic snapshots. It returns
// immediately.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)

	a.unsubscribe = a.Store.Subscribe(func(records []attendance.Record) {
		a.Log.Debug("record set changed", "count", len(records))
	})

	if a.watcher != nil {
		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			a.watcher.Run(ctx)
		}()
		go func() {
			defer a.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-a.watcher.Events():
					if !ok {
						return
					}
					a.Store.HandleExternalChange()
				}
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(integrityInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Store.VerifyIntegrity()
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.Backups.NeedsAutomatic() {
			if err := a.Backups.PerformAutomatic(); err != nil {
				a.Log.Warn("automatic backup failed", "error", err)
			}
		}
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !a.Backups.NeedsAutomatic() {
					continue
				}
				if err := a.Backups.PerformAutomatic(); err != nil {
					a.Log.Warn("automatic backup failed", "error", err)
				}
			}
		}
	}()
}

// Shutdown stops the background loops and takes an emergency snapshot of
// the session state.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.wg.Wait()
	a.Backups.PerformEmergency()
	a.Log.Info("client stopped")
}
