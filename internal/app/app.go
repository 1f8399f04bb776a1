// Package app wires configuration, auth, the page driver, the engine, the
// history store, and the bridge into runnable flows.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/auth"
	"github.com/sweeplab/invitesweep/internal/bridge"
	"github.com/sweeplab/invitesweep/internal/config"
	"github.com/sweeplab/invitesweep/internal/engine"
	"github.com/sweeplab/invitesweep/internal/invites"
	"github.com/sweeplab/invitesweep/internal/page"
	"github.com/sweeplab/invitesweep/internal/report"
	"github.com/sweeplab/invitesweep/internal/scheduler"
	"github.com/sweeplab/invitesweep/internal/store"
)

// App holds the application state.
type App struct {
	cfg         *config.Config
	authManager *auth.Manager
	log         *zap.Logger
}

// New creates a new App instance.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	cookiePath, err := auth.DefaultCookieStorePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cookie store path: %w", err)
	}
	return &App{
		cfg:         cfg,
		authManager: auth.NewManager(auth.NewCookieStore(cookiePath)),
		log:         log,
	}, nil
}

// IsAuthenticated checks if session credentials are stored.
func (a *App) IsAuthenticated() bool {
	return a.authManager.IsAuthenticated()
}

// Login starts the interactive login flow.
func (a *App) Login(ctx context.Context) error {
	a.log.Info("opening browser for login")
	if err := a.authManager.Login(ctx); err != nil {
		return err
	}
	a.log.Info("login successful, cookies saved")
	return nil
}

// Logout clears stored credentials.
func (a *App) Logout() error {
	return a.authManager.Logout()
}

// openHistory opens the history store at the configured (or default) path.
func (a *App) openHistory() (*store.Store, error) {
	dbPath := a.cfg.History.DBPath
	if dbPath == "" {
		var err error
		dbPath, err = config.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.New(dbPath, a.cfg.History.MaxSessions)
}

// History returns the persisted withdrawal sessions, newest first.
func (a *App) History(limit int) ([]store.Session, error) {
	st, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Sessions(limit)
}

// buildEngine opens a browser page and assembles an engine around it.
// The returned cleanup closes the browser and the history store.
func (a *App) buildEngine(ctx context.Context, rep report.Reporter) (*engine.Engine, func(), error) {
	if !a.authManager.IsAuthenticated() {
		return nil, nil, fmt.Errorf("not authenticated - run `invitesweep login` first")
	}
	cookies, err := a.authManager.GetCookies()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session cookies: %w", err)
	}

	br := page.NewBrowser(a.cfg.Target.ListURL, a.cfg.Target.Headless, cookies, a.log.Named("page"))
	if err := br.Open(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	hist, err := a.openHistory()
	if err != nil {
		br.Close()
		return nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}

	reporters := []report.Reporter{report.Log(a.log.Named("report"))}
	if rep != nil {
		reporters = append(reporters, rep)
	}

	eng := engine.New(br, report.Multi(reporters...), hist, a.cfg.Target.AssumedTotal, a.log.Named("engine"))
	cleanup := func() {
		br.Close()
		hist.Close()
	}
	return eng, cleanup, nil
}

// RunOnce performs a single withdrawal run with the given configuration.
func (a *App) RunOnce(ctx context.Context, cfg invites.RunConfig) error {
	eng, cleanup, err := a.buildEngine(ctx, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	return eng.Run(ctx, cfg)
}

// Scan performs a scan-and-group pass and exports the results.
func (a *App) Scan(ctx context.Context) ([]invites.Group, int, error) {
	eng, cleanup, err := a.buildEngine(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer cleanup()

	groups, total, err := eng.Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	if path, err := store.SaveScanResults(groups, total); err != nil {
		a.log.Warn("failed to export scan results", zap.Error(err))
	} else {
		a.log.Info("scan results exported", zap.String("path", path))
	}

	return groups, total, nil
}

// DefaultRunConfig builds a RunConfig from the configured defaults.
func (a *App) DefaultRunConfig() invites.RunConfig {
	return invites.RunConfig{
		Mode:        invites.Mode(a.cfg.Run.Mode),
		TargetCount: a.cfg.Run.TargetCount,
		AgeThreshold: invites.Threshold{
			Value: a.cfg.Run.AgeValue,
			Unit:  invites.Unit(a.cfg.Run.AgeUnit),
		},
		MessagePatterns: a.cfg.Run.MessagePattern,
		SafeMode:        a.cfg.Safety.Enabled,
		SafeThreshold:   a.cfg.Safety.Threshold(),
	}
}

// Serve runs the bridge daemon (and, when enabled, the cron scheduler) until
// ctx is cancelled. The browser session stays open for the daemon's lifetime
// so commands act on a warm page.
func (a *App) Serve(ctx context.Context) error {
	eng, cleanup, err := a.buildEngine(ctx, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := bridge.NewServer(ctx, eng, a.log.Named("bridge"))
	eng.AttachReporter(srv)

	if a.cfg.Scheduler.Enabled {
		sched, err := scheduler.New(a.cfg.Scheduler.Timezone, a.log.Named("scheduler"))
		if err != nil {
			return err
		}
		runCfg := a.DefaultRunConfig()
		err = sched.AddJob("withdraw", a.cfg.Scheduler.CronSpec, func(jobCtx context.Context) error {
			err := eng.Run(jobCtx, runCfg)
			if err == engine.ErrRunActive {
				a.log.Info("scheduled run skipped, another run is active")
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	return srv.ListenAndServe(a.cfg.Bridge.ListenAddr)
}
