package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/session"
	"github.com/MrSnakeDoc/shelf/internal/sources/seed"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	backend   *backend
	session   *session.Binding
	server    *httpserver.Server
	refresher *scheduler.TodayRefresher
	reloader  *scheduler.LibraryReloader
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the backend early - fail fast if unavailable
	be, err := openBackend(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s backend: %v", cfg.Backend, err)
		os.Exit(1)
	}
	loggerClient.Info("backend initialized", logger.String("backend", cfg.Backend))

	if cfg.SeedFile != "" {
		if err := applySeed(context.Background(), cfg.SeedFile, be.store, loggerClient); err != nil {
			loggerClient.Errorf("Failed to apply seed file: %v", err)
			os.Exit(1)
		}
	}

	provider := auth.NewProvider(be.store, be.store, loggerClient)

	todayOpts := []domain.TodayOption{domain.WithFetchTimeout(cfg.FetchTimeout)}
	if cfg.DiscardSuperseded {
		todayOpts = append(todayOpts, domain.WithSupersededDiscard())
	}
	binding := session.New(provider, be.store, loggerClient, session.Options{
		LoadTimeout:  cfg.LoadTimeout,
		TodayOptions: todayOpts,
	})

	// Create manual refresh trigger channel
	refreshTrigger := make(chan struct{}, 1)
	refresher := scheduler.NewTodayRefresher(binding, loggerClient, cfg.TodayRefreshInterval, refreshTrigger)

	var reloader *scheduler.LibraryReloader
	if cfg.LibraryReloadInterval > 0 {
		reloader = scheduler.NewLibraryReloader(binding, loggerClient, cfg.LibraryReloadInterval)
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		Backend:        cfg.Backend,
		Health:         be.store,
		Auth:           provider,
		Session:        binding,
		RefreshTrigger: refreshTrigger,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		AuthRateBurst:  cfg.AuthRateBurst,
		AuthRatePerMin: cfg.AuthRatePerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		backend:   be,
		session:   binding,
		server:    server,
		refresher: refresher,
		reloader:  reloader,
	}
}

func applySeed(ctx context.Context, path string, store seed.Store, log logger.Logger) error {
	doc, err := seed.NewLoader(path).Load()
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(store, log).Seed(ctx, doc)
	return err
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Shelf v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.session.Start(ctx)

	a.refresher.Start(ctx)
	a.logger.Info("today refresher started",
		logger.Duration("interval", a.cfg.TodayRefreshInterval))

	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start library reloader: %w", err)
		}
		a.logger.Info("library reloader started",
			logger.Duration("interval", a.cfg.LibraryReloadInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.refresher.Stop()
	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.session.Stop()

	if err := a.backend.close(); err != nil {
		a.logger.Warnf("failed to close %s backend: %v", a.cfg.Backend, err)
	} else {
		a.logger.Info("✅ Backend closed cleanly")
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ Shelf stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
