package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comrade-fit/comrade/internal/api"
	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
	"github.com/comrade-fit/comrade/internal/health"
	"github.com/comrade-fit/comrade/internal/infra/logging"
	"github.com/comrade-fit/comrade/internal/infra/sqlite"
)

// Daemon is the core Comrade runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Service *gamification.Service
	Server  *api.Server
	Health  *health.Checker
	Logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration, storing its
// state under Home().
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.NewLogger("comrade", cfg.Logging.Level)

	catalog, err := gamification.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	// Open SQLite
	home := comradeHome()
	db, err := sqlite.Open(home)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.SyncCatalog(context.Background(), catalog); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync catalog: %w", err)
	}

	svc := gamification.NewService(db, catalog,
		gamification.WithClock(gamification.CalendarClock{Loc: cfg.Location()}),
		gamification.WithLogger(logger),
		gamification.WithNotifyPolicy(cfg.Notify),
	)

	checker := health.NewChecker(db, home, catalog, logger)
	checker.SetInterval(parseDuration(cfg.Maintenance.HealthInterval, health.DefaultInterval))

	srv := api.NewServer(svc, logger)
	srv.SetHealth(checker)
	srv.SetRequestTimeout(parseDuration(cfg.API.RequestTimeout, api.DefaultRequestTimeout))
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:  cfg,
		DB:      db,
		Service: svc,
		Server:  srv,
		Health:  checker,
		Logger:  logger,
	}, nil
}

// Catalog returns the loaded achievement catalog.
func (d *Daemon) Catalog() []domain.AchievementDefinition {
	return d.Service.Catalog()
}

// Serve starts the HTTP server and blocks until shutdown. The store stays
// open; Close releases it.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	go d.cleanupLoop(ctx, parseDuration(d.Config.Maintenance.ChallengeCleanup, time.Hour))

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Logger.Info("serving",
		slog.String("addr", "http://"+addr),
		slog.String("timezone", d.Config.Calendar.Timezone),
		slog.Bool("metrics", d.Config.Telemetry.Prometheus),
		slog.Int("achievements", len(d.Catalog())),
	)

	err := httpServer.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return err
	}
	<-done
	return nil
}

// cleanupLoop removes expired challenges every interval.
func (d *Daemon) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Service.CleanupExpiredChallenges(ctx); err != nil && ctx.Err() == nil {
				d.Logger.Warn("challenge cleanup failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
