// Package health provides periodic health checks with auto-recovery.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/comrade-fit/comrade/internal/domain"
	"github.com/comrade-fit/comrade/internal/infra/metrics"
	"github.com/comrade-fit/comrade/internal/infra/sqlite"
)

// DefaultInterval is how often the checks run.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	logger   *slog.Logger
}

// NewChecker creates a health checker for the store, the data directory and
// the stored achievement catalog. A catalog that drifted from the loaded
// one is re-synced.
func NewChecker(db *sqlite.DB, dataDir string, catalog []domain.AchievementDefinition, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		interval: DefaultInterval,
		logger:   logger,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.PingContext(ctx)
				},
			},
			{
				Name: "data_dir",
				CheckFn: func(ctx context.Context) error {
					return checkDataDir(dataDir)
				},
				RecoverFn: func(ctx context.Context) error {
					return os.MkdirAll(dataDir, 0700)
				},
			},
			{
				Name: "catalog",
				CheckFn: func(ctx context.Context) error {
					return checkCatalog(ctx, db, catalog)
				},
				RecoverFn: func(ctx context.Context) error {
					return db.SyncCatalog(ctx, catalog)
				},
			},
		},
	}
}

// SetInterval overrides DefaultInterval.
func (c *Checker) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			c.recover(ctx, check, err)
		} else {
			s.Healthy = true
		}
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(boolGauge(s.Healthy))
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

func (c *Checker) recover(ctx context.Context, check Check, cause error) {
	logger := c.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("health check failed",
		slog.String("check", check.Name),
		slog.String("error", cause.Error()),
	)
	if check.RecoverFn == nil {
		return
	}
	err := check.RecoverFn(ctx)
	metrics.HealthRecoveries.WithLabelValues(check.Name, strconv.FormatBool(err == nil)).Inc()
	if err != nil {
		logger.Error("health recovery failed",
			slog.String("check", check.Name),
			slog.String("error", err.Error()),
		)
	}
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkDataDir verifies dir exists and accepts writes.
func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

// checkCatalog verifies every loaded achievement is present in the store.
func checkCatalog(ctx context.Context, db *sqlite.DB, catalog []domain.AchievementDefinition) error {
	stored, err := db.ListCatalog(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}
	have := make(map[string]bool, len(stored))
	for _, def := range stored {
		have[def.ID] = true
	}
	missing := 0
	for _, def := range catalog {
		if !have[def.ID] {
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d achievements not stored", missing, len(catalog))
	}
	return nil
}
