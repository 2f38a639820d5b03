// Package sqlite provides SQLite-based persistent storage for Comrade.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer. One connection also serializes every
	// read-modify-write of a user's stats.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// PingContext checks database connectivity, honoring ctx.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS user_gamification (
			user_id           TEXT PRIMARY KEY,
			total_xp          INTEGER NOT NULL DEFAULT 0,
			level             INTEGER NOT NULL DEFAULT 1,
			current_streak    INTEGER NOT NULL DEFAULT 0,
			longest_streak    INTEGER NOT NULL DEFAULT 0,
			last_workout_at   INTEGER,
			total_workouts    INTEGER NOT NULL DEFAULT 0,
			total_prs         INTEGER NOT NULL DEFAULT 0,
			rank_title        TEXT NOT NULL DEFAULT 'Novice',
			updated_at        INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS achievements (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			category          TEXT NOT NULL DEFAULT '',
			badge_icon        TEXT NOT NULL DEFAULT '',
			requirement_type  TEXT NOT NULL,
			requirement_value REAL,
			exercise_specific TEXT NOT NULL DEFAULT '',
			rarity            TEXT NOT NULL,
			is_secret         BOOLEAN NOT NULL DEFAULT 0,
			xp_reward         INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS user_achievements (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			achievement_id TEXT NOT NULL,
			unlocked_at    INTEGER NOT NULL,
			progress       REAL NOT NULL DEFAULT 0,
			UNIQUE(user_id, achievement_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_achievements_user ON user_achievements(user_id)`,

		`CREATE TABLE IF NOT EXISTS workouts (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			workout_type TEXT NOT NULL,
			completed_at INTEGER NOT NULL,
			xp_earned    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_user ON workouts(user_id, completed_at)`,

		`CREATE TABLE IF NOT EXISTS workout_sets (
			workout_id TEXT NOT NULL REFERENCES workouts(id) ON DELETE CASCADE,
			set_number INTEGER NOT NULL,
			exercise   TEXT NOT NULL,
			reps       INTEGER NOT NULL,
			weight_kg  REAL,
			PRIMARY KEY (workout_id, set_number, exercise)
		)`,

		`CREATE TABLE IF NOT EXISTS personal_bests (
			user_id     TEXT NOT NULL,
			exercise    TEXT NOT NULL,
			weight_kg   REAL NOT NULL,
			reps        INTEGER NOT NULL,
			achieved_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, exercise)
		)`,

		// One row per civil day that counts toward a streak.
		`CREATE TABLE IF NOT EXISTS streak_days (
			user_id TEXT NOT NULL,
			day     TEXT NOT NULL,
			source  TEXT NOT NULL DEFAULT 'workout',
			PRIMARY KEY (user_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS streak_freezes (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			frozen_day  TEXT NOT NULL,
			used_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_streak_freezes_user ON streak_freezes(user_id, used_at)`,

		`CREATE TABLE IF NOT EXISTS challenges (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			period      TEXT NOT NULL,
			metric      TEXT NOT NULL,
			description TEXT NOT NULL,
			target      INTEGER NOT NULL,
			progress    INTEGER NOT NULL DEFAULT 0,
			reward_xp   INTEGER NOT NULL,
			starts_at   INTEGER NOT NULL,
			expires_at  INTEGER NOT NULL,
			completed   BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_user ON challenges(user_id, expires_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// DayKey formats t's civil date as stored in streak_days.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
