package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comrade-fit/comrade/internal/domain"
)

// Tx is an open write transaction. It is only valid inside the callback
// that received it.
type Tx struct {
	tx *sql.Tx
}

// UpdateStats loads userID's stats (or a fresh snapshot for a new user),
// passes them to fn together with the transaction, and stores what fn
// returns. Everything fn writes through tx commits or rolls back with it.
func (d *DB) UpdateStats(
	ctx context.Context,
	userID string,
	fn func(tx *Tx, stats domain.UserGamificationStats) (domain.UserGamificationStats, error),
) (domain.UserGamificationStats, error) {
	if userID == "" {
		return domain.UserGamificationStats{}, domain.ErrInvalidUser
	}

	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UserGamificationStats{}, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	current, err := getStats(ctx, sqlTx, userID)
	if err != nil {
		return domain.UserGamificationStats{}, err
	}
	stats := domain.NewUserStats(userID)
	if current != nil {
		stats = *current
	}

	next, err := fn(&Tx{tx: sqlTx}, stats)
	if err != nil {
		return domain.UserGamificationStats{}, err
	}
	next.UserID = userID
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now()
	}
	if err := upsertStats(ctx, sqlTx, next); err != nil {
		return domain.UserGamificationStats{}, fmt.Errorf("save stats: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return domain.UserGamificationStats{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// ─── User Stats ─────────────────────────────────────────────────────────────

// GetUserStats returns a user's stats, or nil if the user has none.
func (d *DB) GetUserStats(ctx context.Context, userID string) (*domain.UserGamificationStats, error) {
	return getStats(ctx, d.db, userID)
}

func getStats(ctx context.Context, q querier, userID string) (*domain.UserGamificationStats, error) {
	row := q.QueryRowContext(ctx,
		`SELECT user_id, total_xp, level, current_streak, longest_streak, last_workout_at,
		        total_workouts, total_prs, rank_title, updated_at
		 FROM user_gamification WHERE user_id = ?`, userID,
	)
	var s domain.UserGamificationStats
	var lastWorkout sql.NullInt64
	var updatedAt int64
	err := row.Scan(&s.UserID, &s.TotalXP, &s.Level, &s.CurrentStreak, &s.LongestStreak,
		&lastWorkout, &s.TotalWorkoutsCompleted, &s.TotalPRs, &s.RankTitle, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}
	if lastWorkout.Valid {
		t := time.Unix(lastWorkout.Int64, 0)
		s.LastWorkoutDate = &t
	}
	s.UpdatedAt = time.Unix(updatedAt, 0)
	return &s, nil
}

func upsertStats(ctx context.Context, q querier, s domain.UserGamificationStats) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO user_gamification (user_id, total_xp, level, current_streak, longest_streak,
		        last_workout_at, total_workouts, total_prs, rank_title, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_xp=excluded.total_xp,
			level=excluded.level,
			current_streak=excluded.current_streak,
			longest_streak=excluded.longest_streak,
			last_workout_at=excluded.last_workout_at,
			total_workouts=excluded.total_workouts,
			total_prs=excluded.total_prs,
			rank_title=excluded.rank_title,
			updated_at=excluded.updated_at`,
		s.UserID, s.TotalXP, s.Level, s.CurrentStreak, s.LongestStreak,
		nullableUnix(s.LastWorkoutDate), s.TotalWorkoutsCompleted, s.TotalPRs,
		s.RankTitle, s.UpdatedAt.Unix(),
	)
	return err
}

// ─── Achievement Catalog ────────────────────────────────────────────────────

// SyncCatalog upserts every catalog definition.
func (d *DB) SyncCatalog(ctx context.Context, defs []domain.AchievementDefinition) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, def := range defs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO achievements (id, name, description, category, badge_icon, requirement_type,
			        requirement_value, exercise_specific, rarity, is_secret, xp_reward)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				name=excluded.name,
				description=excluded.description,
				category=excluded.category,
				badge_icon=excluded.badge_icon,
				requirement_type=excluded.requirement_type,
				requirement_value=excluded.requirement_value,
				exercise_specific=excluded.exercise_specific,
				rarity=excluded.rarity,
				is_secret=excluded.is_secret,
				xp_reward=excluded.xp_reward`,
			def.ID, def.Name, def.Description, def.Category, def.BadgeIcon, string(def.RequirementType),
			nullableFloat(def.RequirementValue), def.ExerciseSpecific, string(def.Rarity),
			def.IsSecret, def.XPReward,
		)
		if err != nil {
			return fmt.Errorf("upsert achievement %s: %w", def.ID, err)
		}
	}
	return tx.Commit()
}

// ListCatalog returns the stored catalog ordered by id.
func (d *DB) ListCatalog(ctx context.Context) ([]domain.AchievementDefinition, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, description, category, badge_icon, requirement_type,
		        requirement_value, exercise_specific, rarity, is_secret, xp_reward
		 FROM achievements ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []domain.AchievementDefinition
	for rows.Next() {
		var def domain.AchievementDefinition
		var reqType, rarity string
		var reqValue sql.NullFloat64
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &def.Category, &def.BadgeIcon,
			&reqType, &reqValue, &def.ExerciseSpecific, &rarity, &def.IsSecret, &def.XPReward); err != nil {
			return nil, err
		}
		def.RequirementType = domain.RequirementType(reqType)
		def.Rarity = domain.Rarity(rarity)
		if reqValue.Valid {
			v := reqValue.Float64
			def.RequirementValue = &v
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// ─── Unlocked Achievements ──────────────────────────────────────────────────

// ListUnlockedAchievements returns a user's unlocks, oldest first.
func (d *DB) ListUnlockedAchievements(ctx context.Context, userID string) ([]domain.UnlockedAchievementRecord, error) {
	return listUnlocked(ctx, d.db, userID)
}

// UnlockedAchievements returns a user's unlocks inside the transaction.
func (t *Tx) UnlockedAchievements(ctx context.Context, userID string) ([]domain.UnlockedAchievementRecord, error) {
	return listUnlocked(ctx, t.tx, userID)
}

func listUnlocked(ctx context.Context, q querier, userID string) ([]domain.UnlockedAchievementRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, achievement_id, unlocked_at, progress
		 FROM user_achievements WHERE user_id = ? ORDER BY unlocked_at, achievement_id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UnlockedAchievementRecord
	for rows.Next() {
		var r domain.UnlockedAchievementRecord
		var unlockedAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.AchievementID, &unlockedAt, &r.Progress); err != nil {
			return nil, err
		}
		r.UnlockedAt = time.Unix(unlockedAt, 0)
		records = append(records, r)
	}
	return records, rows.Err()
}

// UnlockAchievement records an unlock. It returns false if the user already
// had it; the unlocked set never shrinks or duplicates.
func (t *Tx) UnlockAchievement(ctx context.Context, r domain.UnlockedAchievementRecord) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_achievements (id, user_id, achievement_id, unlocked_at, progress)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.AchievementID, r.UnlockedAt.Unix(), r.Progress,
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ─── Workouts & Personal Bests ──────────────────────────────────────────────

// InsertWorkout stores a workout and its sets.
func (t *Tx) InsertWorkout(ctx context.Context, id string, ev domain.WorkoutEvent, at time.Time, xpEarned int64) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO workouts (id, user_id, workout_type, completed_at, xp_earned) VALUES (?, ?, ?, ?, ?)`,
		id, ev.UserID, string(ev.WorkoutType), at.Unix(), xpEarned,
	)
	if err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}
	for i, s := range ev.Sets {
		setNumber := s.SetNumber
		if setNumber == 0 {
			setNumber = i + 1
		}
		_, err := t.tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO workout_sets (workout_id, set_number, exercise, reps, weight_kg)
			 VALUES (?, ?, ?, ?, ?)`,
			id, setNumber, s.Exercise, s.Reps, nullableFloat(s.WeightKG),
		)
		if err != nil {
			return fmt.Errorf("insert set: %w", err)
		}
	}
	return nil
}

// XPSince sums XP earned from workouts completed at or after since.
func (d *DB) XPSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total int64
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(xp_earned), 0) FROM workouts WHERE user_id = ? AND completed_at >= ?`,
		userID, since.Unix(),
	).Scan(&total)
	return total, err
}

// PersonalBests returns the best weight per exercise inside the transaction.
func (t *Tx) PersonalBests(ctx context.Context, userID string) (map[string]float64, error) {
	return personalBests(ctx, t.tx, userID)
}

// PersonalBests returns the best weight per exercise.
func (d *DB) PersonalBests(ctx context.Context, userID string) (map[string]float64, error) {
	return personalBests(ctx, d.db, userID)
}

func personalBests(ctx context.Context, q querier, userID string) (map[string]float64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT exercise, weight_kg FROM personal_bests WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bests := make(map[string]float64)
	for rows.Next() {
		var exercise string
		var weight float64
		if err := rows.Scan(&exercise, &weight); err != nil {
			return nil, err
		}
		bests[exercise] = weight
	}
	return bests, rows.Err()
}

// SetPersonalBest replaces the stored best for pr.Exercise.
func (t *Tx) SetPersonalBest(ctx context.Context, userID string, pr domain.PersonalRecord, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO personal_bests (user_id, exercise, weight_kg, reps, achieved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, exercise) DO UPDATE SET
			weight_kg=excluded.weight_kg,
			reps=excluded.reps,
			achieved_at=excluded.achieved_at`,
		userID, pr.Exercise, pr.WeightKG, pr.Reps, at.Unix(),
	)
	return err
}

// ─── Streak Days & Freezes ──────────────────────────────────────────────────

// AddStreakDay marks day as counting toward the user's streak. A workout
// replaces a freeze on the same day; a freeze never replaces a workout.
func (t *Tx) AddStreakDay(ctx context.Context, userID string, day time.Time, source domain.StreakDaySource) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO streak_days (user_id, day, source) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, day) DO UPDATE SET source = excluded.source
		 WHERE excluded.source = 'workout'`,
		userID, DayKey(day), string(source),
	)
	return err
}

// StreakDaySource returns the stored source for day, or "" when the day
// has no row.
func (t *Tx) StreakDaySource(ctx context.Context, userID string, day time.Time) (domain.StreakDaySource, error) {
	var source string
	err := t.tx.QueryRowContext(ctx,
		`SELECT source FROM streak_days WHERE user_id = ? AND day = ?`,
		userID, DayKey(day),
	).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.StreakDaySource(source), nil
}

// StreakHistory returns streak days on or after since, newest first. Days
// are parsed as midnight in loc.
func (d *DB) StreakHistory(ctx context.Context, userID string, since time.Time, loc *time.Location) ([]domain.WorkoutHistoryEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT day, source FROM streak_days WHERE user_id = ? AND day >= ? ORDER BY day DESC`,
		userID, DayKey(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.WorkoutHistoryEntry
	for rows.Next() {
		var day, source string
		if err := rows.Scan(&day, &source); err != nil {
			return nil, err
		}
		date, err := time.ParseInLocation(time.DateOnly, day, loc)
		if err != nil {
			return nil, fmt.Errorf("parse streak day %q: %w", day, err)
		}
		history = append(history, domain.WorkoutHistoryEntry{
			Date:   date,
			Source: domain.StreakDaySource(source),
		})
	}
	return history, rows.Err()
}

// InsertStreakFreeze records a freeze covering day.
func (t *Tx) InsertStreakFreeze(ctx context.Context, id, userID string, day, usedAt time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO streak_freezes (id, user_id, frozen_day, used_at) VALUES (?, ?, ?, ?)`,
		id, userID, DayKey(day), usedAt.Unix(),
	)
	return err
}

// LastStreakFreeze returns when the user last used a freeze, or nil.
func (t *Tx) LastStreakFreeze(ctx context.Context, userID string) (*time.Time, error) {
	return lastFreeze(ctx, t.tx, userID)
}

// LastStreakFreeze returns when the user last used a freeze, or nil.
func (d *DB) LastStreakFreeze(ctx context.Context, userID string) (*time.Time, error) {
	return lastFreeze(ctx, d.db, userID)
}

func lastFreeze(ctx context.Context, q querier, userID string) (*time.Time, error) {
	var usedAt sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT MAX(used_at) FROM streak_freezes WHERE user_id = ?`, userID,
	).Scan(&usedAt)
	if err != nil {
		return nil, err
	}
	if !usedAt.Valid {
		return nil, nil
	}
	t := time.Unix(usedAt.Int64, 0)
	return &t, nil
}

// ─── Challenges ─────────────────────────────────────────────────────────────

// EnsureChallenges inserts challenges that are not stored yet.
func (t *Tx) EnsureChallenges(ctx context.Context, cs []domain.Challenge) error {
	return ensureChallenges(ctx, t.tx, cs)
}

// EnsureChallenges inserts challenges that are not stored yet.
func (d *DB) EnsureChallenges(ctx context.Context, cs []domain.Challenge) error {
	return ensureChallenges(ctx, d.db, cs)
}

func ensureChallenges(ctx context.Context, q querier, cs []domain.Challenge) error {
	for _, c := range cs {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO challenges (id, user_id, period, metric, description, target,
			        progress, reward_xp, starts_at, expires_at, completed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.UserID, string(c.Period), string(c.Metric), c.Description, c.Target,
			c.Progress, c.RewardXP, c.StartsAt.Unix(), c.ExpiresAt.Unix(), c.Completed,
		)
		if err != nil {
			return fmt.Errorf("insert challenge %s: %w", c.ID, err)
		}
	}
	return nil
}

// ActiveChallenges returns challenges running at now inside the transaction.
func (t *Tx) ActiveChallenges(ctx context.Context, userID string, now time.Time) ([]domain.Challenge, error) {
	return listChallenges(ctx, t.tx, userID, now)
}

// ListChallenges returns the user's challenges running at now, completed
// ones included.
func (d *DB) ListChallenges(ctx context.Context, userID string, now time.Time) ([]domain.Challenge, error) {
	return listChallenges(ctx, d.db, userID, now)
}

func listChallenges(ctx context.Context, q querier, userID string, now time.Time) ([]domain.Challenge, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, period, metric, description, target, progress, reward_xp,
		        starts_at, expires_at, completed
		 FROM challenges WHERE user_id = ? AND starts_at <= ? AND expires_at > ?
		 ORDER BY period DESC, expires_at, id`,
		userID, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cs []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

func scanChallenge(s scanner) (domain.Challenge, error) {
	var c domain.Challenge
	var period, metric string
	var startsAt, expiresAt int64
	err := s.Scan(&c.ID, &c.UserID, &period, &metric, &c.Description, &c.Target,
		&c.Progress, &c.RewardXP, &startsAt, &expiresAt, &c.Completed)
	if err != nil {
		return c, err
	}
	c.Period = domain.ChallengePeriod(period)
	c.Metric = domain.ChallengeMetric(metric)
	c.StartsAt = time.Unix(startsAt, 0)
	c.ExpiresAt = time.Unix(expiresAt, 0)
	return c, nil
}

// SaveChallengeProgress stores progress and completion for an open
// challenge. It returns false if the challenge was already completed.
func (t *Tx) SaveChallengeProgress(ctx context.Context, c domain.Challenge) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE challenges SET progress = MIN(?, target), completed = ? WHERE id = ? AND completed = 0`,
		c.Progress, c.Completed, c.ID,
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteExpiredChallenges removes challenges that expired before the given time.
func (d *DB) DeleteExpiredChallenges(ctx context.Context, before time.Time) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM challenges WHERE expires_at <= ?`, before.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
