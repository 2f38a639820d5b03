package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/comrade-fit/comrade/internal/domain"
	"github.com/comrade-fit/comrade/internal/infra/metrics"
	"github.com/comrade-fit/comrade/internal/infra/sqlite"
)

// historyWindow bounds how far back the live streak view reads.
const historyWindow = 400 * 24 * time.Hour

// estimateWindow is the span averaged for time-to-next-level estimates.
const estimateWindow = 14

// Service runs workouts through the engines and persists the results.
type Service struct {
	db      *sqlite.DB
	clock   Clock
	catalog []domain.AchievementDefinition
	notify  NotifyPolicy
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source. Its location is the user calendar.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifyPolicy sets the quiet-hour policy for notification payloads.
func WithNotifyPolicy(p NotifyPolicy) Option {
	return func(s *Service) { s.notify = p }
}

// NewService creates a gamification service over db and catalog.
func NewService(db *sqlite.DB, catalog []domain.AchievementDefinition, opts ...Option) *Service {
	s := &Service{
		db:      db,
		clock:   CalendarClock{Loc: time.UTC},
		catalog: catalog,
		notify:  DefaultNotifyPolicy(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the achievement catalog the service evaluates.
func (s *Service) Catalog() []domain.AchievementDefinition {
	return s.catalog
}

// ─── Workouts ───────────────────────────────────────────────────────────────

// WorkoutResult is the response to a recorded workout.
type WorkoutResult struct {
	WorkoutID string `json:"workout_id"`
	ActivityOutcome
	Notifications []Notification `json:"notifications,omitempty"`
}

// RecordWorkout stores a workout and applies it to the user's stats in one
// transaction. Personal records are detected against stored bests; any
// records on the event are replaced.
func (s *Service) RecordWorkout(ctx context.Context, ev domain.WorkoutEvent) (*WorkoutResult, error) {
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidWorkout, err)
	}

	now := s.clock.Now()
	at := ev.CompletedAt
	if at.IsZero() {
		at = now
	}
	at = at.In(now.Location())
	if at.After(now) {
		return nil, fmt.Errorf("%w: completed_at %s is in the future", domain.ErrInvalidWorkout, at.Format(time.RFC3339))
	}

	timer := prometheus.NewTimer(metrics.AchievementEvalDuration)
	defer timer.ObserveDuration()

	result := &WorkoutResult{WorkoutID: uuid.NewString()}
	_, err := s.db.UpdateStats(ctx, ev.UserID, func(tx *sqlite.Tx, stats domain.UserGamificationStats) (domain.UserGamificationStats, error) {
		bests, err := tx.PersonalBests(ctx, ev.UserID)
		if err != nil {
			return stats, fmt.Errorf("load personal bests: %w", err)
		}
		prs, updates := DetectPersonalRecords(ev.Sets, bests)
		ev.PersonalRecords = prs
		for _, pr := range updates {
			if err := tx.SetPersonalBest(ctx, ev.UserID, pr, at); err != nil {
				return stats, fmt.Errorf("save personal best: %w", err)
			}
		}

		unlocked, err := tx.UnlockedAchievements(ctx, ev.UserID)
		if err != nil {
			return stats, fmt.Errorf("load unlocked: %w", err)
		}
		var opts []ApplyOption
		source, err := tx.StreakDaySource(ctx, ev.UserID, at)
		if err != nil {
			return stats, fmt.Errorf("load streak day: %w", err)
		}
		if source == domain.StreakDayFreeze {
			opts = append(opts, OnFrozenDay())
		}
		outcome := ApplyWorkout(stats, ev, s.catalog, unlocked, at, opts...)

		for _, u := range outcome.Unlocked {
			rec := domain.UnlockedAchievementRecord{
				ID:            uuid.NewString(),
				UserID:        ev.UserID,
				AchievementID: u.Achievement.ID,
				UnlockedAt:    at,
				Progress:      100,
			}
			if _, err := tx.UnlockAchievement(ctx, rec); err != nil {
				return stats, fmt.Errorf("unlock %s: %w", u.Achievement.ID, err)
			}
		}
		if err := tx.AddStreakDay(ctx, ev.UserID, at, domain.StreakDayWorkout); err != nil {
			return stats, fmt.Errorf("streak day: %w", err)
		}

		completed, err := s.advanceChallenges(ctx, tx, ev, at)
		if err != nil {
			return stats, err
		}
		outcome.AddChallengeRewards(completed)

		if err := tx.InsertWorkout(ctx, result.WorkoutID, ev, at, outcome.XP.Total()); err != nil {
			return stats, err
		}
		result.ActivityOutcome = outcome
		return outcome.Stats, nil
	})
	if err != nil {
		return nil, err
	}

	result.Notifications = s.notify.Notifications(result.ActivityOutcome, at)
	s.observe(ev, result)
	return result, nil
}

func (s *Service) advanceChallenges(ctx context.Context, tx *sqlite.Tx, ev domain.WorkoutEvent, at time.Time) ([]domain.Challenge, error) {
	if err := tx.EnsureChallenges(ctx, ChallengesFor(ev.UserID, at)); err != nil {
		return nil, err
	}
	active, err := tx.ActiveChallenges(ctx, ev.UserID, at)
	if err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}

	var completed []domain.Challenge
	for _, c := range active {
		next, done := AdvanceChallenge(c, ev, at)
		if next.Progress == c.Progress && !done {
			continue
		}
		saved, err := tx.SaveChallengeProgress(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("save challenge %s: %w", c.ID, err)
		}
		if saved && done {
			completed = append(completed, next)
		}
	}
	return completed, nil
}

func (s *Service) observe(ev domain.WorkoutEvent, r *WorkoutResult) {
	metrics.WorkoutsRecorded.WithLabelValues(string(ev.WorkoutType)).Inc()
	metrics.PersonalRecords.Add(float64(len(ev.PersonalRecords)))
	for source, xp := range map[string]int64{
		"workout":         r.XP.Workout,
		"personal_record": r.XP.PersonalRecord,
		"streak":          r.XP.StreakBonus,
		"achievement":     r.XP.Achievements + r.XP.LegendaryBonus,
		"challenge":       r.XP.Challenges,
	} {
		if xp > 0 {
			metrics.XPAwarded.WithLabelValues(source).Add(float64(xp))
		}
	}
	for _, u := range r.Unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(string(u.Achievement.Rarity)).Inc()
	}
	for _, c := range r.CompletedChallenges {
		metrics.ChallengesCompleted.WithLabelValues(string(c.Period)).Inc()
	}
	if r.StreakMilestone > 0 {
		metrics.StreakMilestones.WithLabelValues(strconv.Itoa(r.StreakMilestone)).Inc()
	}
	if r.LevelUp.LeveledUp {
		metrics.LevelUps.WithLabelValues(r.Stats.RankTitle).Inc()
		s.logger.Info("level up",
			slog.String("user_id", ev.UserID),
			slog.Int("old_level", r.LevelUp.OldLevel),
			slog.Int("new_level", r.LevelUp.NewLevel),
		)
	}

	s.logger.Info("workout recorded",
		slog.String("user_id", ev.UserID),
		slog.String("workout_id", r.WorkoutID),
		slog.String("type", string(ev.WorkoutType)),
		slog.Int64("xp", r.XP.Total()),
		slog.Int("streak", r.Stats.CurrentStreak),
		slog.Int("unlocked", len(r.Unlocked)),
	)
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Stats returns the stored stats for a user.
func (s *Service) Stats(ctx context.Context, userID string) (domain.UserGamificationStats, error) {
	stats, err := s.db.GetUserStats(ctx, userID)
	if err != nil {
		return domain.UserGamificationStats{}, fmt.Errorf("load stats: %w", err)
	}
	if stats == nil {
		return domain.UserGamificationStats{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
	}
	return *stats, nil
}

// ProgressReport is the live level and streak view for a user.
type ProgressReport struct {
	Stats         domain.UserGamificationStats `json:"stats"`
	Level         LevelProgress                `json:"level"`
	Streak        StreakResult                 `json:"streak"`
	StreakMessage string                       `json:"streak_message"`
	Freeze        FreezeCheck                  `json:"freeze"`
	NextLevel     Estimate                     `json:"next_level_estimate"`
}

// Progress returns level progress, the streak as of now and whether a
// freeze is available.
func (s *Service) Progress(ctx context.Context, userID string) (*ProgressReport, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	history, err := s.db.StreakHistory(ctx, userID, now.Add(-historyWindow), now.Location())
	if err != nil {
		return nil, fmt.Errorf("load streak history: %w", err)
	}
	lastFreeze, err := s.db.LastStreakFreeze(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load last freeze: %w", err)
	}
	recentXP, err := s.db.XPSince(ctx, userID, startOfDay(now).AddDate(0, 0, -estimateWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent xp: %w", err)
	}

	streak := CalculateStreak(now, stats.LastWorkoutDate, history)
	return &ProgressReport{
		Stats:         stats,
		Level:         GetLevelProgress(stats.TotalXP),
		Streak:        streak,
		StreakMessage: StreakMessage(streak.StreakStatus, streak.CurrentStreak),
		Freeze:        CanUseStreakFreeze(now, lastFreeze, stats.LastWorkoutDate),
		NextLevel:     EstimateTimeToNextLevel(stats.TotalXP, float64(recentXP)/estimateWindow),
	}, nil
}

// UnlockedView is an unlocked achievement with its unlock time.
type UnlockedView struct {
	Achievement domain.AchievementDefinition `json:"achievement"`
	UnlockedAt  time.Time                    `json:"unlocked_at"`
}

// LockedView is a locked achievement with progress toward it.
type LockedView struct {
	Achievement domain.AchievementDefinition `json:"achievement"`
	Progress    ProgressView                 `json:"progress"`
}

// AchievementsReport splits the catalog into unlocked and locked entries.
type AchievementsReport struct {
	Unlocked []UnlockedView `json:"unlocked"`
	Locked   []LockedView   `json:"locked"`
}

// Achievements lists a user's unlocked achievements and progress on the
// locked ones. Locked secret achievements are left out.
func (s *Service) Achievements(ctx context.Context, userID string) (*AchievementsReport, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.db.ListUnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load unlocked: %w", err)
	}
	unlockedAt := make(map[string]time.Time, len(records))
	for _, r := range records {
		unlockedAt[r.AchievementID] = r.UnlockedAt
	}

	report := &AchievementsReport{Unlocked: []UnlockedView{}, Locked: []LockedView{}}
	for _, def := range s.catalog {
		if at, ok := unlockedAt[def.ID]; ok {
			report.Unlocked = append(report.Unlocked, UnlockedView{Achievement: def, UnlockedAt: at})
			continue
		}
		if def.IsSecret {
			continue
		}
		r := EvaluateAchievement(def, stats, domain.AchievementContext{})
		report.Locked = append(report.Locked, LockedView{
			Achievement: def,
			Progress:    AchievementProgress(def, r.Progress),
		})
	}
	return report, nil
}

// AlmostUnlocked returns locked achievements at or above threshold progress.
// A non-positive threshold uses DefaultAlmostThreshold.
func (s *Service) AlmostUnlocked(ctx context.Context, userID string, threshold float64) ([]domain.AchievementDefinition, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.db.ListUnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load unlocked: %w", err)
	}
	almost := GetAlmostUnlockedAchievements(s.catalog, stats, records, threshold)
	if almost == nil {
		almost = []domain.AchievementDefinition{}
	}
	return almost, nil
}

// ─── Streak Freeze ──────────────────────────────────────────────────────────

// FreezeResult describes a freeze that was applied.
type FreezeResult struct {
	FrozenDay time.Time                    `json:"frozen_day"`
	Stats     domain.UserGamificationStats `json:"stats"`
}

// UseStreakFreeze covers yesterday with a freeze when the user missed
// exactly that one day, so the next workout continues the streak. At most
// one freeze is allowed per calendar month.
func (s *Service) UseStreakFreeze(ctx context.Context, userID string) (*FreezeResult, error) {
	now := s.clock.Now()
	yesterday := startOfDay(now).AddDate(0, 0, -1)

	stats, err := s.db.UpdateStats(ctx, userID, func(tx *sqlite.Tx, stats domain.UserGamificationStats) (domain.UserGamificationStats, error) {
		if stats.LastWorkoutDate == nil {
			return stats, domain.ErrNothingToFreeze
		}
		lastFreeze, err := tx.LastStreakFreeze(ctx, userID)
		if err != nil {
			return stats, fmt.Errorf("load last freeze: %w", err)
		}
		check := CanUseStreakFreeze(now, lastFreeze, stats.LastWorkoutDate)
		if !check.CanUse {
			return stats, fmt.Errorf("%w: %s", domain.ErrFreezeUnavailable, check.Reason)
		}
		if daysBetween(*stats.LastWorkoutDate, now, now.Location()) < 2 {
			return stats, domain.ErrNothingToFreeze
		}

		if err := tx.InsertStreakFreeze(ctx, uuid.NewString(), userID, yesterday, now); err != nil {
			return stats, fmt.Errorf("insert freeze: %w", err)
		}
		if err := tx.AddStreakDay(ctx, userID, yesterday, domain.StreakDayFreeze); err != nil {
			return stats, fmt.Errorf("streak day: %w", err)
		}
		stats.LastWorkoutDate = &yesterday
		stats.UpdatedAt = now
		return stats, nil
	})
	if err != nil {
		metrics.StreakFreezes.WithLabelValues("refused").Inc()
		return nil, err
	}

	metrics.StreakFreezes.WithLabelValues("used").Inc()
	s.logger.Info("streak freeze used",
		slog.String("user_id", userID),
		slog.String("day", sqlite.DayKey(yesterday)),
		slog.Int("streak", stats.CurrentStreak),
	)
	return &FreezeResult{FrozenDay: yesterday, Stats: stats}, nil
}

// ─── Challenges ─────────────────────────────────────────────────────────────

// Challenges returns this week's and this month's challenges, creating them
// on first request.
func (s *Service) Challenges(ctx context.Context, userID string) ([]domain.Challenge, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	now := s.clock.Now()
	if err := s.db.EnsureChallenges(ctx, ChallengesFor(userID, now)); err != nil {
		return nil, err
	}
	return s.db.ListChallenges(ctx, userID, now)
}

// CleanupExpiredChallenges removes challenges whose period has ended.
func (s *Service) CleanupExpiredChallenges(ctx context.Context) (int64, error) {
	n, err := s.db.DeleteExpiredChallenges(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("expired challenges removed", slog.Int64("count", n))
	}
	return n, nil
}
