// Package domain holds the gamification types shared by the engines, the
// store and the API. Nothing here touches I/O.
package domain

import "time"

// ─── User Stats ─────────────────────────────────────────────────────────────

// UserGamificationStats is the persisted per-user counter snapshot.
// Engines take one in and hand a new one back; Level and RankTitle are
// always derived from TotalXP.
type UserGamificationStats struct {
	UserID                 string     `json:"user_id"`
	TotalXP                int64      `json:"total_xp"`
	Level                  int        `json:"level"`
	CurrentStreak          int        `json:"current_streak"`
	LongestStreak          int        `json:"longest_streak"`
	LastWorkoutDate        *time.Time `json:"last_workout_date,omitempty"`
	TotalWorkoutsCompleted int        `json:"total_workouts_completed"`
	TotalPRs               int        `json:"total_prs"`
	RankTitle              string     `json:"rank_title"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// NewUserStats returns the starting snapshot for a user with no activity.
func NewUserStats(userID string) UserGamificationStats {
	return UserGamificationStats{
		UserID:    userID,
		Level:     1,
		RankTitle: "Novice",
	}
}

// ─── XP ─────────────────────────────────────────────────────────────────────

// XPAction is a closed set of actions with a fixed XP reward.
type XPAction string

const (
	XPWorkoutCompleted     XPAction = "WORKOUT_COMPLETED"
	XPPRAchieved           XPAction = "PR_ACHIEVED"
	XPStreak7Days          XPAction = "STREAK_7_DAYS"
	XPStreak30Days         XPAction = "STREAK_30_DAYS"
	XPWeeklyChallenge      XPAction = "WEEKLY_CHALLENGE"
	XPMonthlyChallenge     XPAction = "MONTHLY_CHALLENGE"
	XPLegendaryAchievement XPAction = "LEGENDARY_ACHIEVEMENT"
)

// ─── Achievements ───────────────────────────────────────────────────────────

// RequirementType selects how an achievement is evaluated.
type RequirementType string

const (
	ReqWorkouts        RequirementType = "workouts"
	ReqPRs             RequirementType = "prs"
	ReqStreak          RequirementType = "streak"
	ReqWeightThreshold RequirementType = "weight_threshold"
	ReqRepsThreshold   RequirementType = "reps_threshold"
	ReqSpecial         RequirementType = "special"
)

// AllRequirementTypes lists every requirement type in declaration order.
func AllRequirementTypes() []RequirementType {
	return []RequirementType{
		ReqWorkouts, ReqPRs, ReqStreak,
		ReqWeightThreshold, ReqRepsThreshold, ReqSpecial,
	}
}

// Valid reports whether r is a known requirement type.
func (r RequirementType) Valid() bool {
	for _, known := range AllRequirementTypes() {
		if r == known {
			return true
		}
	}
	return false
}

// ContextDependent reports whether the type can only be satisfied by facts
// from the triggering event rather than persisted stats.
func (r RequirementType) ContextDependent() bool {
	return r == ReqWeightThreshold || r == ReqRepsThreshold || r == ReqSpecial
}

// SpecialCondition is the closed set of named "special" achievements.
type SpecialCondition string

const (
	SpecialUnknown          SpecialCondition = ""
	SpecialEarlyBird        SpecialCondition = "Early Bird"
	SpecialNightOwl         SpecialCondition = "Night Owl"
	SpecialBirthdayPR       SpecialCondition = "Birthday PR"
	SpecialComebackKing     SpecialCondition = "Comeback King"
	SpecialSovietComrade    SpecialCondition = "Soviet Comrade"
	SpecialTheUnbreakable   SpecialCondition = "The Unbreakable"
	SpecialPerfectWeek      SpecialCondition = "Perfect Week"
	SpecialRingMaster       SpecialCondition = "Ring Master"
	SpecialBalancedWarrior  SpecialCondition = "Balanced Warrior"
	SpecialDoubleBodyweight SpecialCondition = "Double Bodyweight"
)

// AllSpecialConditions lists every named special condition.
func AllSpecialConditions() []SpecialCondition {
	return []SpecialCondition{
		SpecialEarlyBird, SpecialNightOwl, SpecialBirthdayPR,
		SpecialComebackKing, SpecialSovietComrade, SpecialTheUnbreakable,
		SpecialPerfectWeek, SpecialRingMaster, SpecialBalancedWarrior,
		SpecialDoubleBodyweight,
	}
}

// SpecialConditionFor maps an achievement name onto its special condition.
// Unrecognized names return SpecialUnknown.
func SpecialConditionFor(name string) SpecialCondition {
	for _, c := range AllSpecialConditions() {
		if string(c) == name {
			return c
		}
	}
	return SpecialUnknown
}

// Rarity classifies an achievement for display and notification.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// CategoryMilestone marks early-progress achievements.
const CategoryMilestone = "milestone"

// AchievementDefinition is one immutable catalog entry.
type AchievementDefinition struct {
	ID               string          `toml:"id" json:"id" validate:"required"`
	Name             string          `toml:"name" json:"name" validate:"required"`
	Description      string          `toml:"description" json:"description"`
	Category         string          `toml:"category" json:"category"`
	BadgeIcon        string          `toml:"badge_icon" json:"badge_icon,omitempty"`
	RequirementType  RequirementType `toml:"requirement_type" json:"requirement_type" validate:"required,oneof=workouts prs streak weight_threshold reps_threshold special"`
	RequirementValue *float64        `toml:"requirement_value" json:"requirement_value,omitempty" validate:"omitempty,gte=0"`
	ExerciseSpecific string          `toml:"exercise_specific" json:"exercise_specific,omitempty"`
	Rarity           Rarity          `toml:"rarity" json:"rarity" validate:"required,oneof=common rare epic legendary"`
	IsSecret         bool            `toml:"is_secret" json:"is_secret"`
	XPReward         int64           `toml:"xp_reward" json:"xp_reward" validate:"gte=0"`
}

// Requirement returns the requirement value, or 0 when absent.
func (d AchievementDefinition) Requirement() float64 {
	if d.RequirementValue == nil {
		return 0
	}
	return *d.RequirementValue
}

// UnlockedAchievementRecord pairs a user with an unlocked achievement.
// The set only grows.
type UnlockedAchievementRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
	Progress      float64   `json:"progress"`
}

// ExercisePerformance describes a single exercise done in the current event.
type ExercisePerformance struct {
	ExerciseName string  `json:"exercise_name"`
	Weight       float64 `json:"weight"`
	Reps         int     `json:"reps"`
}

// AchievementContext carries event-scoped facts. It is built fresh for each
// evaluation and never persisted.
type AchievementContext struct {
	WorkoutJustCompleted bool        `json:"workout_just_completed,omitempty"`
	WorkoutType          WorkoutType `json:"workout_type,omitempty"`
	WorkoutTime          time.Time   `json:"workout_time,omitempty"`

	PRJustAchieved bool     `json:"pr_just_achieved,omitempty"`
	PRExercise     string   `json:"pr_exercise,omitempty"`
	PRWeight       *float64 `json:"pr_weight,omitempty"`
	PRReps         int      `json:"pr_reps,omitempty"`

	ExercisePerformance *ExercisePerformance `json:"exercise_performance,omitempty"`

	IsBirthday           bool `json:"is_birthday,omitempty"`
	IsEarlyMorning       bool `json:"is_early_morning,omitempty"` // before 06:00
	IsLateNight          bool `json:"is_late_night,omitempty"`    // 22:00 or later
	DaysSinceLastWorkout *int `json:"days_since_last_workout,omitempty"`
}

// ─── Streaks ────────────────────────────────────────────────────────────────

// StreakStatus is derived from the gap since the last workout.
type StreakStatus string

const (
	StreakActive StreakStatus = "active"
	StreakAtRisk StreakStatus = "at_risk"
	StreakBroken StreakStatus = "broken"
)

// StreakDaySource records why a calendar day counts toward a streak.
type StreakDaySource string

const (
	StreakDayWorkout StreakDaySource = "workout"
	StreakDayFreeze  StreakDaySource = "freeze"
)

// WorkoutHistoryEntry is one dated entry in a user's streak history.
type WorkoutHistoryEntry struct {
	Date        time.Time       `json:"date"`
	WorkoutType WorkoutType     `json:"workout_type,omitempty"`
	Source      StreakDaySource `json:"source"`
}

// ─── Workouts ───────────────────────────────────────────────────────────────

// WorkoutType is the training split of a session.
type WorkoutType string

const (
	WorkoutPush WorkoutType = "push"
	WorkoutPull WorkoutType = "pull"
	WorkoutLegs WorkoutType = "legs"
)

// WorkoutSet is one logged set.
type WorkoutSet struct {
	Exercise  string   `json:"exercise" validate:"required"`
	SetNumber int      `json:"set_number" validate:"gte=0"`
	Reps      int      `json:"reps" validate:"gte=0"`
	WeightKG  *float64 `json:"weight_kg,omitempty" validate:"omitempty,gte=0"`
}

// PersonalRecord is a set that beat the user's previous best for an exercise.
type PersonalRecord struct {
	Exercise string  `json:"exercise"`
	WeightKG float64 `json:"weight_kg"`
	Reps     int     `json:"reps"`
}

// WorkoutEvent is the "activity recorded" trigger.
type WorkoutEvent struct {
	UserID          string           `json:"user_id" validate:"required"`
	WorkoutType     WorkoutType      `json:"workout_type" validate:"required,oneof=push pull legs"`
	CompletedAt     time.Time        `json:"completed_at"`
	Sets            []WorkoutSet     `json:"sets" validate:"dive"`
	PersonalRecords []PersonalRecord `json:"personal_records,omitempty"`
	Birthday        *time.Time       `json:"birthday,omitempty"`
}

// ─── Challenges ─────────────────────────────────────────────────────────────

// ChallengePeriod is how long a challenge runs.
type ChallengePeriod string

const (
	ChallengeWeekly  ChallengePeriod = "weekly"
	ChallengeMonthly ChallengePeriod = "monthly"
)

// ChallengeMetric is what a challenge counts.
type ChallengeMetric string

const (
	MetricWorkouts     ChallengeMetric = "workouts"
	MetricPRs          ChallengeMetric = "prs"
	MetricPushSessions ChallengeMetric = "push_sessions"
	MetricPullSessions ChallengeMetric = "pull_sessions"
	MetricLegSessions  ChallengeMetric = "leg_sessions"
)

// Challenge is a time-boxed goal with progress tracking.
type Challenge struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Period      ChallengePeriod `json:"period"`
	Metric      ChallengeMetric `json:"metric"`
	Description string          `json:"description"`
	Target      int             `json:"target"`
	Progress    int             `json:"progress"`
	RewardXP    int64           `json:"reward_xp"`
	StartsAt    time.Time       `json:"starts_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Completed   bool            `json:"completed"`
}

// IsExpired reports whether the deadline has passed at now.
func (c Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ProgressPct returns completion percentage (0-100).
func (c Challenge) ProgressPct() float64 {
	if c.Target <= 0 {
		return 100.0
	}
	pct := float64(c.Progress) / float64(c.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// ChallengeTemplate defines the pool of possible challenges.
type ChallengeTemplate struct {
	Period      ChallengePeriod `json:"period"`
	Metric      ChallengeMetric `json:"metric"`
	Target      int             `json:"target"`
	Description string          `json:"description"`
}
