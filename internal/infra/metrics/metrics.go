// Package metrics provides Prometheus metrics for Comrade: workouts, XP,
// achievements, streaks, HTTP requests and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Activity ───────────────────────────────────────────────────────────────

// WorkoutsRecorded tracks recorded workouts by split.
var WorkoutsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "workouts_recorded_total",
	Help:      "Total workouts recorded.",
}, []string{"type"})

// PersonalRecords tracks personal records set.
var PersonalRecords = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "personal_records_total",
	Help:      "Total personal records set.",
})

// XPAwarded tracks XP paid out by source.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded.",
}, []string{"source"})

// LevelUps tracks level-ups by the rank reached.
var LevelUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "level_ups_total",
	Help:      "Total level-ups.",
}, []string{"rank"})

// ─── Achievements ───────────────────────────────────────────────────────────

// AchievementsUnlocked tracks unlocks by rarity.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
}, []string{"rarity"})

// AchievementEvalDuration tracks how long an activity takes to run through the engines.
var AchievementEvalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "comrade",
	Name:      "activity_apply_seconds",
	Help:      "Time spent applying a workout to gamification state.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
})

// ─── Streaks ────────────────────────────────────────────────────────────────

// StreakFreezes tracks freeze attempts by outcome (used, refused).
var StreakFreezes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "streak_freezes_total",
	Help:      "Streak freeze attempts.",
}, []string{"outcome"})

// StreakMilestones tracks milestone streak lengths reached.
var StreakMilestones = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "streak_milestones_total",
	Help:      "Streak milestones reached.",
}, []string{"days"})

// ─── Challenges ─────────────────────────────────────────────────────────────

// ChallengesCompleted tracks completed challenges by period.
var ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "challenges_completed_total",
	Help:      "Total challenges completed.",
}, []string{"period"})

// ─── API ────────────────────────────────────────────────────────────────────

// HTTPRequests tracks API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "http_requests_total",
	Help:      "Total HTTP requests.",
}, []string{"route", "code"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks the health check status (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "comrade",
	Name:      "health_check_status",
	Help:      "Health check status (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "comrade",
	Name:      "health_recoveries_total",
	Help:      "Total health auto-recovery attempts.",
}, []string{"check", "success"})
