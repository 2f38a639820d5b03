// Package gamification implements the workout gamification engine:
// XP and levels, streaks with a monthly freeze, achievement rules and
// weekly/monthly challenges.
//
// The engines in level.go, streak.go and achievement.go are pure; they take a
// reference time and a snapshot and return new values. Service wires them to
// the store.
package gamification

import (
	"fmt"
	"sort"
	"time"

	"github.com/comrade-fit/comrade/internal/domain"
)

// All day arithmetic happens on civil dates in the location of the reference
// time, so a workout at 23:30 and one at 00:10 are a day apart regardless of
// the 40 minutes between them.

// civilDay returns t's calendar date in loc as UTC midnight.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of calendar days from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	return int(civilDay(b, loc).Sub(civilDay(a, loc)).Hours() / 24)
}

// startOfDay returns local midnight of t in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StreakResult is the live streak view as of a reference time.
type StreakResult struct {
	CurrentStreak   int                 `json:"current_streak"`
	StreakStatus    domain.StreakStatus `json:"streak_status"`
	CanUseMulligan  bool                `json:"can_use_mulligan"`
	LastWorkoutDate *time.Time          `json:"last_workout_date,omitempty"`
	NextWorkoutDate *time.Time          `json:"next_workout_date,omitempty"`
}

// CalculateStreak derives streak length and status at now.
//   - no last workout: broken
//   - last workout today: active
//   - yesterday: at risk, mulligan offered
//   - two or more days ago: broken, mulligan offered only for a single missed day
func CalculateStreak(now time.Time, lastWorkout *time.Time, history []domain.WorkoutHistoryEntry) StreakResult {
	if lastWorkout == nil {
		return StreakResult{StreakStatus: domain.StreakBroken}
	}

	loc := now.Location()
	last := *lastWorkout
	today := startOfDay(now)
	gap := daysBetween(last, now, loc)

	switch {
	case gap == 1:
		return StreakResult{
			CurrentStreak:   consecutiveDays(now, history),
			StreakStatus:    domain.StreakAtRisk,
			CanUseMulligan:  true,
			LastWorkoutDate: &last,
			NextWorkoutDate: &today,
		}
	case gap > 1:
		return StreakResult{
			CurrentStreak:   0,
			StreakStatus:    domain.StreakBroken,
			CanUseMulligan:  gap == 2,
			LastWorkoutDate: &last,
			NextWorkoutDate: &today,
		}
	}

	// Today, or a last date ahead of now.
	return StreakResult{
		CurrentStreak:   consecutiveDays(now, history),
		StreakStatus:    domain.StreakActive,
		LastWorkoutDate: &last,
	}
}

// consecutiveDays walks history newest-first from today, counting entries
// while each is at most one day before the previous one. Freeze days keep
// the chain unbroken but do not add to it.
func consecutiveDays(now time.Time, history []domain.WorkoutHistoryEntry) int {
	if len(history) == 0 {
		return 0
	}
	loc := now.Location()

	sorted := make([]domain.WorkoutHistoryEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	streak := 0
	cursor := now
	for _, entry := range sorted {
		diff := daysBetween(entry.Date, cursor, loc)
		if diff != 0 && diff != 1 {
			break
		}
		if entry.Source != domain.StreakDayFreeze {
			streak++
		}
		cursor = entry.Date
	}
	return streak
}

// StreakUpdate is the outcome of logging a workout against a stored streak.
type StreakUpdate struct {
	NewStreak        int  `json:"new_streak"`
	StreakIncreased  bool `json:"streak_increased"`
	StreakMaintained bool `json:"streak_maintained"`
}

// UpdateStreakAfterWorkout advances a stored streak for a workout at
// newWorkout. Same day keeps it, next day extends it, anything later resets
// it to 1. A workout dated before lastWorkout leaves the streak untouched.
func UpdateStreakAfterWorkout(currentStreak int, lastWorkout *time.Time, newWorkout time.Time) StreakUpdate {
	if lastWorkout == nil {
		return StreakUpdate{NewStreak: 1, StreakIncreased: true}
	}

	gap := daysBetween(*lastWorkout, newWorkout, newWorkout.Location())
	switch {
	case gap <= 0:
		return StreakUpdate{NewStreak: currentStreak, StreakMaintained: true}
	case gap == 1:
		return StreakUpdate{NewStreak: currentStreak + 1, StreakIncreased: true, StreakMaintained: true}
	default:
		return StreakUpdate{NewStreak: 1}
	}
}

// UpdateStreakOnFrozenDay advances a stored streak for a workout logged on a
// day already covered by a freeze. The freeze bridged that day without
// counting it, so a workout there lengthens the run it sits in. A frozen
// day outside the current run falls back to UpdateStreakAfterWorkout.
func UpdateStreakOnFrozenDay(currentStreak int, lastWorkout *time.Time, newWorkout time.Time) StreakUpdate {
	if lastWorkout == nil || currentStreak <= 0 {
		return UpdateStreakAfterWorkout(currentStreak, lastWorkout, newWorkout)
	}
	back := daysBetween(newWorkout, *lastWorkout, newWorkout.Location())
	if back < 0 || back > currentStreak {
		return UpdateStreakAfterWorkout(currentStreak, lastWorkout, newWorkout)
	}
	return StreakUpdate{NewStreak: currentStreak + 1, StreakIncreased: true, StreakMaintained: true}
}

// FreezeCheck says whether a streak freeze may be used now.
type FreezeCheck struct {
	CanUse bool   `json:"can_use"`
	Reason string `json:"reason,omitempty"`
}

// CanUseStreakFreeze allows one freeze per calendar month, and only while the
// lapse is a single missed day.
func CanUseStreakFreeze(now time.Time, lastFreeze, lastWorkout *time.Time) FreezeCheck {
	loc := now.Location()

	if lastFreeze != nil {
		f := lastFreeze.In(loc)
		if f.Year() == now.Year() && f.Month() == now.Month() {
			return FreezeCheck{Reason: "Already used streak freeze this month"}
		}
	}

	if lastWorkout != nil && daysBetween(*lastWorkout, now, loc) > 2 {
		return FreezeCheck{Reason: "Too late to use streak freeze (must be used within 24 hours)"}
	}

	return FreezeCheck{CanUse: true}
}

var streakMilestones = []int{7, 14, 30, 60, 90, 180, 365}

// StreakMilestone reports whether streak is exactly one of the milestone lengths.
func StreakMilestone(streak int) (int, bool) {
	for _, m := range streakMilestones {
		if streak == m {
			return m, true
		}
	}
	return 0, false
}

// StreakMessage returns the banner copy for a streak status.
func StreakMessage(status domain.StreakStatus, streak int) string {
	switch status {
	case domain.StreakBroken:
		return "Start a new streak today!"
	case domain.StreakAtRisk:
		return fmt.Sprintf("Don't break your %d-day streak! Workout today.", streak)
	case domain.StreakActive:
		return fmt.Sprintf("%d day streak! Keep it going!", streak)
	}
	return ""
}
