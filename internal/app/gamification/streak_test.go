package gamification_test

import (
	"testing"
	"time"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
)

var streakNow = time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return streakNow.AddDate(0, 0, -n)
}

func ptr[T any](v T) *T { return &v }

func history(days ...int) []domain.WorkoutHistoryEntry {
	var out []domain.WorkoutHistoryEntry
	for _, d := range days {
		out = append(out, domain.WorkoutHistoryEntry{Date: daysAgo(d), Source: domain.StreakDayWorkout})
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// Live Streak
// ═══════════════════════════════════════════════════════════════════════════

func TestCalculateStreak_NoWorkouts(t *testing.T) {
	r := gamification.CalculateStreak(streakNow, nil, nil)
	if r.StreakStatus != domain.StreakBroken || r.CurrentStreak != 0 || r.CanUseMulligan {
		t.Errorf("got %+v", r)
	}
}

func TestCalculateStreak_Statuses(t *testing.T) {
	tests := []struct {
		name         string
		last         time.Time
		history      []domain.WorkoutHistoryEntry
		wantStatus   domain.StreakStatus
		wantStreak   int
		wantMulligan bool
	}{
		{"today", streakNow.Add(-2 * time.Hour), history(0, 1, 2), domain.StreakActive, 3, false},
		{"yesterday", daysAgo(1), history(1, 2), domain.StreakAtRisk, 2, true},
		{"two days", daysAgo(2), history(2, 3), domain.StreakBroken, 0, true},
		{"three days", daysAgo(3), history(3), domain.StreakBroken, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gamification.CalculateStreak(streakNow, ptr(tt.last), tt.history)
			if r.StreakStatus != tt.wantStatus {
				t.Errorf("status = %s, want %s", r.StreakStatus, tt.wantStatus)
			}
			if r.CurrentStreak != tt.wantStreak {
				t.Errorf("streak = %d, want %d", r.CurrentStreak, tt.wantStreak)
			}
			if r.CanUseMulligan != tt.wantMulligan {
				t.Errorf("mulligan = %v, want %v", r.CanUseMulligan, tt.wantMulligan)
			}
		})
	}
}

func TestCalculateStreak_AtRiskNextWorkoutIsToday(t *testing.T) {
	r := gamification.CalculateStreak(streakNow, ptr(daysAgo(1)), history(1))
	if r.NextWorkoutDate == nil {
		t.Fatal("expected a next workout date")
	}
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !r.NextWorkoutDate.Equal(want) {
		t.Errorf("next = %v, want %v", r.NextWorkoutDate, want)
	}
}

func TestCalculateStreak_GapEndsChain(t *testing.T) {
	r := gamification.CalculateStreak(streakNow, ptr(streakNow), history(0, 1, 3, 4))
	if r.CurrentStreak != 2 {
		t.Errorf("streak = %d, want 2", r.CurrentStreak)
	}
}

func TestCalculateStreak_FreezeBridgesWithoutCounting(t *testing.T) {
	h := []domain.WorkoutHistoryEntry{
		{Date: daysAgo(0), Source: domain.StreakDayWorkout},
		{Date: daysAgo(1), Source: domain.StreakDayFreeze},
		{Date: daysAgo(2), Source: domain.StreakDayWorkout},
	}
	r := gamification.CalculateStreak(streakNow, ptr(streakNow), h)
	if r.CurrentStreak != 2 {
		t.Errorf("streak = %d, want 2", r.CurrentStreak)
	}
}

func TestCalculateStreak_UsesReferenceLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 23:30 UTC on the 14th is 08:30 on the 15th in Tokyo.
	last := time.Date(2025, 6, 14, 23, 30, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 20, 0, 0, 0, tokyo)
	r := gamification.CalculateStreak(now, &last, nil)
	if r.StreakStatus != domain.StreakActive {
		t.Errorf("status = %s, want active in Tokyo calendar", r.StreakStatus)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Update
// ═══════════════════════════════════════════════════════════════════════════

func TestUpdateStreakAfterWorkout(t *testing.T) {
	tests := []struct {
		name    string
		current int
		last    *time.Time
		want    gamification.StreakUpdate
	}{
		{"first ever", 0, nil, gamification.StreakUpdate{NewStreak: 1, StreakIncreased: true}},
		{"next day", 5, ptr(daysAgo(1)), gamification.StreakUpdate{NewStreak: 6, StreakIncreased: true, StreakMaintained: true}},
		{"same day", 5, ptr(streakNow), gamification.StreakUpdate{NewStreak: 5, StreakMaintained: true}},
		{"lapsed", 5, ptr(daysAgo(3)), gamification.StreakUpdate{NewStreak: 1}},
		{"backdated", 5, ptr(streakNow.AddDate(0, 0, 1)), gamification.StreakUpdate{NewStreak: 5, StreakMaintained: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gamification.UpdateStreakAfterWorkout(tt.current, tt.last, streakNow)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUpdateStreakOnFrozenDay(t *testing.T) {
	frozen := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		current int
		last    *time.Time
		want    gamification.StreakUpdate
	}{
		{"freeze is the last day", 1, ptr(frozen), gamification.StreakUpdate{NewStreak: 2, StreakIncreased: true, StreakMaintained: true}},
		{"worked out after the freeze", 2, ptr(streakNow), gamification.StreakUpdate{NewStreak: 3, StreakIncreased: true, StreakMaintained: true}},
		{"freeze outside the run", 1, ptr(daysAgo(-3)), gamification.StreakUpdate{NewStreak: 1, StreakMaintained: true}},
		{"no history", 0, nil, gamification.StreakUpdate{NewStreak: 1, StreakIncreased: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gamification.UpdateStreakOnFrozenDay(tt.current, tt.last, frozen.Add(14*time.Hour))
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUpdateStreakAfterWorkout_AcrossMidnight(t *testing.T) {
	last := time.Date(2025, 6, 14, 23, 30, 0, 0, time.UTC)
	next := time.Date(2025, 6, 15, 0, 10, 0, 0, time.UTC)
	got := gamification.UpdateStreakAfterWorkout(3, &last, next)
	if got.NewStreak != 4 || !got.StreakIncreased {
		t.Errorf("40 minutes across midnight should extend the streak, got %+v", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Freeze & Milestones
// ═══════════════════════════════════════════════════════════════════════════

func TestCanUseStreakFreeze(t *testing.T) {
	tests := []struct {
		name       string
		lastFreeze *time.Time
		last       *time.Time
		want       bool
	}{
		{"never frozen, missed one day", nil, ptr(daysAgo(2)), true},
		{"frozen last month", ptr(time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)), ptr(daysAgo(2)), true},
		{"frozen this month", ptr(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)), ptr(daysAgo(2)), false},
		{"frozen same month last year", ptr(time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)), ptr(daysAgo(2)), true},
		{"too late", nil, ptr(daysAgo(3)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gamification.CanUseStreakFreeze(streakNow, tt.lastFreeze, tt.last)
			if got.CanUse != tt.want {
				t.Errorf("CanUse = %v, want %v (reason %q)", got.CanUse, tt.want, got.Reason)
			}
			if !got.CanUse && got.Reason == "" {
				t.Error("refusal must carry a reason")
			}
		})
	}
}

func TestStreakMilestone(t *testing.T) {
	for _, m := range []int{7, 14, 30, 60, 90, 180, 365} {
		if got, ok := gamification.StreakMilestone(m); !ok || got != m {
			t.Errorf("StreakMilestone(%d) = %d, %v", m, got, ok)
		}
	}
	for _, n := range []int{0, 1, 8, 29, 100} {
		if _, ok := gamification.StreakMilestone(n); ok {
			t.Errorf("StreakMilestone(%d) should be false", n)
		}
	}
}

func TestStreakMessage(t *testing.T) {
	if got := gamification.StreakMessage(domain.StreakActive, 4); got != "4 day streak! Keep it going!" {
		t.Errorf("active = %q", got)
	}
	if got := gamification.StreakMessage(domain.StreakBroken, 0); got != "Start a new streak today!" {
		t.Errorf("broken = %q", got)
	}
}
