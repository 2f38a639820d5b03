package gamification_test

import (
	"testing"
	"time"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
)

func TestIsQuietHour(t *testing.T) {
	p := gamification.DefaultNotifyPolicy()
	tests := []struct {
		hour, min int
		want      bool
	}{
		{23, 0, true},
		{22, 0, true},
		{2, 30, true},
		{7, 59, true},
		{8, 0, false},
		{12, 0, false},
		{21, 59, false},
	}
	for _, tt := range tests {
		at := time.Date(2025, 6, 15, tt.hour, tt.min, 0, 0, time.UTC)
		if got := p.IsQuietHour(at); got != tt.want {
			t.Errorf("IsQuietHour(%02d:%02d) = %v, want %v", tt.hour, tt.min, got, tt.want)
		}
	}
}

func TestIsQuietHour_SameDayWindow(t *testing.T) {
	p := gamification.NotifyPolicy{QuietStart: "13:00", QuietEnd: "14:00"}
	if !p.IsQuietHour(time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)) {
		t.Error("13:30 should be quiet")
	}
	if p.IsQuietHour(time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)) {
		t.Error("14:00 should not be quiet")
	}
}

func TestIsQuietHour_EmptyPolicy(t *testing.T) {
	var p gamification.NotifyPolicy
	if p.IsQuietHour(time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC)) {
		t.Error("empty policy is never quiet")
	}
}

func TestNotifications(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.TotalXP = 450
	stats.CurrentStreak = 6
	stats.LastWorkoutDate = ptr(workoutAt.AddDate(0, 0, -1))

	out := gamification.ApplyWorkout(stats, benchEvent(), catalogOf("first_workout"), nil, workoutAt)
	p := gamification.DefaultNotifyPolicy()

	notes := p.Notifications(out, workoutAt)
	kinds := make(map[gamification.NotificationKind]int)
	for _, n := range notes {
		kinds[n.Kind]++
		if n.Deferred {
			t.Errorf("10:00 is not quiet, %s should not be deferred", n.Kind)
		}
	}
	if kinds[gamification.NotifyAchievement] != 1 || kinds[gamification.NotifyLevelUp] != 1 || kinds[gamification.NotifyStreakMilestone] != 1 {
		t.Errorf("kinds = %v", kinds)
	}

	night := p.Notifications(out, time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC))
	for _, n := range night {
		if !n.Deferred {
			t.Errorf("%s at 23:00 should be deferred", n.Kind)
		}
	}
}
