package gamification_test

import (
	"testing"
	"time"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
)

var workoutAt = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func benchEvent(sets ...domain.WorkoutSet) domain.WorkoutEvent {
	return domain.WorkoutEvent{UserID: "u1", WorkoutType: domain.WorkoutPush, CompletedAt: workoutAt, Sets: sets}
}

func set(exercise string, reps int, weight float64) domain.WorkoutSet {
	s := domain.WorkoutSet{Exercise: exercise, Reps: reps}
	if weight > 0 {
		s.WeightKG = ptr(weight)
	}
	return s
}

func catalogOf(ids ...string) []domain.AchievementDefinition {
	byID := make(map[string]domain.AchievementDefinition)
	for _, d := range gamification.DefaultCatalog() {
		byID[d.ID] = d
	}
	var out []domain.AchievementDefinition
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// ApplyWorkout
// ═══════════════════════════════════════════════════════════════════════════

func TestApplyWorkout_FirstWorkout(t *testing.T) {
	stats := domain.NewUserStats("u1")
	out := gamification.ApplyWorkout(stats, benchEvent(set("Bench Press", 8, 60)), gamification.DefaultCatalog(), nil, workoutAt)

	if out.XP.Workout != 100 {
		t.Errorf("workout XP = %d, want 100", out.XP.Workout)
	}
	if len(out.Unlocked) != 1 || out.Unlocked[0].Achievement.ID != "first_workout" {
		t.Fatalf("unlocked = %+v", out.Unlocked)
	}
	if len(out.Notify) != 1 {
		t.Errorf("first_workout is a milestone ≤ 5 and should notify, got %+v", out.Notify)
	}
	s := out.Stats
	if s.TotalXP != 150 || s.Level != 1 || s.RankTitle != "Novice" {
		t.Errorf("stats = %+v", s)
	}
	if s.TotalWorkoutsCompleted != 1 || s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Errorf("counters = %+v", s)
	}
	if s.LastWorkoutDate == nil || !s.LastWorkoutDate.Equal(workoutAt) {
		t.Errorf("last workout = %v", s.LastWorkoutDate)
	}
	if stats.TotalXP != 0 {
		t.Error("input stats must not be modified")
	}
}

func TestApplyWorkout_StreakBonusAndMilestone(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 6
	stats.LongestStreak = 6
	stats.LastWorkoutDate = ptr(workoutAt.AddDate(0, 0, -1))

	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, workoutAt)
	if out.Stats.CurrentStreak != 7 || out.Stats.LongestStreak != 7 {
		t.Errorf("streak = %d/%d", out.Stats.CurrentStreak, out.Stats.LongestStreak)
	}
	if out.XP.StreakBonus != 50 || out.StreakMilestone != 7 {
		t.Errorf("bonus = %d, milestone = %d", out.XP.StreakBonus, out.StreakMilestone)
	}
	if out.Stats.TotalXP != 150 {
		t.Errorf("total = %d, want 150", out.Stats.TotalXP)
	}
}

func TestApplyWorkout_ThirtyDayBonus(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 29
	stats.LongestStreak = 29
	stats.LastWorkoutDate = ptr(workoutAt.AddDate(0, 0, -1))

	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, workoutAt)
	if out.XP.StreakBonus != 200 || out.StreakMilestone != 30 {
		t.Errorf("bonus = %d, milestone = %d", out.XP.StreakBonus, out.StreakMilestone)
	}
}

func TestApplyWorkout_SameDayNoBonus(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 7
	stats.LongestStreak = 7
	stats.LastWorkoutDate = ptr(workoutAt.Add(-2 * time.Hour))

	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, workoutAt)
	if out.XP.StreakBonus != 0 || out.StreakMilestone != 0 || out.Stats.CurrentStreak != 7 {
		t.Errorf("a second workout the same day must not pay streak bonus again: %+v", out)
	}
}

func TestApplyWorkout_BackdatedKeepsLastWorkout(t *testing.T) {
	last := workoutAt.Add(2 * time.Hour)
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 3
	stats.LongestStreak = 3
	stats.LastWorkoutDate = &last

	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, workoutAt.AddDate(0, 0, -1))
	if !out.Stats.LastWorkoutDate.Equal(last) || out.Stats.CurrentStreak != 3 {
		t.Errorf("backdated workout changed streak state: %+v", out.Stats)
	}
}

func TestApplyWorkout_OnFrozenDay(t *testing.T) {
	frozen := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	stats := domain.NewUserStats("u1")
	stats.CurrentStreak = 6
	stats.LongestStreak = 6
	stats.LastWorkoutDate = &frozen

	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, frozen.Add(14*time.Hour), gamification.OnFrozenDay())
	if out.Stats.CurrentStreak != 7 || !out.Streak.StreakIncreased {
		t.Errorf("workout on a frozen day should extend the streak, got %+v", out.Streak)
	}
	if out.XP.StreakBonus != 50 {
		t.Errorf("streak bonus = %d, want 50 for reaching 7", out.XP.StreakBonus)
	}

	plain := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, frozen.Add(14*time.Hour))
	if plain.Stats.CurrentStreak != 6 {
		t.Errorf("without the frozen-day option the streak is kept, got %d", plain.Stats.CurrentStreak)
	}
}

func TestApplyWorkout_PersonalRecords(t *testing.T) {
	ev := benchEvent(set("Squat", 5, 120))
	ev.PersonalRecords = []domain.PersonalRecord{{Exercise: "Squat", WeightKG: 120, Reps: 5}}

	out := gamification.ApplyWorkout(domain.NewUserStats("u1"), ev, catalogOf("first_pr", "weight_100", "weight_200"), nil, workoutAt)
	if out.XP.PersonalRecord != 200 || out.Stats.TotalPRs != 1 {
		t.Errorf("PR XP = %d, PRs = %d", out.XP.PersonalRecord, out.Stats.TotalPRs)
	}
	if len(out.Unlocked) != 2 {
		t.Fatalf("unlocked = %+v", out.Unlocked)
	}
	if out.XP.Achievements != 600 {
		t.Errorf("achievement XP = %d, want 600", out.XP.Achievements)
	}
	// first_pr is a milestone of 1, weight_100 is rare.
	if len(out.Notify) != 2 {
		t.Errorf("notify = %+v", out.Notify)
	}
}

func TestApplyWorkout_LegendaryBonus(t *testing.T) {
	ev := benchEvent(set("Deadlift", 1, 210))
	ev.PersonalRecords = []domain.PersonalRecord{{Exercise: "Deadlift", WeightKG: 210, Reps: 1}}

	out := gamification.ApplyWorkout(domain.NewUserStats("u1"), ev, catalogOf("weight_200"), nil, workoutAt)
	if out.XP.LegendaryBonus != 500 {
		t.Errorf("legendary bonus = %d, want 500", out.XP.LegendaryBonus)
	}
	want := int64(100 + 200 + 2500 + 500)
	if out.Stats.TotalXP != want || out.XP.Total() != want {
		t.Errorf("total = %d / %d, want %d", out.Stats.TotalXP, out.XP.Total(), want)
	}
}

func TestApplyWorkout_RepsCheckedPerSetOnce(t *testing.T) {
	ev := benchEvent(set("Pull-ups", 10, 0), set("Pull-ups", 22, 0), set("Pull-ups", 25, 0))
	out := gamification.ApplyWorkout(domain.NewUserStats("u1"), ev, catalogOf("pullups_20"), nil, workoutAt)
	if len(out.Unlocked) != 1 {
		t.Errorf("pullups_20 should unlock exactly once, got %d", len(out.Unlocked))
	}
}

func TestApplyWorkout_AlreadyUnlockedSkipped(t *testing.T) {
	unlocked := []domain.UnlockedAchievementRecord{{UserID: "u1", AchievementID: "first_workout"}}
	out := gamification.ApplyWorkout(domain.NewUserStats("u1"), benchEvent(), catalogOf("first_workout"), unlocked, workoutAt)
	if len(out.Unlocked) != 0 {
		t.Errorf("re-unlocked %+v", out.Unlocked)
	}
}

func TestApplyWorkout_LevelUp(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.TotalXP = 450
	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, workoutAt)
	if !out.LevelUp.LeveledUp || out.LevelUp.NewLevel != 2 || out.LevelUpMessage == "" {
		t.Errorf("level up = %+v %q", out.LevelUp, out.LevelUpMessage)
	}
	if out.Stats.Level != gamification.LevelFromXP(out.Stats.TotalXP) {
		t.Error("level must be derived from total XP")
	}
}

func TestApplyWorkout_Comeback(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.TotalWorkoutsCompleted = 10
	stats.LastWorkoutDate = ptr(workoutAt.AddDate(0, 0, -40))

	out := gamification.ApplyWorkout(stats, benchEvent(), catalogOf("comeback_king"), nil, workoutAt)
	if len(out.Unlocked) != 1 || out.Stats.CurrentStreak != 1 {
		t.Errorf("comeback = %+v, streak %d", out.Unlocked, out.Stats.CurrentStreak)
	}
}

func TestAddChallengeRewards(t *testing.T) {
	stats := domain.NewUserStats("u1")
	stats.TotalXP = 4800
	out := gamification.ApplyWorkout(stats, benchEvent(), nil, nil, workoutAt)
	if out.LevelUp.LeveledUp {
		t.Fatal("4900 XP should still be level 10")
	}

	out.AddChallengeRewards([]domain.Challenge{{ID: "c1", Period: domain.ChallengeWeekly, RewardXP: 500}})
	if out.XP.Challenges != 500 || out.Stats.TotalXP != 5400 {
		t.Errorf("challenge XP = %d, total = %d", out.XP.Challenges, out.Stats.TotalXP)
	}
	if !out.LevelUp.LeveledUp || out.Stats.Level != 11 || out.Stats.RankTitle != "Intermediate" {
		t.Errorf("after challenge reward: %+v / %+v", out.LevelUp, out.Stats)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Context & Personal Records
// ═══════════════════════════════════════════════════════════════════════════

func TestBuildContext(t *testing.T) {
	at := time.Date(2025, 3, 9, 5, 30, 0, 0, time.UTC)
	ev := domain.WorkoutEvent{
		WorkoutType: domain.WorkoutLegs,
		Birthday:    ptr(time.Date(1990, 3, 9, 0, 0, 0, 0, time.UTC)),
		PersonalRecords: []domain.PersonalRecord{
			{Exercise: "Squat", WeightKG: 140, Reps: 3},
			{Exercise: "Deadlift", WeightKG: 180, Reps: 1},
		},
	}
	prev := at.AddDate(0, 0, -3)

	ctx := gamification.BuildContext(ev, &prev, at)
	if !ctx.IsEarlyMorning || ctx.IsLateNight {
		t.Errorf("time of day: early=%v late=%v", ctx.IsEarlyMorning, ctx.IsLateNight)
	}
	if !ctx.IsBirthday {
		t.Error("expected birthday")
	}
	if ctx.DaysSinceLastWorkout == nil || *ctx.DaysSinceLastWorkout != 3 {
		t.Errorf("days since = %v", ctx.DaysSinceLastWorkout)
	}
	if !ctx.PRJustAchieved || ctx.PRExercise != "Deadlift" || *ctx.PRWeight != 180 {
		t.Errorf("PR fields = %+v", ctx)
	}

	late := gamification.BuildContext(domain.WorkoutEvent{}, nil, time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC))
	if !late.IsLateNight || late.DaysSinceLastWorkout != nil || late.PRJustAchieved {
		t.Errorf("late context = %+v", late)
	}
}

func TestDetectPersonalRecords(t *testing.T) {
	sets := []domain.WorkoutSet{
		set("Bench Press", 5, 70),
		set("Bench Press", 3, 90),
		set("Bench Press", 5, 85),
		set("Squat", 5, 100),
		set("Push-ups", 30, 0),
		set("Row", 8, 50),
	}
	bests := map[string]float64{"Bench Press": 80, "Row": 60}

	prs, updates := gamification.DetectPersonalRecords(sets, bests)
	if len(prs) != 1 || prs[0].Exercise != "Bench Press" || prs[0].WeightKG != 90 || prs[0].Reps != 3 {
		t.Errorf("prs = %+v", prs)
	}
	if len(updates) != 2 || updates["Bench Press"].WeightKG != 90 || updates["Squat"].WeightKG != 100 {
		t.Errorf("updates = %+v", updates)
	}
}

func TestDetectPersonalRecords_EqualIsNotRecord(t *testing.T) {
	prs, updates := gamification.DetectPersonalRecords([]domain.WorkoutSet{set("Bench Press", 5, 80)}, map[string]float64{"Bench Press": 80})
	if len(prs) != 0 || len(updates) != 0 {
		t.Errorf("matching a best is not a record: %+v %+v", prs, updates)
	}
}
