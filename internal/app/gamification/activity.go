package gamification

import (
	"time"

	"github.com/comrade-fit/comrade/internal/domain"
)

// XPBreakdown itemizes the XP earned by one workout.
type XPBreakdown struct {
	Workout        int64 `json:"workout"`
	PersonalRecord int64 `json:"personal_records"`
	StreakBonus    int64 `json:"streak_bonus"`
	Achievements   int64 `json:"achievements"`
	LegendaryBonus int64 `json:"legendary_bonus"`
	Challenges     int64 `json:"challenges"`
}

// Total sums every line of the breakdown.
func (b XPBreakdown) Total() int64 {
	return b.Workout + b.PersonalRecord + b.StreakBonus + b.Achievements + b.LegendaryBonus + b.Challenges
}

// ActivityOutcome is everything a recorded workout changed.
type ActivityOutcome struct {
	Stats               domain.UserGamificationStats   `json:"stats"`
	XP                  XPBreakdown                    `json:"xp"`
	LevelUp             LevelUp                        `json:"level_up"`
	LevelUpMessage      string                         `json:"level_up_message,omitempty"`
	Streak              StreakUpdate                   `json:"streak"`
	StreakMilestone     int                            `json:"streak_milestone,omitempty"`
	Unlocked            []UnlockedAchievement          `json:"unlocked"`
	Notify              []domain.AchievementDefinition `json:"notify"`
	CompletedChallenges []domain.Challenge             `json:"completed_challenges,omitempty"`

	startXP int64
}

// ApplyOption adjusts how ApplyWorkout treats a workout.
type ApplyOption func(*applyOptions)

type applyOptions struct {
	frozenDay bool
}

// OnFrozenDay marks the workout's day as already covered by a streak freeze.
func OnFrozenDay() ApplyOption {
	return func(o *applyOptions) { o.frozenDay = true }
}

// ApplyWorkout runs a workout event through the engines: XP for the workout
// and its PRs, the streak update and its bonus, then achievements checked
// once per exercise performance. at is the workout time in the user's
// calendar location. The input stats are not modified.
func ApplyWorkout(
	stats domain.UserGamificationStats,
	ev domain.WorkoutEvent,
	catalog []domain.AchievementDefinition,
	unlocked []domain.UnlockedAchievementRecord,
	at time.Time,
	opts ...ApplyOption,
) ActivityOutcome {
	var o applyOptions
	for _, opt := range opts {
		opt(&o)
	}
	out := ActivityOutcome{startXP: stats.TotalXP}
	prevLast := stats.LastWorkoutDate

	// XP for the session itself.
	out.XP.Workout = mustAwardXP(domain.XPWorkoutCompleted)
	out.XP.PersonalRecord = int64(len(ev.PersonalRecords)) * mustAwardXP(domain.XPPRAchieved)
	stats.TotalWorkoutsCompleted++
	stats.TotalPRs += len(ev.PersonalRecords)

	// Streak.
	if o.frozenDay {
		out.Streak = UpdateStreakOnFrozenDay(stats.CurrentStreak, prevLast, at)
	} else {
		out.Streak = UpdateStreakAfterWorkout(stats.CurrentStreak, prevLast, at)
	}
	stats.CurrentStreak = out.Streak.NewStreak
	stats.LongestStreak = max(stats.LongestStreak, stats.CurrentStreak)
	if prevLast == nil || at.After(*prevLast) {
		last := at
		stats.LastWorkoutDate = &last
	}
	if out.Streak.StreakIncreased {
		switch out.Streak.NewStreak {
		case 7:
			out.XP.StreakBonus = mustAwardXP(domain.XPStreak7Days)
		case 30:
			out.XP.StreakBonus = mustAwardXP(domain.XPStreak30Days)
		}
		if m, ok := StreakMilestone(out.Streak.NewStreak); ok {
			out.StreakMilestone = m
		}
	}

	stats.TotalXP += out.XP.Workout + out.XP.PersonalRecord + out.XP.StreakBonus
	stats = withDerivedLevel(stats)

	// Achievements, once per performance so reps thresholds see every set.
	ctx := BuildContext(ev, prevLast, at)
	seen := make([]domain.UnlockedAchievementRecord, len(unlocked))
	copy(seen, unlocked)
	for _, perf := range performances(ev) {
		ctx.ExercisePerformance = perf
		for _, u := range CheckAchievements(stats.UserID, stats, catalog, seen, ctx) {
			out.Unlocked = append(out.Unlocked, u)
			out.XP.Achievements += u.XPAwarded
			if u.Achievement.Rarity == domain.RarityLegendary {
				out.XP.LegendaryBonus += mustAwardXP(domain.XPLegendaryAchievement)
			}
			if ShouldNotifyAchievement(u.Achievement) {
				out.Notify = append(out.Notify, u.Achievement)
			}
			seen = append(seen, domain.UnlockedAchievementRecord{
				UserID:        stats.UserID,
				AchievementID: u.Achievement.ID,
				UnlockedAt:    at,
			})
		}
	}
	stats.TotalXP += out.XP.Achievements + out.XP.LegendaryBonus
	stats = withDerivedLevel(stats)
	stats.UpdatedAt = at

	out.Stats = stats
	out.setLevelUp()
	return out
}

// AddChallengeRewards credits completed challenges to the outcome and
// re-derives the level.
func (o *ActivityOutcome) AddChallengeRewards(completed []domain.Challenge) {
	for _, c := range completed {
		o.CompletedChallenges = append(o.CompletedChallenges, c)
		o.XP.Challenges += c.RewardXP
		o.Stats.TotalXP += c.RewardXP
	}
	o.Stats = withDerivedLevel(o.Stats)
	o.setLevelUp()
}

func (o *ActivityOutcome) setLevelUp() {
	o.LevelUp = DidLevelUp(o.startXP, o.Stats.TotalXP)
	o.LevelUpMessage = ""
	if o.LevelUp.LeveledUp {
		o.LevelUpMessage = LevelUpMessage(o.LevelUp.NewLevel)
	}
}

// BuildContext derives the event-scoped achievement facts. prevLast is the
// last workout before this one.
func BuildContext(ev domain.WorkoutEvent, prevLast *time.Time, at time.Time) domain.AchievementContext {
	ctx := domain.AchievementContext{
		WorkoutJustCompleted: true,
		WorkoutType:          ev.WorkoutType,
		WorkoutTime:          at,
		IsEarlyMorning:       at.Hour() < 6,
		IsLateNight:          at.Hour() >= 22,
	}

	if ev.Birthday != nil {
		_, bm, bd := ev.Birthday.Date()
		_, m, d := at.Date()
		ctx.IsBirthday = bm == m && bd == d
	}

	if prevLast != nil {
		days := daysBetween(*prevLast, at, at.Location())
		ctx.DaysSinceLastWorkout = &days
	}

	if pr, ok := heaviestPR(ev.PersonalRecords); ok {
		weight := pr.WeightKG
		ctx.PRJustAchieved = true
		ctx.PRExercise = pr.Exercise
		ctx.PRWeight = &weight
		ctx.PRReps = pr.Reps
	}
	return ctx
}

func heaviestPR(prs []domain.PersonalRecord) (domain.PersonalRecord, bool) {
	if len(prs) == 0 {
		return domain.PersonalRecord{}, false
	}
	best := prs[0]
	for _, pr := range prs[1:] {
		if pr.WeightKG > best.WeightKG {
			best = pr
		}
	}
	return best, true
}

// performances lists one entry per set. A workout with no sets still gets a
// single pass with no performance.
func performances(ev domain.WorkoutEvent) []*domain.ExercisePerformance {
	if len(ev.Sets) == 0 {
		return []*domain.ExercisePerformance{nil}
	}
	out := make([]*domain.ExercisePerformance, 0, len(ev.Sets))
	for _, s := range ev.Sets {
		perf := &domain.ExercisePerformance{ExerciseName: s.Exercise, Reps: s.Reps}
		if s.WeightKG != nil {
			perf.Weight = *s.WeightKG
		}
		out = append(out, perf)
	}
	return out
}

// DetectPersonalRecords returns the heaviest weighted set per exercise that
// beats bests. Exercises with no stored best are baselines, not records.
// The returned map holds the new best for every weighted exercise.
func DetectPersonalRecords(sets []domain.WorkoutSet, bests map[string]float64) ([]domain.PersonalRecord, map[string]domain.PersonalRecord) {
	heaviest := make(map[string]domain.PersonalRecord)
	var order []string
	for _, s := range sets {
		if s.WeightKG == nil {
			continue
		}
		cur, ok := heaviest[s.Exercise]
		if !ok {
			order = append(order, s.Exercise)
		}
		if !ok || *s.WeightKG > cur.WeightKG {
			heaviest[s.Exercise] = domain.PersonalRecord{Exercise: s.Exercise, WeightKG: *s.WeightKG, Reps: s.Reps}
		}
	}

	var prs []domain.PersonalRecord
	updates := make(map[string]domain.PersonalRecord)
	for _, ex := range order {
		h := heaviest[ex]
		prev, ok := bests[ex]
		switch {
		case !ok:
			updates[ex] = h
		case h.WeightKG > prev:
			updates[ex] = h
			prs = append(prs, h)
		}
	}
	return prs, updates
}
