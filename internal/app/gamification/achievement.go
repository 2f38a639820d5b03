package gamification

import (
	"fmt"
	"math"

	"github.com/comrade-fit/comrade/internal/domain"
)

// CheckResult is the evaluation of one achievement against stats and context.
type CheckResult struct {
	AchievementID      string  `json:"achievement_id"`
	Unlocked           bool    `json:"unlocked"`
	Progress           float64 `json:"progress"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// UnlockedAchievement is a newly satisfied achievement and its payout.
type UnlockedAchievement struct {
	Achievement domain.AchievementDefinition `json:"achievement"`
	XPAwarded   int64                        `json:"xp_awarded"`
}

// DefaultAlmostThreshold is the progress fraction at which a locked
// achievement counts as "almost there".
const DefaultAlmostThreshold = 0.8

// CheckAchievements evaluates every catalog entry the user has not unlocked
// and returns the newly satisfied ones in catalog order. Entries present in
// alreadyUnlocked are never evaluated again.
func CheckAchievements(
	userID string,
	stats domain.UserGamificationStats,
	catalog []domain.AchievementDefinition,
	alreadyUnlocked []domain.UnlockedAchievementRecord,
	ctx domain.AchievementContext,
) []UnlockedAchievement {
	unlocked := unlockedIDs(userID, alreadyUnlocked)

	var newlyUnlocked []UnlockedAchievement
	for _, def := range catalog {
		if unlocked[def.ID] {
			continue
		}
		if EvaluateAchievement(def, stats, ctx).Unlocked {
			newlyUnlocked = append(newlyUnlocked, UnlockedAchievement{
				Achievement: def,
				XPAwarded:   def.XPReward,
			})
			// Guards against a catalog that repeats an id.
			unlocked[def.ID] = true
		}
	}
	return newlyUnlocked
}

// unlockedIDs indexes the records belonging to userID. Records with no user
// are treated as the caller's own.
func unlockedIDs(userID string, records []domain.UnlockedAchievementRecord) map[string]bool {
	ids := make(map[string]bool, len(records))
	for _, r := range records {
		if r.UserID == "" || r.UserID == userID {
			ids[r.AchievementID] = true
		}
	}
	return ids
}

// EvaluateAchievement checks a single achievement.
func EvaluateAchievement(
	def domain.AchievementDefinition,
	stats domain.UserGamificationStats,
	ctx domain.AchievementContext,
) CheckResult {
	required := def.Requirement()
	var progress float64
	var unlocked bool

	switch def.RequirementType {
	case domain.ReqWorkouts:
		progress = float64(stats.TotalWorkoutsCompleted)
		unlocked = progress >= required

	case domain.ReqPRs:
		progress = float64(stats.TotalPRs)
		unlocked = progress >= required

	case domain.ReqStreak:
		progress = float64(stats.CurrentStreak)
		unlocked = progress >= required

	case domain.ReqWeightThreshold:
		// Only a fresh PR carries a weight worth comparing.
		if ctx.PRJustAchieved && ctx.PRWeight != nil {
			progress = *ctx.PRWeight
			unlocked = progress >= required
		}

	case domain.ReqRepsThreshold:
		if perf := ctx.ExercisePerformance; perf != nil {
			if def.ExerciseSpecific == "" || perf.ExerciseName == def.ExerciseSpecific {
				progress = float64(perf.Reps)
				unlocked = progress >= required
			}
		}

	case domain.ReqSpecial:
		unlocked = evaluateSpecial(domain.SpecialConditionFor(def.Name), stats, ctx)
		if unlocked {
			progress = required
			if def.RequirementValue == nil {
				progress = 100
			}
		}
	}

	return CheckResult{
		AchievementID:      def.ID,
		Unlocked:           unlocked,
		Progress:           progress,
		ProgressPercentage: progressPercentage(progress, required),
	}
}

func progressPercentage(progress, required float64) float64 {
	if required <= 0 {
		return 0
	}
	return math.Min(100, progress/required*100)
}

// evaluateSpecial decides the named special conditions. Perfect Week, Ring
// Master, Balanced Warrior and Double Bodyweight need history aggregates that
// no context carries, so they never unlock.
func evaluateSpecial(cond domain.SpecialCondition, stats domain.UserGamificationStats, ctx domain.AchievementContext) bool {
	switch cond {
	case domain.SpecialEarlyBird:
		return ctx.IsEarlyMorning
	case domain.SpecialNightOwl:
		return ctx.IsLateNight
	case domain.SpecialBirthdayPR:
		return ctx.IsBirthday && ctx.PRJustAchieved
	case domain.SpecialComebackKing:
		return ctx.DaysSinceLastWorkout != nil && *ctx.DaysSinceLastWorkout >= 30
	case domain.SpecialSovietComrade:
		return stats.Level >= 50
	case domain.SpecialTheUnbreakable:
		return stats.CurrentStreak >= 200
	case domain.SpecialPerfectWeek,
		domain.SpecialRingMaster,
		domain.SpecialBalancedWarrior,
		domain.SpecialDoubleBodyweight:
		return false
	case domain.SpecialUnknown:
		return false
	}
	return false
}

// GetAlmostUnlockedAchievements returns locked achievements whose progress
// from persisted stats alone is at least threshold (a fraction, 0.8 = 80%).
// Context-dependent types never qualify because the context is empty.
func GetAlmostUnlockedAchievements(
	catalog []domain.AchievementDefinition,
	stats domain.UserGamificationStats,
	alreadyUnlocked []domain.UnlockedAchievementRecord,
	threshold float64,
) []domain.AchievementDefinition {
	if threshold <= 0 {
		threshold = DefaultAlmostThreshold
	}
	unlocked := unlockedIDs(stats.UserID, alreadyUnlocked)

	var almost []domain.AchievementDefinition
	for _, def := range catalog {
		if unlocked[def.ID] {
			continue
		}
		r := EvaluateAchievement(def, stats, domain.AchievementContext{})
		if r.ProgressPercentage >= threshold*100 && !r.Unlocked {
			almost = append(almost, def)
		}
	}
	return almost
}

// ShouldNotifyAchievement reports whether an unlock deserves a notification:
// rare and above, secrets, and the first few milestone entries.
func ShouldNotifyAchievement(def domain.AchievementDefinition) bool {
	switch def.Rarity {
	case domain.RarityRare, domain.RarityEpic, domain.RarityLegendary:
		return true
	}
	if def.IsSecret {
		return true
	}
	return def.Category == domain.CategoryMilestone &&
		def.RequirementValue != nil && *def.RequirementValue <= 5
}

// ProgressView is the display form of achievement progress.
type ProgressView struct {
	Current    float64 `json:"current"`
	Required   float64 `json:"required"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
}

// AchievementProgress formats current progress toward def.
func AchievementProgress(def domain.AchievementDefinition, current float64) ProgressView {
	required := def.Requirement()
	pct := progressPercentage(current, required)

	msg := "Unlocked!"
	switch {
	case required <= 0:
		msg = "Special achievement"
	case pct < 100:
		msg = fmt.Sprintf("%g more to unlock", required-current)
	}
	return ProgressView{
		Current:    current,
		Required:   required,
		Percentage: pct,
		Message:    msg,
	}
}
