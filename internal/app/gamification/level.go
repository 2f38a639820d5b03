package gamification

import (
	"fmt"
	"math"

	"github.com/comrade-fit/comrade/internal/domain"
)

// LevelBand is a contiguous range of levels sharing one per-level XP cost.
// LastLevel is 0 for the unbounded top band.
type LevelBand struct {
	FirstLevel int    `json:"first_level"`
	LastLevel  int    `json:"last_level,omitempty"`
	CostPerLvl int64  `json:"cost_per_level"`
	StartXP    int64  `json:"start_xp"`
	Rank       string `json:"rank"`
}

func (b LevelBand) contains(level int) bool {
	return level >= b.FirstLevel && (b.LastLevel == 0 || level <= b.LastLevel)
}

// levelBands is the progression curve. StartXP of each band is the previous
// band's StartXP plus its level count times its cost.
var levelBands = []LevelBand{
	{FirstLevel: 1, LastLevel: 10, CostPerLvl: 500, StartXP: 0, Rank: "Novice"},
	{FirstLevel: 11, LastLevel: 25, CostPerLvl: 1000, StartXP: 5_000, Rank: "Intermediate"},
	{FirstLevel: 26, LastLevel: 50, CostPerLvl: 2000, StartXP: 20_000, Rank: "Advanced"},
	{FirstLevel: 51, LastLevel: 75, CostPerLvl: 3000, StartXP: 70_000, Rank: "Elite"},
	{FirstLevel: 76, LastLevel: 100, CostPerLvl: 5000, StartXP: 145_000, Rank: "Master"},
	{FirstLevel: 101, CostPerLvl: 10000, StartXP: 270_000, Rank: "Soviet Legend"},
}

// LevelBands returns a copy of the tier table.
func LevelBands() []LevelBand {
	out := make([]LevelBand, len(levelBands))
	copy(out, levelBands)
	return out
}

// bandForLevel returns the band containing level. Levels below 1 use the first band.
func bandForLevel(level int) LevelBand {
	for _, b := range levelBands {
		if b.contains(level) {
			return b
		}
	}
	return levelBands[0]
}

// LevelFromXP maps cumulative XP to a level. Negative XP is level 1.
func LevelFromXP(xp int64) int {
	if xp < 0 {
		return 1
	}
	band := levelBands[0]
	for _, b := range levelBands {
		if xp >= b.StartXP {
			band = b
		}
	}
	level := band.FirstLevel + int((xp-band.StartXP)/band.CostPerLvl)
	if band.LastLevel != 0 && level > band.LastLevel {
		level = band.LastLevel
	}
	return level
}

// TotalXPForLevel returns the minimum cumulative XP needed to be at level.
func TotalXPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	b := bandForLevel(level)
	return b.StartXP + int64(level-b.FirstLevel)*b.CostPerLvl
}

// XPForNextLevel returns the cost of advancing past level.
func XPForNextLevel(level int) int64 {
	return bandForLevel(level).CostPerLvl
}

// RankTitle returns the rank name for a level.
func RankTitle(level int) string {
	return bandForLevel(level).Rank
}

// LevelProgress describes where an XP total sits inside its level.
type LevelProgress struct {
	CurrentLevel         int     `json:"current_level"`
	NextLevel            int     `json:"next_level"`
	XPInCurrentLevel     int64   `json:"xp_in_current_level"`
	XPNeededForNextLevel int64   `json:"xp_needed_for_next_level"`
	ProgressPercentage   float64 `json:"progress_percentage"`
}

// GetLevelProgress returns progress toward the next level (0-100%).
func GetLevelProgress(xp int64) LevelProgress {
	current := LevelFromXP(xp)
	needed := XPForNextLevel(current)
	inLevel := xp - TotalXPForLevel(current)

	pct := float64(inLevel) / float64(needed) * 100.0
	pct = math.Min(100, math.Max(0, pct))

	return LevelProgress{
		CurrentLevel:         current,
		NextLevel:            current + 1,
		XPInCurrentLevel:     inLevel,
		XPNeededForNextLevel: needed,
		ProgressPercentage:   pct,
	}
}

// xpRewards is the fixed reward table.
var xpRewards = map[domain.XPAction]int64{
	domain.XPWorkoutCompleted:     100,
	domain.XPPRAchieved:           200,
	domain.XPStreak7Days:          50,
	domain.XPStreak30Days:         200,
	domain.XPWeeklyChallenge:      500,
	domain.XPMonthlyChallenge:     1000,
	domain.XPLegendaryAchievement: 500,
}

// AwardXP returns the reward for an action.
func AwardXP(action domain.XPAction) (int64, error) {
	xp, ok := xpRewards[action]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownXPAction, action)
	}
	return xp, nil
}

// mustAwardXP is for call sites that only pass members of the closed set.
func mustAwardXP(action domain.XPAction) int64 {
	xp, err := AwardXP(action)
	if err != nil {
		panic(err)
	}
	return xp
}

// LevelUp compares the levels of two XP totals.
type LevelUp struct {
	LeveledUp    bool `json:"leveled_up"`
	OldLevel     int  `json:"old_level"`
	NewLevel     int  `json:"new_level"`
	LevelsGained int  `json:"levels_gained"`
}

// DidLevelUp reports level change between oldXP and newXP. Callers must not
// pass newXP < oldXP.
func DidLevelUp(oldXP, newXP int64) LevelUp {
	oldLevel := LevelFromXP(oldXP)
	newLevel := LevelFromXP(newXP)
	return LevelUp{
		LeveledUp:    newLevel > oldLevel,
		OldLevel:     oldLevel,
		NewLevel:     newLevel,
		LevelsGained: newLevel - oldLevel,
	}
}

// withDerivedLevel sets Level and RankTitle from TotalXP.
func withDerivedLevel(s domain.UserGamificationStats) domain.UserGamificationStats {
	s.Level = LevelFromXP(s.TotalXP)
	s.RankTitle = RankTitle(s.Level)
	return s
}

// ─── Display helpers ────────────────────────────────────────────────────────

var levelUpMessages = []string{
	"Level %d! You're getting stronger!",
	"Level %d achieved! Keep pushing!",
	"Welcome to Level %d!",
	"Level %d! Your dedication is paying off!",
	"You've reached Level %d!",
}

// LevelUpMessage returns the congratulation line for reaching newLevel.
func LevelUpMessage(newLevel int) string {
	switch newLevel {
	case 10:
		return "Level 10! You're no longer a Novice!"
	case 25:
		return "Level 25! Intermediate level complete!"
	case 50:
		return "Level 50! You've reached Advanced status!"
	case 75:
		return "Level 75! Elite tier unlocked!"
	case 100:
		return "Level 100! You are a Soviet Legend!"
	}
	idx := newLevel % len(levelUpMessages)
	if idx < 0 {
		idx = -idx
	}
	return fmt.Sprintf(levelUpMessages[idx], newLevel)
}

// Estimate is a rough time-to-next-level forecast.
type Estimate struct {
	Days    int    `json:"days"` // -1 when no estimate is possible
	Message string `json:"message"`
}

// EstimateTimeToNextLevel forecasts days to the next level at avgXPPerDay.
func EstimateTimeToNextLevel(xp int64, avgXPPerDay float64) Estimate {
	if avgXPPerDay <= 0 {
		return Estimate{Days: -1, Message: "Complete workouts to estimate"}
	}
	p := GetLevelProgress(xp)
	remaining := p.XPNeededForNextLevel - p.XPInCurrentLevel
	days := int(math.Ceil(float64(remaining) / avgXPPerDay))

	switch {
	case days <= 1:
		return Estimate{Days: days, Message: "Tomorrow if you keep it up!"}
	case days <= 7:
		return Estimate{Days: days, Message: fmt.Sprintf("About %d days away", days)}
	case days <= 30:
		weeks := int(math.Ceil(float64(days) / 7))
		return Estimate{Days: days, Message: fmt.Sprintf("About %d %s away", weeks, plural(weeks, "week"))}
	}
	months := int(math.Ceil(float64(days) / 30))
	return Estimate{Days: days, Message: fmt.Sprintf("About %d %s away", months, plural(months, "month"))}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
