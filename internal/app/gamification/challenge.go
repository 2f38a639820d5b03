package gamification

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/comrade-fit/comrade/internal/domain"
)

// WeeklyChallengeCount is how many weekly challenges a user gets per ISO week.
const WeeklyChallengeCount = 3

// challengeNamespace scopes the deterministic challenge ids.
var challengeNamespace = uuid.MustParse("5b0f3a7e-2c1d-4e8a-9f6b-7d3c2a1e0b9f")

var weeklyPool = []domain.ChallengeTemplate{
	{Period: domain.ChallengeWeekly, Metric: domain.MetricWorkouts, Target: 3, Description: "Complete 3 workouts"},
	{Period: domain.ChallengeWeekly, Metric: domain.MetricWorkouts, Target: 5, Description: "Complete 5 workouts"},
	{Period: domain.ChallengeWeekly, Metric: domain.MetricPRs, Target: 1, Description: "Set a personal record"},
	{Period: domain.ChallengeWeekly, Metric: domain.MetricPRs, Target: 3, Description: "Set 3 personal records"},
	{Period: domain.ChallengeWeekly, Metric: domain.MetricPushSessions, Target: 2, Description: "Finish 2 push sessions"},
	{Period: domain.ChallengeWeekly, Metric: domain.MetricPullSessions, Target: 2, Description: "Finish 2 pull sessions"},
	{Period: domain.ChallengeWeekly, Metric: domain.MetricLegSessions, Target: 2, Description: "Never skip leg day: 2 leg sessions"},
}

var monthlyPool = []domain.ChallengeTemplate{
	{Period: domain.ChallengeMonthly, Metric: domain.MetricWorkouts, Target: 16, Description: "Complete 16 workouts this month"},
	{Period: domain.ChallengeMonthly, Metric: domain.MetricWorkouts, Target: 20, Description: "Complete 20 workouts this month"},
	{Period: domain.ChallengeMonthly, Metric: domain.MetricPRs, Target: 8, Description: "Set 8 personal records this month"},
	{Period: domain.ChallengeMonthly, Metric: domain.MetricLegSessions, Target: 6, Description: "Finish 6 leg sessions this month"},
}

// ChallengeTemplates returns the weekly and monthly template pools.
func ChallengeTemplates() []domain.ChallengeTemplate {
	out := make([]domain.ChallengeTemplate, 0, len(weeklyPool)+len(monthlyPool))
	out = append(out, weeklyPool...)
	return append(out, monthlyPool...)
}

// ChallengesFor returns the weekly and monthly challenges active for userID
// at now. The result is deterministic for a given user, week and month, so it
// can be regenerated and inserted idempotently.
func ChallengesFor(userID string, now time.Time) []domain.Challenge {
	out := WeeklyChallenges(userID, now)
	return append(out, MonthlyChallenge(userID, now))
}

// WeeklyChallenges picks WeeklyChallengeCount templates for the ISO week
// containing now. They run Monday 00:00 to the next Monday in now's location.
func WeeklyChallenges(userID string, now time.Time) []domain.Challenge {
	expires := nextMonday(now)
	starts := expires.AddDate(0, 0, -7)
	year, week := now.ISOWeek()
	key := fmt.Sprintf("%s/%d-W%02d", userID, year, week)

	selected := pickUniqueTemplates(weeklyPool, WeeklyChallengeCount, seedFor(key))

	challenges := make([]domain.Challenge, 0, len(selected))
	for i, tmpl := range selected {
		challenges = append(challenges, newChallenge(userID, fmt.Sprintf("%s/%d", key, i), tmpl, starts, expires))
	}
	return challenges
}

// MonthlyChallenge picks the single challenge for the month containing now.
func MonthlyChallenge(userID string, now time.Time) domain.Challenge {
	starts := startOfMonth(now)
	expires := starts.AddDate(0, 1, 0)
	key := fmt.Sprintf("%s/%s", userID, starts.Format("2006-01"))

	tmpl := pickUniqueTemplates(monthlyPool, 1, seedFor(key))[0]
	return newChallenge(userID, key, tmpl, starts, expires)
}

func newChallenge(userID, key string, tmpl domain.ChallengeTemplate, starts, expires time.Time) domain.Challenge {
	return domain.Challenge{
		ID:          uuid.NewSHA1(challengeNamespace, []byte(key)).String(),
		UserID:      userID,
		Period:      tmpl.Period,
		Metric:      tmpl.Metric,
		Description: tmpl.Description,
		Target:      tmpl.Target,
		RewardXP:    ChallengeReward(tmpl.Period),
		StartsAt:    starts,
		ExpiresAt:   expires,
	}
}

// ChallengeReward is the XP paid for completing a challenge of period p.
func ChallengeReward(p domain.ChallengePeriod) int64 {
	switch p {
	case domain.ChallengeWeekly:
		return mustAwardXP(domain.XPWeeklyChallenge)
	case domain.ChallengeMonthly:
		return mustAwardXP(domain.XPMonthlyChallenge)
	}
	return 0
}

// ChallengeDelta returns how much a workout advances a challenge metric.
func ChallengeDelta(metric domain.ChallengeMetric, ev domain.WorkoutEvent) int {
	switch metric {
	case domain.MetricWorkouts:
		return 1
	case domain.MetricPRs:
		return len(ev.PersonalRecords)
	case domain.MetricPushSessions:
		return boolInt(ev.WorkoutType == domain.WorkoutPush)
	case domain.MetricPullSessions:
		return boolInt(ev.WorkoutType == domain.WorkoutPull)
	case domain.MetricLegSessions:
		return boolInt(ev.WorkoutType == domain.WorkoutLegs)
	}
	return 0
}

// AdvanceChallenge applies a workout to c. It reports whether this workout
// completed it. Completed or expired challenges, or ones that had not started
// at the workout time, are returned unchanged.
func AdvanceChallenge(c domain.Challenge, ev domain.WorkoutEvent, at time.Time) (domain.Challenge, bool) {
	if c.Completed || c.IsExpired(at) || at.Before(c.StartsAt) {
		return c, false
	}
	delta := ChallengeDelta(c.Metric, ev)
	if delta <= 0 {
		return c, false
	}
	c.Progress = min(c.Progress+delta, c.Target)
	if c.Progress >= c.Target {
		c.Completed = true
		return c, true
	}
	return c, false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nextMonday returns the next Monday at 00:00 after t, in t's location.
func nextMonday(t time.Time) time.Time {
	t = startOfDay(t)
	daysUntilMonday := (8 - int(t.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7 // Monday rolls to the following week
	}
	return t.AddDate(0, 0, daysUntilMonday)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func seedFor(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// pickUniqueTemplates selects n templates, preferring distinct metrics.
func pickUniqueTemplates(pool []domain.ChallengeTemplate, n int, seed int64) []domain.ChallengeTemplate {
	r := rand.New(rand.NewSource(seed))

	shuffled := make([]domain.ChallengeTemplate, len(pool))
	copy(shuffled, pool)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seen := make(map[domain.ChallengeMetric]bool)
	picked := make(map[int]bool)
	var result []domain.ChallengeTemplate
	for i, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !seen[tmpl.Metric] {
			seen[tmpl.Metric] = true
			picked[i] = true
			result = append(result, tmpl)
		}
	}

	// Not enough distinct metrics, fill with the rest.
	for i, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !picked[i] {
			result = append(result, tmpl)
		}
	}
	return result
}
