package gamification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/comrade-fit/comrade/internal/domain"
)

// NotificationKind tags what a notification is about.
type NotificationKind string

const (
	NotifyAchievement     NotificationKind = "achievement"
	NotifyLevelUp         NotificationKind = "level_up"
	NotifyStreakMilestone NotificationKind = "streak_milestone"
	NotifyChallenge       NotificationKind = "challenge"
)

// Notification is a payload for whatever delivers messages to the user.
// Deferred is set when it was produced inside quiet hours.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	Title    string           `json:"title"`
	Body     string           `json:"body"`
	Deferred bool             `json:"deferred,omitempty"`
}

// NotifyPolicy holds the quiet-hour window as "HH:MM" strings.
// A window whose start is after its end wraps midnight.
type NotifyPolicy struct {
	QuietStart string `toml:"quiet_start" validate:"omitempty,datetime=15:04"`
	QuietEnd   string `toml:"quiet_end" validate:"omitempty,datetime=15:04"`
}

// DefaultNotifyPolicy is quiet from 22:00 to 08:00.
func DefaultNotifyPolicy() NotifyPolicy {
	return NotifyPolicy{QuietStart: "22:00", QuietEnd: "08:00"}
}

// Notifications builds the payloads worth sending for an activity outcome.
func (p NotifyPolicy) Notifications(o ActivityOutcome, at time.Time) []Notification {
	var out []Notification
	for _, def := range o.Notify {
		out = append(out, Notification{
			Kind:  NotifyAchievement,
			Title: "Achievement unlocked: " + def.Name,
			Body:  fmt.Sprintf("%s (+%d XP)", def.Description, def.XPReward),
		})
	}
	if o.LevelUp.LeveledUp {
		out = append(out, Notification{
			Kind:  NotifyLevelUp,
			Title: o.Stats.RankTitle,
			Body:  LevelUpMessage(o.LevelUp.NewLevel),
		})
	}
	if o.StreakMilestone > 0 {
		out = append(out, Notification{
			Kind:  NotifyStreakMilestone,
			Title: fmt.Sprintf("%d-day streak", o.StreakMilestone),
			Body:  StreakMessage(domain.StreakActive, o.StreakMilestone),
		})
	}
	for _, c := range o.CompletedChallenges {
		out = append(out, Notification{
			Kind:  NotifyChallenge,
			Title: "Challenge complete",
			Body:  fmt.Sprintf("%s (+%d XP)", c.Description, c.RewardXP),
		})
	}

	if p.IsQuietHour(at) {
		for i := range out {
			out[i].Deferred = true
		}
	}
	return out
}

// IsQuietHour reports whether t falls in the quiet window. An empty window
// is never quiet.
func (p NotifyPolicy) IsQuietHour(t time.Time) bool {
	if p.QuietStart == "" || p.QuietEnd == "" {
		return false
	}
	startHour, startMin := parseHHMM(p.QuietStart)
	endHour, endMin := parseHHMM(p.QuietEnd)

	minutes := t.Hour()*60 + t.Minute()
	start := startHour*60 + startMin
	end := endHour*60 + endMin

	if start > end {
		return minutes >= start || minutes < end
	}
	return minutes >= start && minutes < end
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}
