package domain

import (
	"testing"
	"time"
)

// ─── Requirement Types ──────────────────────────────────────────────────────

func TestRequirementType_Constants(t *testing.T) {
	seen := make(map[RequirementType]bool)
	for _, r := range AllRequirementTypes() {
		if seen[r] {
			t.Errorf("duplicate RequirementType: %s", r)
		}
		seen[r] = true
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 unique RequirementType, got %d", len(seen))
	}
	if RequirementType("distance").Valid() {
		t.Error("unknown requirement type should not be valid")
	}
}

func TestRequirementType_ContextDependent(t *testing.T) {
	tests := []struct {
		req  RequirementType
		want bool
	}{
		{ReqWorkouts, false},
		{ReqPRs, false},
		{ReqStreak, false},
		{ReqWeightThreshold, true},
		{ReqRepsThreshold, true},
		{ReqSpecial, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.req), func(t *testing.T) {
			if got := tt.req.ContextDependent(); got != tt.want {
				t.Errorf("ContextDependent() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ─── Special Conditions ─────────────────────────────────────────────────────

func TestSpecialConditionFor(t *testing.T) {
	for _, c := range AllSpecialConditions() {
		if got := SpecialConditionFor(string(c)); got != c {
			t.Errorf("SpecialConditionFor(%q) = %q", c, got)
		}
	}
	if got := SpecialConditionFor("Gym Rat"); got != SpecialUnknown {
		t.Errorf("unrecognized name should map to SpecialUnknown, got %q", got)
	}
	if got := SpecialConditionFor("early bird"); got != SpecialUnknown {
		t.Errorf("names are case-sensitive, got %q", got)
	}
}

// ─── Definitions ────────────────────────────────────────────────────────────

func TestAchievementDefinition_Requirement(t *testing.T) {
	v := 25.0
	if got := (AchievementDefinition{RequirementValue: &v}).Requirement(); got != 25 {
		t.Errorf("Requirement() = %v, want 25", got)
	}
	if got := (AchievementDefinition{}).Requirement(); got != 0 {
		t.Errorf("absent Requirement() = %v, want 0", got)
	}
}

func TestNewUserStats(t *testing.T) {
	s := NewUserStats("u1")
	if s.Level != 1 || s.RankTitle != "Novice" || s.TotalXP != 0 {
		t.Errorf("unexpected starting stats: %+v", s)
	}
	if s.LastWorkoutDate != nil {
		t.Error("new user should have no last workout date")
	}
}

// ─── Challenges ─────────────────────────────────────────────────────────────

func TestChallenge_ProgressPct(t *testing.T) {
	tests := []struct {
		progress, target int
		want             float64
	}{
		{0, 4, 0},
		{2, 4, 50},
		{4, 4, 100},
		{9, 4, 100},
		{0, 0, 100},
	}
	for _, tt := range tests {
		c := Challenge{Progress: tt.progress, Target: tt.target}
		if got := c.ProgressPct(); got != tt.want {
			t.Errorf("ProgressPct(%d/%d) = %v, want %v", tt.progress, tt.target, got, tt.want)
		}
	}
}

func TestChallenge_IsExpired(t *testing.T) {
	exp := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	c := Challenge{ExpiresAt: exp}
	if c.IsExpired(exp.Add(-time.Second)) {
		t.Error("should not be expired before deadline")
	}
	if !c.IsExpired(exp) {
		t.Error("should be expired at deadline")
	}
}
