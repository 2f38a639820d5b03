package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/comrade-fit/comrade/internal/domain"
)

// parseSets turns --set values of the form "exercise:reps" or
// "exercise:reps@kg" into numbered sets. Set numbers count per exercise.
func parseSets(specs []string) ([]domain.WorkoutSet, error) {
	sets := make([]domain.WorkoutSet, 0, len(specs))
	seen := make(map[string]int)
	for _, spec := range specs {
		set, err := parseSet(spec)
		if err != nil {
			return nil, err
		}
		seen[set.Exercise]++
		set.SetNumber = seen[set.Exercise]
		sets = append(sets, set)
	}
	return sets, nil
}

func parseSet(spec string) (domain.WorkoutSet, error) {
	name, rest, ok := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return domain.WorkoutSet{}, fmt.Errorf("invalid set %q: want exercise:reps[@kg]", spec)
	}

	repsStr, weightStr, hasWeight := strings.Cut(rest, "@")
	reps, err := strconv.Atoi(strings.TrimSpace(repsStr))
	if err != nil || reps < 0 {
		return domain.WorkoutSet{}, fmt.Errorf("invalid reps in set %q", spec)
	}

	set := domain.WorkoutSet{Exercise: name, Reps: reps}
	if hasWeight {
		w, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(weightStr, "kg")), 64)
		if err != nil || w < 0 {
			return domain.WorkoutSet{}, fmt.Errorf("invalid weight in set %q", spec)
		}
		set.WeightKG = &w
	}
	return set, nil
}

// parseWhen accepts RFC 3339 or "2006-01-02 15:04" in loc. Empty means now.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD HH:MM", s)
	}
	return t, nil
}

func formatXP(xp int64) string {
	return humanize.Comma(xp) + " XP"
}

func formatLastWorkout(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02"), humanize.Time(*t))
}
