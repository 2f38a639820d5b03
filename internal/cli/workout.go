package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/daemon"
	"github.com/comrade-fit/comrade/internal/domain"
)

func init() {
	workoutCmd.Flags().StringVar(&workoutType, "type", "", "Workout split: push, pull or legs")
	workoutCmd.Flags().StringArrayVar(&workoutSets, "set", nil, "A set as exercise:reps[@kg]; repeat for each set")
	workoutCmd.Flags().StringVar(&workoutAt, "at", "", "Completion time (RFC 3339 or YYYY-MM-DD HH:MM); defaults to now")
	_ = workoutCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(workoutCmd)
}

var (
	workoutType string
	workoutSets []string
	workoutAt   string
)

var workoutCmd = &cobra.Command{
	Use:   "workout USER",
	Short: "Record a completed workout",
	Example: `  comrade workout ivan --type push --set "bench press:8@80" --set "bench press:6@85"
  comrade workout ivan --type legs --set squat:5@120 --at "2025-06-10 06:30"`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkout,
}

func runWorkout(cmd *cobra.Command, args []string) error {
	sets, err := parseSets(workoutSets)
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	at, err := parseWhen(workoutAt, d.Config.Location())
	if err != nil {
		return err
	}

	res, err := d.Service.RecordWorkout(cmd.Context(), domain.WorkoutEvent{
		UserID:      args[0],
		WorkoutType: domain.WorkoutType(workoutType),
		CompletedAt: at,
		Sets:        sets,
	})
	if err != nil {
		return err
	}

	printWorkoutResult(res)
	return nil
}

func printWorkoutResult(res *gamification.WorkoutResult) {
	fmt.Printf("Workout %s recorded: +%s\n", res.WorkoutID, formatXP(res.XP.Total()))
	lines := []struct {
		label string
		xp    int64
	}{
		{"workout", res.XP.Workout},
		{"personal records", res.XP.PersonalRecord},
		{"streak bonus", res.XP.StreakBonus},
		{"achievements", res.XP.Achievements},
		{"legendary bonus", res.XP.LegendaryBonus},
		{"challenges", res.XP.Challenges},
	}
	for _, l := range lines {
		if l.xp > 0 {
			fmt.Printf("  %-17s %s\n", l.label, formatXP(l.xp))
		}
	}
	for _, n := range res.Notifications {
		prefix := "*"
		if n.Deferred {
			prefix = "* (later)"
		}
		fmt.Printf("%s %s: %s\n", prefix, n.Title, n.Body)
	}
	fmt.Printf("Level %d %s, %s total, streak %d\n",
		res.Stats.Level, res.Stats.RankTitle, formatXP(res.Stats.TotalXP), res.Stats.CurrentStreak)
}
