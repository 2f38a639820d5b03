package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/comrade-fit/comrade/internal/daemon"
)

func init() {
	almostCmd.Flags().Float64Var(&almostThreshold, "threshold", 0, "Progress fraction in (0, 1]; defaults to 0.8")
	achievementsCmd.AddCommand(almostCmd)

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(challengesCmd)
}

var almostThreshold float64

var statsCmd = &cobra.Command{
	Use:   "stats USER",
	Short: "Show a user's level, streak and progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements USER",
	Short: "List unlocked achievements and progress on locked ones",
	Args:  cobra.ExactArgs(1),
	RunE:  runAchievements,
}

var almostCmd = &cobra.Command{
	Use:   "almost USER",
	Short: "List achievements that are close to unlocking",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlmost,
}

var freezeCmd = &cobra.Command{
	Use:   "freeze USER",
	Short: "Spend this month's streak freeze on yesterday",
	Args:  cobra.ExactArgs(1),
	RunE:  runFreeze,
}

var challengesCmd = &cobra.Command{
	Use:   "challenges USER",
	Short: "Show this week's and this month's challenges",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallenges,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Service.Progress(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	s := p.Stats
	fmt.Printf("User:         %s\n", s.UserID)
	fmt.Printf("Level:        %d (%s)\n", p.Level.CurrentLevel, s.RankTitle)
	fmt.Printf("XP:           %s (%.1f%% to level %d)\n", formatXP(s.TotalXP), p.Level.ProgressPercentage, p.Level.NextLevel)
	fmt.Printf("Streak:       %d days, %s (longest %d)\n", p.Streak.CurrentStreak, p.Streak.StreakStatus, s.LongestStreak)
	fmt.Printf("              %s\n", p.StreakMessage)
	fmt.Printf("Workouts:     %d\n", s.TotalWorkoutsCompleted)
	fmt.Printf("PRs:          %d\n", s.TotalPRs)
	fmt.Printf("Last workout: %s\n", formatLastWorkout(s.LastWorkoutDate))
	if p.Freeze.CanUse {
		fmt.Println("Freeze:       available")
	} else {
		fmt.Printf("Freeze:       unavailable (%s)\n", p.Freeze.Reason)
	}
	fmt.Printf("Next level:   %s\n", p.NextLevel.Message)
	return nil
}

func runAchievements(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	report, err := d.Service.Achievements(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRARITY\tSTATUS")
	for _, u := range report.Unlocked {
		fmt.Fprintf(w, "%s\t%s\tunlocked %s\n", u.Achievement.Name, u.Achievement.Rarity, u.UnlockedAt.Format("2006-01-02"))
	}
	for _, l := range report.Locked {
		fmt.Fprintf(w, "%s\t%s\t%s\n", l.Achievement.Name, l.Achievement.Rarity, l.Progress.Message)
	}
	return w.Flush()
}

func runAlmost(cmd *cobra.Command, args []string) error {
	if almostThreshold < 0 || almostThreshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", almostThreshold)
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	almost, err := d.Service.AlmostUnlocked(cmd.Context(), args[0], almostThreshold)
	if err != nil {
		return err
	}
	if len(almost) == 0 {
		fmt.Println("Nothing close yet. Keep training.")
		return nil
	}
	for _, def := range almost {
		fmt.Printf("%s: %s\n", def.Name, def.Description)
	}
	return nil
}

func runFreeze(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Service.UseStreakFreeze(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Streak frozen for %s. Current streak: %d days.\n",
		res.FrozenDay.Format("Monday, Jan 2"), res.Stats.CurrentStreak)
	return nil
}

func runChallenges(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	challenges, err := d.Service.Challenges(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tCHALLENGE\tPROGRESS\tREWARD\tENDS")
	for _, c := range challenges {
		progress := fmt.Sprintf("%d/%d", c.Progress, c.Target)
		if c.Completed {
			progress += " done"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.Period, c.Description, progress, formatXP(c.RewardXP), c.ExpiresAt.Format("2006-01-02"))
	}
	return w.Flush()
}
