package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/comrade-fit/comrade/internal/app/gamification"
)

func init() {
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(ranksCmd)
}

var levelCmd = &cobra.Command{
	Use:   "level XP",
	Short: "Show the level and progress for an XP total",
	Args:  cobra.ExactArgs(1),
	RunE:  runLevel,
}

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "List the rank titles and their level bands",
	RunE:  runRanks,
}

func runLevel(cmd *cobra.Command, args []string) error {
	xp, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || xp < 0 {
		return fmt.Errorf("invalid XP %q: want a non-negative integer", args[0])
	}

	p := gamification.GetLevelProgress(xp)
	fmt.Printf("Level:    %d (%s)\n", p.CurrentLevel, gamification.RankTitle(p.CurrentLevel))
	fmt.Printf("Progress: %s / %s (%.1f%%)\n",
		humanize.Comma(p.XPInCurrentLevel), formatXP(p.XPNeededForNextLevel), p.ProgressPercentage)
	fmt.Printf("Next:     level %d at %s\n", p.NextLevel, formatXP(gamification.TotalXPForLevel(p.NextLevel)))
	return nil
}

func runRanks(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tLEVELS\tSTARTS AT")
	for _, b := range gamification.LevelBands() {
		levels := fmt.Sprintf("%d+", b.FirstLevel)
		if b.LastLevel > 0 {
			levels = fmt.Sprintf("%d-%d", b.FirstLevel, b.LastLevel)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Rank, levels, formatXP(b.StartXP))
	}
	return w.Flush()
}
