package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"xplist/core"
	"xplist/engine"
)

func newLevelCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "level <total-xp>",
		Short: "Show the level, progress and title for a total XP value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid xp %q: %w", args[0], err)
			}
			system, err := opts.loadSystem()
			if err != nil {
				return err
			}
			snap := system.Snapshot(total)
			stats := engine.Statistics{Snapshot: snap, Band: system.Band(snap.Level)}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			renderStats(cmd.OutOrStdout(), fmt.Sprintf("%d XP", snap.TotalXP), stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

type rewardView struct {
	Difficulty core.Difficulty `json:"difficulty"`
	Streak     int             `json:"streak"`
	BaseXP     int64           `json:"base_xp"`
	Multiplier float64         `json:"multiplier"`
	XP         int64           `json:"xp"`
}

func newRewardCmd(opts *rootOptions) *cobra.Command {
	var (
		streak int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "reward <difficulty>",
		Short: "Show the XP a task of the given difficulty is worth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := opts.loadSystem()
			if err != nil {
				return err
			}
			d, _ := core.ParseDifficulty(args[0])
			view := rewardView{
				Difficulty: d,
				Streak:     streak,
				BaseXP:     system.BaseReward(d),
				Multiplier: system.StreakMultiplier(streak),
				XP:         system.TaskXPReward(d, streak),
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), labelValue("Difficulty", view.Difficulty))
			fmt.Fprintln(cmd.OutOrStdout(), labelValue("Base", fmt.Sprintf("%d XP", view.BaseXP)))
			if streak > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), labelValue("Streak", fmt.Sprintf("%d (x%g)", streak, view.Multiplier)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), labelValue("Reward", goodStyle.Render(fmt.Sprintf("%d XP", view.XP))))
			return nil
		},
	}
	cmd.Flags().IntVar(&streak, "streak", 0, "consecutive completions before this one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// renderStats prints level, title, progress and the next-level span.
func renderStats(w io.Writer, name string, stats engine.Statistics) {
	band := bandStyle(stats.Band.Color)
	fmt.Fprintln(w, heading(iconSparkle, name))
	fmt.Fprintln(w, labelValue("Level", band.Render(fmt.Sprintf("%d %s", stats.Level, stats.Band.Title))))
	fmt.Fprintln(w, labelValue("Total XP", stats.TotalXP))
	fmt.Fprintln(w, labelValue("Progress", fmt.Sprintf("%s %d/%d (%.1f%%)",
		progressBar(stats.ProgressPercentage, stats.Band.Color), stats.CurrentLevelXP, stats.XPToNextLevel, stats.ProgressPercentage)))
}
