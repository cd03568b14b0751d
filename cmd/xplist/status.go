package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xplist/core"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <user>",
		Short: "Show a user's level, title and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := app.Service.Statistics(commandContext(cmd), core.UserID(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			renderStats(cmd.OutOrStdout(), args[0], stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAwardCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "award <user> <difficulty>",
		Short: "Award the XP of one completed task without recording the task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			d, _ := core.ParseDifficulty(args[1])
			res, err := app.Service.AwardXPForTask(commandContext(cmd), core.UserID(args[0]), d)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render(fmt.Sprintf("+%d XP", res.XPReward)))
			if res.LeveledUp {
				fmt.Fprintln(cmd.OutOrStdout(), levelUpBadge)
			}
			renderStats(cmd.OutOrStdout(), args[0], res.Statistics)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
