package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xplist/core"
	"xplist/leveling"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [user]",
		Short: "Group completed tasks by the level they were earned at",
		Long: "Group completed tasks by the level they were earned at.\n" +
			"With --file, reads a JSON array of tasks instead of the configured store.\n" +
			"Task keys are snake_case as printed by `task list --json`: id, title,\n" +
			"difficulty, xp_reward, completed and completed_at (RFC 3339).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				groups []leveling.LevelGroup
				system *leveling.System
			)
			switch {
			case file != "":
				tasks, err := readTasksFile(file)
				if err != nil {
					return err
				}
				system, err = opts.loadSystem()
				if err != nil {
					return err
				}
				groups = system.PartitionHistory(tasks)
			case len(args) == 1:
				app, cleanup, err := opts.openApp()
				if err != nil {
					return err
				}
				defer cleanup()
				system = app.Service.System()
				groups, err = app.Service.History(commandContext(cmd), core.UserID(args[0]))
				if err != nil {
					return err
				}
			default:
				return errors.New("history needs a user or --file")
			}

			if asJSON {
				if groups == nil {
					groups = []leveling.LevelGroup{}
				}
				return writeJSON(cmd.OutOrStdout(), groups)
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no completed tasks"))
				return nil
			}
			for _, g := range groups {
				band := system.Band(g.Level)
				fmt.Fprintln(cmd.OutOrStdout(), bandStyle(band.Color).Render(fmt.Sprintf("%s Level %d %s", iconScroll, g.Level, band.Title)))
				for _, t := range g.Tasks {
					fmt.Fprintln(cmd.OutOrStdout(), "  "+taskLine(t))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file holding an array of tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func readTasksFile(path string) ([]core.Task, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path supplied by the user
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}
	var tasks []core.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse tasks file %s: %w", path, err)
	}
	return tasks, nil
}
