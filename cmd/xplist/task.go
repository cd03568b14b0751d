package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xplist/core"
)

func newTaskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage a user's tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(opts),
		newTaskListCmd(opts),
		newTaskDoneCmd(opts),
		newTaskRmCmd(opts),
	)
	return cmd
}

func newTaskAddCmd(opts *rootOptions) *cobra.Command {
	var (
		difficulty  string
		description string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "add <user> <title>",
		Short: "Add an open task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			task, err := app.Service.CreateTask(commandContext(cmd), core.UserID(args[0]), args[1], description, core.Difficulty(difficulty))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", goodStyle.Render("added"), task.Title, mutedStyle.Render(task.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", string(core.DifficultyEasy), "easy, medium or hard")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTaskListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list <user>",
		Short: "List tasks, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := app.Service.ListTasks(commandContext(cmd), core.UserID(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no tasks"))
				return nil
			}
			for _, t := range tasks {
				fmt.Fprintln(cmd.OutOrStdout(), taskLine(t))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTaskDoneCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <user> <task-id>",
		Short: "Toggle a task between completed and open",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			task, award, err := app.Service.ToggleTask(commandContext(cmd), core.UserID(args[0]), args[1])
			if err != nil {
				return err
			}
			if !task.Completed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mutedStyle.Render("reopened"), task.Title)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", goodStyle.Render("completed"), task.Title)
			if award != nil {
				fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render(fmt.Sprintf("+%d XP", award.XPReward)))
				if award.LeveledUp {
					fmt.Fprintln(cmd.OutOrStdout(), levelUpBadge)
				}
				renderStats(cmd.OutOrStdout(), args[0], award.Statistics)
			}
			return nil
		},
	}
	return cmd
}

func newTaskRmCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <user> <task-id>",
		Short: "Delete a task; earned XP is kept",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := opts.openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Service.DeleteTask(commandContext(cmd), core.UserID(args[0]), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mutedStyle.Render("deleted"), args[1])
			return nil
		},
	}
	return cmd
}

func taskLine(t core.Task) string {
	icon := iconOpen
	if t.Completed {
		icon = iconDone
	}
	reward := ""
	if t.XPReward != nil {
		reward = fmt.Sprintf(", %d XP", *t.XPReward)
	}
	return fmt.Sprintf("%s %s %s %s", icon, t.Title,
		mutedStyle.Render(fmt.Sprintf("(%s%s)", t.Difficulty, reward)), mutedStyle.Render(t.ID))
}
