package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"xplist/leveling"
)

const version = "0.1.0"

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "xplist",
		Short:         "XP List: level up by finishing tasks",
		Long:          "xplist tracks tasks and the XP, levels and titles earned by completing them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (.json, .yaml or .yml)")

	cmd.AddCommand(
		newLevelCmd(opts),
		newRewardCmd(opts),
		newAwardCmd(opts),
		newStatusCmd(opts),
		newTaskCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, badStyle.Render(iconError+" "+err.Error()))
		return 1
	}
	return 0
}

// openApp builds the full application and returns it with its cleanup.
func (o *rootOptions) openApp() (*App, func(), error) {
	return BuildApp(configPath(o.configFile))
}

// loadSystem builds only the leveling system, for commands that never touch storage.
func (o *rootOptions) loadSystem() (*leveling.System, error) {
	cfg, err := provideConfig(configPath(o.configFile))
	if err != nil {
		return nil, err
	}
	return leveling.New(cfg.Leveling)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
