package cmd

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hlcache/internal/config"
	"github.com/zjrosen/hlcache/internal/flags"
	"github.com/zjrosen/hlcache/internal/paths"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the hlcache configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigFlagCmd(a))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a commented default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := paths.ProjectConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigFlagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flag [NAME on|off]",
		Short: "List feature flags, or turn one on or off",
		Long: `Without arguments, list every known feature flag with its current value.
With NAME and on/off, store the value in the loaded config file, or in
.hlcache/config.yaml when none was found. Comments in the file are kept.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or NAME on|off")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range slices.Sorted(maps.Keys(flags.Known)) {
					_, _ = fmt.Fprintf(out, "%-16s %-5t %s\n", name, a.flags.Enabled(name), flags.Known[name])
				}
				return nil
			}

			name := args[0]
			if _, ok := flags.Known[name]; !ok {
				return fmt.Errorf("unknown feature flag %q", name)
			}

			var enabled bool
			switch args[1] {
			case "on", "true":
				enabled = true
			case "off", "false":
			default:
				return fmt.Errorf("flag value must be on or off, got %q", args[1])
			}

			path := a.configPath
			if path == "" {
				path = paths.ProjectConfigPath
			}
			if err := config.SaveFlag(path, name, enabled); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "%s=%t saved to %s\n", name, enabled, path)
			return err
		},
	}
}
