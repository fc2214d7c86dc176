package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hlcache/internal/theme"
)

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "theme [FILE]",
		Short: "Show the color each highlight category resolves to",
		Long: `Parse a theme document ({"theme": {"keyword": "#ff0000", ...}}) and
print its content hash and the color resolved for each configured highlight
category. Dotted
categories such as function.method fall back to their prefix.

FILE defaults to highlight.theme_file from the configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Highlight.ThemeFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no theme file given and highlight.theme_file is not set")
			}

			data, err := os.ReadFile(path) //nolint:gosec // G304: user supplied theme path
			if err != nil {
				return fmt.Errorf("reading theme: %w", err)
			}
			th, err := theme.Parse(string(data))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "theme\t%016x\n", th.Hash())
			for _, name := range a.cfg.Highlight.NamesOrDefault() {
				color := "-"
				if c, ok := th.Color(name); ok {
					color = c.Hex()
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", name, color)
			}
			return tw.Flush()
		},
	}
}
