package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hlcache/internal/engine"
	"github.com/zjrosen/hlcache/internal/highlight"
)

type requestFlags struct {
	language  string
	names     string
	themeFile string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "",
		"language name (default: detected from the file extension)")
	cmd.Flags().StringVar(&f.names, "names", "",
		`highlight category names as a JSON array, e.g. '["keyword","string"]'`)
	cmd.Flags().StringVar(&f.themeFile, "theme", "",
		"theme file to memoize alongside the result")
}

// request builds an engine request for text read from source. The language
// flag wins over detection.
func (f *requestFlags) request(a *app, source, text string) (engine.Request, error) {
	language := f.language
	if language == "" && source != "" {
		detected, ok := highlight.DetectLanguage(source)
		if ok {
			language = detected
		}
	}
	if language == "" {
		return engine.Request{}, fmt.Errorf("cannot detect language of %q: pass --language", source)
	}

	names := a.cfg.Highlight.NamesOrDefault()
	if f.names != "" {
		names = highlight.ParseNames(f.names)
	}

	themeFile := f.themeFile
	if themeFile == "" {
		themeFile = a.cfg.Highlight.ThemeFile
	}
	var themeRaw string
	if themeFile != "" {
		data, err := os.ReadFile(themeFile) //nolint:gosec // G304: user supplied theme path
		if err != nil {
			return engine.Request{}, fmt.Errorf("reading theme: %w", err)
		}
		themeRaw = string(data)
	}

	return engine.Request{Language: language, Text: text, Names: names, Theme: themeRaw}, nil
}

func newHighlightCmd(a *app) *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "highlight [FILE]",
		Short: "Highlight a file and print the result as JSON",
		Long: `Highlight FILE, or standard input when FILE is omitted or "-", and
print the highlight delta: ranges, category names, changed and reused spans
and the result version.

Example:
  hlcache highlight main.go
  cat main.go | hlcache highlight -l go --names '["keyword","string"]'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, text, err := readSource(cmd, args)
			if err != nil {
				return err
			}

			req, err := rf.request(a, source, text)
			if err != nil {
				return err
			}

			out, err := a.engine.HighlightJSON(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	rf.register(cmd)
	return cmd
}

// readSource returns the file name (empty for stdin) and its contents.
func readSource(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", string(data), nil
	}

	text, err := readFile(args[0])
	return args[0], text, err
}
