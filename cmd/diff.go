package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/zjrosen/hlcache/internal/pubsub"
)

func newDiffCmd(a *app) *cobra.Command {
	var (
		rf      requestFlags
		unified bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Explain the cache decision for an edit",
		Long: `Highlight OLD, then NEW with the same language, and report what the
cache decided for NEW: the decision state, the change ratio against the
configured threshold, and the changed and reused spans.

Example:
  hlcache diff before.go after.go
  hlcache diff --unified before.go after.go`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldText, err := readFile(args[0])
			if err != nil {
				return err
			}
			newText, err := readFile(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			updates := a.engine.Subscribe(ctx)

			req, err := rf.request(a, args[1], oldText)
			if err != nil {
				return err
			}
			if _, err := a.engine.Highlight(ctx, req); err != nil {
				return err
			}
			_, _ = pubsub.Next(ctx, updates)

			req.Text = newText
			delta, err := a.engine.Highlight(ctx, req)
			if err != nil {
				return err
			}
			event, ok := pubsub.Next(ctx, updates)
			if !ok {
				return ctx.Err()
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "state\t%s\n", event.Payload.State)
			_, _ = fmt.Fprintf(tw, "ratio\t%.4f (threshold %.2f, %T)\n",
				a.differ.Ratio(oldText, newText), a.cfg.Cache.SimilarityThreshold, a.differ)
			_, _ = fmt.Fprintf(tw, "version\t%d\n", delta.Version)
			_, _ = fmt.Fprintf(tw, "changed\t%s\n", spansJSON(delta.ChangedRanges))
			_, _ = fmt.Fprintf(tw, "reused\t%s\n", spansJSON(delta.ReusedRanges))
			if err := tw.Flush(); err != nil {
				return err
			}

			if unified {
				return writeUnified(out, args[0], args[1], oldText, newText)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "also print a unified diff of the two files")
	return cmd
}

func writeUnified(w io.Writer, oldName, newName, oldText, newText string) error {
	if oldText == newText {
		return nil
	}
	_, err := fmt.Fprint(w, "\n"+udiff.Unified(oldName, newName, oldText, newText))
	return err
}

func spansJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user supplied source path
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
