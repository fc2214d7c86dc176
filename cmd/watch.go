package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/hlcache/internal/highlight"
	"github.com/zjrosen/hlcache/internal/log"
	"github.com/zjrosen/hlcache/internal/pubsub"
	"github.com/zjrosen/hlcache/internal/watcher"
)

// watchLine is one line of watch output.
type watchLine struct {
	State     string          `json:"state"`
	RequestID string          `json:"request_id"`
	Delta     highlight.Delta `json:"delta"`
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		rf      requestFlags
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-highlight a file every time it changes",
		Long: `Highlight FILE once, then again after every save. Each result is
printed as one JSON line carrying the cache decision that produced it, so
reuse and recompute can be observed while editing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := watcher.New(watcher.Config{Path: args[0], Debounce: a.cfg.Watch.Debounce})
			if err != nil {
				return err
			}
			defer func() { _ = w.Stop() }()

			changes, err := w.Start()
			if err != nil {
				return err
			}

			if verbose {
				streamLogs(ctx, cmd.ErrOrStderr(), a.cfg.Log.Level)
			}

			err = watchLoop(ctx, a, &rf, args[0], changes, cmd.OutOrStdout())
			if dropped := a.engine.DroppedUpdates(); dropped > 0 {
				log.Warn(log.CatWatcher, "Watch output missed cache updates", "dropped", dropped)
			}
			return err
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "stream cache and diff log entries to stderr")
	return cmd
}

// streamLogs copies log entries to w until ctx is done. Logging that was not
// turned on with --debug is started with no file so entries only reach w.
func streamLogs(ctx context.Context, w io.Writer, level string) {
	entries := log.NewListener(ctx)
	if entries == nil {
		log.InitWriter(io.Discard)
		log.SetMinLevel(log.ParseLevel(level))
		entries = log.NewListener(ctx)
	}

	go func() {
		for {
			event, ok := pubsub.Next(ctx, entries)
			if !ok {
				return
			}
			_, _ = io.WriteString(w, event.Payload)
		}
	}()
}

// watchLoop highlights path now and on every signal from changes until ctx
// is done. A failed read or highlight is logged and the loop keeps going.
func watchLoop(ctx context.Context, a *app, rf *requestFlags, path string, changes <-chan struct{}, out io.Writer) error {
	updates := a.engine.Subscribe(ctx)
	enc := json.NewEncoder(out)

	run := func() error {
		text, err := readFile(path)
		if err != nil {
			return err
		}
		req, err := rf.request(a, path, text)
		if err != nil {
			return err
		}
		delta, err := a.engine.Highlight(ctx, req)
		if err != nil {
			return err
		}

		line := watchLine{Delta: delta}
		if event, ok := pubsub.Next(ctx, updates); ok {
			line.State = event.Payload.State.String()
			line.RequestID = event.Payload.RequestID
		}
		return enc.Encode(line)
	}

	if err := run(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := run(); err != nil {
				log.ErrorErr(log.CatWatcher, "Re-highlight failed", err, "path", path)
			}
		}
	}
}
