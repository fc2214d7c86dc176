// Package cmd holds the hlcache command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/hlcache/internal/cache"
	"github.com/zjrosen/hlcache/internal/config"
	"github.com/zjrosen/hlcache/internal/diff"
	"github.com/zjrosen/hlcache/internal/engine"
	"github.com/zjrosen/hlcache/internal/flags"
	"github.com/zjrosen/hlcache/internal/log"
	"github.com/zjrosen/hlcache/internal/paths"
	"github.com/zjrosen/hlcache/internal/tracing"
)

var version = "dev"

// app is the state shared by every subcommand once the root has loaded
// configuration.
type app struct {
	cfgFile    string
	debug      bool
	cfg        config.Config
	configPath string
	flags      *flags.Registry
	differ     diff.Differ

	provider *tracing.Provider
	closeLog func()
	engine   *engine.Engine
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "hlcache",
		Short: "Incremental syntax highlighting with a change-aware cache",
		Long: `hlcache highlights source text and caches the result per language.
Repeated requests for unchanged or barely changed text reuse the cached
ranges; anything else is recomputed and the result version is bumped.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: .hlcache/config.yaml, then ~/.config/hlcache/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false,
		"write debug logs (also HLCACHE_DEBUG=1)")

	root.AddCommand(
		newHighlightCmd(a),
		newWatchCmd(a),
		newThemeCmd(a),
		newDiffCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.configPath = paths.ResolveConfig(a.cfgFile)

	cfg, err := config.Load(viper.New(), a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.flags = flags.New(cfg.Flags)

	if err := a.initLogging(); err != nil {
		return err
	}
	log.Info(log.CatConfig, "Configuration loaded", "path", a.configPath, "flags", a.flags.All())

	tracingCfg := cfg.Tracing
	if tracingCfg.Enabled && tracingCfg.Exporter == tracing.ExporterFile && tracingCfg.FilePath == "" {
		tracingCfg.FilePath = paths.DefaultTracePath()
	}
	provider, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	a.provider = provider

	a.differ = differFor(cfg, a.flags)
	a.engine = engine.New(cache.NewStore(storeOptions(cfg, a.differ)...),
		engine.WithTracer(provider.Tracer()))
	return nil
}

func (a *app) initLogging() error {
	debug := a.debug || a.cfg.Log.Debug || os.Getenv("HLCACHE_DEBUG") != ""
	if !debug {
		return nil
	}

	path := os.Getenv("HLCACHE_LOG")
	if path == "" {
		path = a.cfg.Log.Path
	}
	if path == "" {
		path = paths.DefaultLogPath()
	}

	closeLog, err := log.Init(path)
	if err != nil {
		return fmt.Errorf("opening debug log %s: %w", path, err)
	}
	a.closeLog = closeLog
	log.SetMinLevel(log.ParseLevel(a.cfg.Log.Level))
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
		}
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}

// differFor picks the change metric. The aligned-diff flag swaps in the
// alignment-aware differ.
func differFor(cfg config.Config, reg *flags.Registry) diff.Differ {
	if reg.Enabled(flags.FlagAlignedDiff) {
		return diff.Aligned{MergeGap: cfg.Cache.MergeGap, Timeout: diff.DefaultAlignTimeout}
	}
	return diff.Positional{MergeGap: cfg.Cache.MergeGap}
}

// storeOptions maps the cache section onto store options.
func storeOptions(cfg config.Config, differ diff.Differ) []cache.Option {
	return []cache.Option{
		cache.WithStaleAfter(cfg.Cache.StaleAfter),
		cache.WithThreshold(cfg.Cache.SimilarityThreshold),
		cache.WithDiffer(differ),
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
