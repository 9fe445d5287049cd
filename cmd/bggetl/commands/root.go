// Package commands is the bggetl command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bggetl/internal/config"
	"bggetl/internal/logging"
	"bggetl/internal/pipeline"

	// Register every storage backend; the config picks one at runtime.
	_ "bggetl/internal/storage/all"
)

type globalFlags struct {
	config  string
	verbose bool
	date    string
}

// NewRootCmd builds the command tree. Tests build a fresh tree per case.
func NewRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "bggetl",
		Short:         "bggetl extracts the board game catalog into a relational database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "path to a JSON config file (env vars override it)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs")
	root.PersistentFlags().StringVar(&g.date, "date", "", "run date YYYY-MM-DD selecting the data directory (default today)")

	root.AddCommand(
		newRunCmd(&g),
		newExtractCmd(&g),
		newTransformCmd(&g),
		newLoadCmd(&g),
		newValidateCmd(&g),
	)
	return root
}

// ExecuteContext runs the command tree and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// job is everything a step command needs, built from the global flags.
type job struct {
	cfg    config.Config
	log    *logging.Logger
	runner *pipeline.Runner
	flush  func()
}

func (j *job) close() {
	j.flush()
	j.log.Sync()
}

// setup loads and validates the config, keeping only issues under sections,
// then builds the logger, metrics backend and runner.
func setup(g *globalFlags, stderr io.Writer, sections ...string) (*job, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	issues := config.Scope(config.ValidateConfig(cfg), sections...)
	printIssues(stderr, issues)
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("configuration is invalid")
	}

	day := time.Now()
	if g.date != "" {
		if day, err = time.ParseInLocation(time.DateOnly, g.date, time.Local); err != nil {
			return nil, fmt.Errorf("--date: %w", err)
		}
	}

	level := cfg.Log.Level
	if g.verbose {
		level = "debug"
	}
	log, err := logging.New(cfg.Log.Mode, level)
	if err != nil {
		return nil, err
	}

	flush, err := pipeline.InstallMetrics(cfg.Job, cfg.Metrics, log)
	if err != nil {
		log.Warn("metrics disabled", "error", err)
		flush = func() {}
	}

	return &job{
		cfg:    cfg,
		log:    log,
		runner: pipeline.New(cfg, log, day),
		flush:  flush,
	}, nil
}

func printIssues(w io.Writer, issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}
