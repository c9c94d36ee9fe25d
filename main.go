package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"termpal/config"
	"termpal/db"
	"termpal/logging"
	"termpal/runner"
	"termpal/scheduler"
	"termpal/shell"
	"termpal/sysmon"
	"termpal/ui"
	"termpal/weather"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type rootOptions struct {
	configPath string
	verbose    bool
	noHistory  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "termpal",
		Short: "An interactive terminal with file built-ins, plain-English commands and daily scheduling",
		Long: `termpal is an interactive shell. It runs built-in file commands, understands
a few plain-English requests through 'ai', runs scripts, shows system usage,
fetches the weather and runs commands every day at a given time.

Type 'help' at the prompt for the list of commands.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config.yaml (default: ~/.termpal/config.yaml)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Write debug-level entries to the log file")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Neither load nor record command history")
	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.noHistory {
		cfg.History.Enabled = false
	}

	logger, err := logging.New(cfg.Log.File, cfg.Log.Level, opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sessionID := uuid.NewString()
	logger = logger.With(zap.String("session_id", sessionID))

	var (
		history shell.HistoryStore
		preload []string
	)
	if cfg.History.Enabled {
		database, err := openHistory(cfg.History)
		if err != nil {
			return fmt.Errorf("initializing history database: %w", err)
		}
		defer database.Close()
		history = database

		recent, err := database.Recent(cfg.History.Limit)
		if err != nil {
			logger.Warn("loading history failed", zap.Error(err))
		}
		// readline wants oldest first.
		for i := len(recent) - 1; i >= 0; i-- {
			preload = append(preload, recent[i].Line)
		}
	}

	console := ui.NewConsole(os.Stdout)
	sched := scheduler.New(
		scheduler.WithInterval(cfg.Scheduler.PollInterval),
		scheduler.WithLogger(logger.Named("scheduler")),
	)
	sh := shell.New(shell.Options{
		Console:      console,
		Scheduler:    sched,
		Sampler:      sysmon.NewHostSampler(),
		Weather:      weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout),
		History:      history,
		HistoryLimit: cfg.History.Limit,
		SessionID:    sessionID,
		Interpreters: runner.Interpreters{Python: cfg.Run.Python, Shell: cfg.Run.Shell},
		Logger:       logger.Named("shell"),
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
	})

	// Detect the help theme before readline owns stdin: it queries the terminal.
	theme := ui.DetectHelpTheme(os.Stdout)
	logger.Debug("help theme selected", zap.String("theme", theme))

	reader, err := shell.NewLineReader(os.Stdin, os.Stdout, shell.NewCompleter(sh.Verbs()), preload, cfg.History.Limit)
	if err != nil {
		return err
	}
	defer reader.Close()
	if rl, ok := reader.(*readline.Instance); ok {
		// Scheduler output arrives while the prompt is showing.
		console.SetOutput(rl.Stdout())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sh.SetExitFunc(func() {
		cancel()
		reader.Close()
	})

	// Ctrl+C is for the prompt and for child processes, not for termpal.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				logger.Debug("ignoring signal", zap.Stringer("signal", sig))
			}
		}
	}()

	logger.Info("termpal started",
		zap.Bool("history", cfg.History.Enabled),
		zap.Duration("poll_interval", cfg.Scheduler.PollInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return sh.Run(gctx, reader)
	})

	err = g.Wait()
	logger.Info("termpal stopped", zap.Error(err))
	return err
}

// openHistory returns the on-disk store when persistence is configured and a
// session-only store otherwise.
func openHistory(cfg config.HistoryConfig) (*db.DB, error) {
	if cfg.Persist {
		return db.New(cfg.Path)
	}
	return db.NewSession()
}
