package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	replaycmd "github.com/rzbill/flow/internal/cmd/replay"
	servecmd "github.com/rzbill/flow/internal/cmd/serve"
	tailcmd "github.com/rzbill/flow/internal/cmd/tail"
	cfgpkg "github.com/rzbill/flow/internal/config"
	logpkg "github.com/rzbill/flow/pkg/log"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Respect FLOW_LOG_LEVEL for CLI start output before any config is read.
	level := os.Getenv("FLOW_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger.
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:     "flow [input]",
		Short:   "Tail, follow, and filter logs",
		Long:    "Flow tails an input (file or \"-\" for stdin) through a bounded in-memory buffer,\nprints the trailing lines, and can follow, filter, archive, and serve them.",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if initPath, _ := cmd.Flags().GetString("init"); initPath != "" {
				if err := cfgpkg.WriteDefault(initPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", initPath)
				return nil
			}
			if len(args) == 0 {
				_ = cmd.Help()
				return fmt.Errorf("missing <input>")
			}
			return runTail(cmd, args[0])
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringP("config", "c", "", "config file (default: .flow.yml in cwd, then home)")
	rootCmd.Flags().IntP("lines", "n", cfgpkg.DefaultLines, "number of trailing lines to print")
	rootCmd.Flags().IntP("max", "m", cfgpkg.DefaultMax, "maximum lines retained in memory")
	rootCmd.Flags().BoolP("follow", "f", false, "keep streaming appended lines")
	rootCmd.Flags().String("match", "", "named filter from the config file")
	rootCmd.Flags().String("filter", "", "inline filter expression")
	rootCmd.Flags().Bool("no-color", false, "disable match highlighting")
	rootCmd.Flags().Bool("archive", false, "persist the session to the data directory")
	rootCmd.Flags().String("data-dir", "", "data directory for archived sessions")
	rootCmd.Flags().String("init", "", "write a starter config file and exit")
	rootCmd.Flags().Lookup("init").NoOptDefVal = ".flow.yml"

	// serve
	serveCmd := &cobra.Command{
		Use:   "serve [input]",
		Short: "Serve the tail over HTTP (JSON reads, SSE follow)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := commandLogger(cfg)
			if err != nil {
				return err
			}
			applyCommonFlags(cmd, &cfg)
			addr, _ := cmd.Flags().GetString("http")
			match, _ := cmd.Flags().GetString("match")
			expr, _ := cmd.Flags().GetString("filter")
			doArchive, _ := cmd.Flags().GetBool("archive")
			dataDir, _ := cmd.Flags().GetString("data-dir")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return servecmd.Run(ctx, servecmd.Options{
				Input:   args[0],
				Addr:    addr,
				Lines:   cfg.Lines,
				Max:     cfg.Max,
				Match:   match,
				Expr:    expr,
				Archive: doArchive,
				DataDir: dataDir,
				Config:  cfg,
				Logger:  logger,
			})
		},
		SilenceUsage: true,
	}
	serveCmd.Flags().StringP("config", "c", "", "config file (default: .flow.yml in cwd, then home)")
	serveCmd.Flags().String("http", ":8080", "HTTP listen address")
	serveCmd.Flags().IntP("lines", "n", cfgpkg.DefaultLines, "default line count for /v1/lines")
	serveCmd.Flags().IntP("max", "m", cfgpkg.DefaultMax, "maximum lines retained in memory")
	serveCmd.Flags().String("match", "", "named filter from the config file")
	serveCmd.Flags().String("filter", "", "inline filter expression")
	serveCmd.Flags().Bool("archive", false, "persist the session to the data directory")
	serveCmd.Flags().String("data-dir", "", "data directory for archived sessions")
	rootCmd.AddCommand(serveCmd)

	// replay
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an archived session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := commandLogger(cfg)
			if err != nil {
				return err
			}
			session, _ := cmd.Flags().GetString("session")
			lines, _ := cmd.Flags().GetInt("lines")
			reverse, _ := cmd.Flags().GetBool("reverse")
			list, _ := cmd.Flags().GetBool("list")
			stats, _ := cmd.Flags().GetBool("stats")
			match, _ := cmd.Flags().GetString("match")
			expr, _ := cmd.Flags().GetString("filter")
			noColor, _ := cmd.Flags().GetBool("no-color")
			dataDir, _ := cmd.Flags().GetString("data-dir")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return replaycmd.Run(ctx, replaycmd.Options{
				Session:   session,
				Lines:     lines,
				Reverse:   reverse,
				List:      list,
				Stats:     stats,
				Match:     match,
				Expr:      expr,
				Highlight: cfg.Highlight && !noColor,
				DataDir:   dataDir,
				Config:    cfg,
				Out:       cmd.OutOrStdout(),
				Logger:    logger,
			})
		},
		SilenceUsage: true,
	}
	replayCmd.Flags().StringP("config", "c", "", "config file (default: .flow.yml in cwd, then home)")
	replayCmd.Flags().String("session", "", "session id (default: most recent)")
	replayCmd.Flags().IntP("lines", "n", 0, "limit output to the trailing n lines")
	replayCmd.Flags().Bool("reverse", false, "print newest lines first")
	replayCmd.Flags().Bool("list", false, "list archived sessions")
	replayCmd.Flags().Bool("stats", false, "print session statistics")
	replayCmd.Flags().String("match", "", "named filter from the config file")
	replayCmd.Flags().String("filter", "", "inline filter expression")
	replayCmd.Flags().Bool("no-color", false, "disable match highlighting")
	replayCmd.Flags().String("data-dir", "", "data directory for archived sessions")
	rootCmd.AddCommand(replayCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTail(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	applyCommonFlags(cmd, &cfg)
	if cmd.Flags().Changed("follow") {
		cfg.Follow, _ = cmd.Flags().GetBool("follow")
	}
	match, _ := cmd.Flags().GetString("match")
	expr, _ := cmd.Flags().GetString("filter")
	noColor, _ := cmd.Flags().GetBool("no-color")
	doArchive, _ := cmd.Flags().GetBool("archive")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return tailcmd.Run(ctx, tailcmd.Options{
		Input:     input,
		Lines:     cfg.Lines,
		Max:       cfg.Max,
		Follow:    cfg.Follow,
		Highlight: cfg.Highlight && !noColor,
		Match:     match,
		Expr:      expr,
		Archive:   doArchive,
		DataDir:   dataDir,
		Config:    cfg,
		Out:       cmd.OutOrStdout(),
		Logger:    logger,
	})
}

// loadConfig resolves and loads the config file, then overlays FLOW_*
// environment variables.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path, err := cfgpkg.Resolve(explicit)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)
	return cfg, nil
}

// applyCommonFlags overlays explicitly set numeric flags onto the config.
func applyCommonFlags(cmd *cobra.Command, cfg *cfgpkg.Config) {
	if cmd.Flags().Changed("lines") {
		cfg.Lines, _ = cmd.Flags().GetInt("lines")
	}
	if cmd.Flags().Changed("max") {
		cfg.Max, _ = cmd.Flags().GetInt("max")
	}
}

// commandLogger builds the process logger from the loaded config.
func commandLogger(cfg cfgpkg.Config) (logpkg.Logger, error) {
	logger, err := logpkg.ApplyConfig(&logpkg.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, err
	}
	logpkg.RedirectStdLog(logger)
	return logger, nil
}
