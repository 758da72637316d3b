package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/holefind/pkg/config"
	"github.com/chazu/holefind/pkg/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "holefind [model.lisp|model.yaml]",
		Short: "Recognize machinable holes in a solid model",
		Long: `holefind reads a plate model written in the holefind Lisp DSL or
dumped as YAML, recognizes its holes, groups them into machining
operations and prints the result as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			if err := setupLogging(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}

			app := NewApp(cfg)
			if !cfg.Watch {
				if err := app.Run(args[0], cmd.OutOrStdout()); err != nil {
					logging.Error("run failed", "error", err)
					return err
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchModel(ctx, args[0], func() {
				if err := app.Run(args[0], cmd.OutOrStdout()); err != nil {
					logging.Warn("run failed", "error", err)
				}
			})
		},
	}

	d := config.Defaults()
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "TOML config file (default ./"+config.DefaultFile+" when present)")
	f.Float64("linear-tol", d["linear-tol"].(float64), "linear tolerance")
	f.Float64("angular-tol", d["angular-tol"].(float64), "angular tolerance in radians")
	f.Float64("coaxial-tol", d["coaxial-tol"].(float64), "coaxial distance tolerance")
	f.Float64("chamfer-ratio", d["chamfer-ratio"].(float64), "largest chamfer depth as a fraction of the bore radius")
	f.Float64("fillet-ratio", d["fillet-ratio"].(float64), "largest mouth fillet as a fraction of the bore radius")
	f.Float64("thread-slack", d["thread-slack"].(float64), "allowed gap between a thread and its bore")
	f.Int("workers", d["workers"].(int), "classification workers (0 uses GOMAXPROCS)")
	f.String("direction", "", "approach direction x,y,z; through holes are turned to face it")
	f.String("convention", d["convention"].(string), "grouping convention: hypermill or nx")
	f.StringP("output", "o", d["output"].(string), "JSON output file")
	f.BoolP("write", "w", false, "write hole records to the output file")
	f.Bool("tools", false, "recommend cutters for each process")
	f.String("preview", "", "write a preview mesh as JSON to this file")
	f.Bool("watch", false, "re-run whenever the model file changes")
	f.String("log-level", d["log-level"].(string), "log level: debug, info, warn or error")
	f.Bool("log-json", false, "log as JSON")
	return cmd
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.LogJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	return nil
}
