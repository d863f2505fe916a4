// Package main provides the factsys CLI tool.
//
// Usage:
//
//	factsys <command> [flags]
//
// Commands:
//
//	show        List parameters with their values and metadata
//	get         Print one parameter
//	set         Validate, apply and save one parameter
//	watch       Print parameter changes as the files change
//	generate    Generate Go constants for parameter names
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/groundstation/factsys/internal/cmd/generate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

// app holds the state shared by all commands.
type app struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "factsys",
		Short: "Inspect and edit vehicle parameters",
		Long: `factsys loads parameter values from layered files, binds them to the
metadata declared in a metadata document and validates writes against it.

Parameter files map component ids to parameter names:

  1:
    RTL_ALT: 120
    FENCE_ENABLE: true

Environment variables named <prefix><component>_<NAME> override file values.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newShowCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newWatchCmd(a),
		generate.NewCommand(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
