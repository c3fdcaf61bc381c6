package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/config"
)

type commandContext struct {
	stderr io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     *slog.Logger
}

func newCommandContext(stderr io.Writer) *commandContext {
	return &commandContext{stderr: stderr}
}

// ensureConfig loads the environment once; the logger writes to stderr so
// stdout only carries results.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = config.NewLoggerTo(c.stderr, cfg.Environment)
	})
	return c.config, c.configErr
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lookalike",
		Short:         "Rank a face gallery by similarity to probe photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(newMatchCommand(ctx))
	rootCmd.AddCommand(newImportGalleryCommand(ctx))
	rootCmd.AddCommand(newImportMembersCommand(ctx))

	return rootCmd
}

// usageArgs marks argument validation failures as usage errors
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// execute runs the CLI and returns the process exit status. Match failures
// are reported as JSON on stdout; everything else goes to stderr.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmdCtx := newCommandContext(stderr)
	root := newRootCommand(cmdCtx)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var reported *reportedError
	if !errors.As(err, &reported) && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "error:", err)
	}
	return exitCode(err)
}

// reportedError is an error already written to stdout as JSON
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
