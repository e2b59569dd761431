// Package cmd provides the root command and CLI setup for tracelift.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mouse-blink/tracelift/internal/adapter"
	"github.com/mouse-blink/tracelift/internal/config"
	"github.com/mouse-blink/tracelift/internal/controller"
	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

const defaultDebounce = 250 * time.Millisecond

var configPathFlag string
var verboseFlag bool
var outputFlag string
var reportsDirFlag string

var logger = zap.NewNop()
var workflow domain.Workflow

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tracelift [paths...]",
		Short:         "Recover hidden strings from obfuscated Lua scripts",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return configure(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logger.Sync()
		},
		RunE: runAnalysis,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPathFlag, "config", "c", config.DefaultPath, "configuration file layered over the built-in catalogue")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging on stderr")
	flags.StringVarP(&outputFlag, "output", "o", string(controller.OutputAuto), "output format: auto, text, tui or json")
	flags.StringVar(&reportsDirFlag, "reports", "", "directory for saved reports (overrides the configuration)")

	addRunFlags(cmd)

	return cmd
}

// configure wires the pipeline once flags are parsed. A workflow that is
// already set is kept.
func configure(cmd *cobra.Command) error {
	output, err := controller.ParseOutput(outputFlag)
	if err != nil {
		return err
	}

	if workflow != nil {
		return nil
	}

	logger, err = newLogger(verboseFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPathFlag)
	if err != nil {
		return err
	}

	if reportsDirFlag != "" {
		cfg.Reports.Dir = reportsDirFlag
	}

	logger.Debug("configuration loaded",
		zap.String("path", configPathFlag),
		zap.Int("indicators", len(cfg.Indicators)),
		zap.Duration("timeout", cfg.Runtime.Timeout))

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	runtimeAdapter := adapter.NewLocalRuntimeAdapter(cfg.Runtime, logger)

	workflow = domain.NewWorkflow(
		cfg,
		fsAdapter,
		adapter.NewLocalReportStore(cfg.Reports),
		adapter.NewFSWatcher(fsAdapter, watchDebounceFlag, logger),
		controller.NewUI(cmd, output),
		domain.NewAnalyzer(cfg, fsAdapter, runtimeAdapter, logger),
		logger,
	)

	return nil
}

// newLogger writes JSON lines to stderr so they never mix with reports.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return l, nil
}

// exitError carries the process status derived from analysis outcomes.
type exitError struct {
	outcome m.Outcome
}

func (e *exitError) Error() string {
	return fmt.Sprintf("analysis finished: %s", e.outcome)
}

// ExitCode returns the status the process should exit with.
func (e *exitError) ExitCode() int {
	return e.outcome.ExitCode()
}

func exitFor(reports []m.Report) error {
	outcome := m.WorstOutcome(reports)
	if outcome.ExitCode() == 0 {
		return nil
	}

	return &exitError{outcome: outcome}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	os.Exit(exitCode(err, rootCmd))
}

func exitCode(err error, cmd *cobra.Command) int {
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

	return m.OutcomeInputError.ExitCode()
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
