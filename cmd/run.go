package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/domain"
)

var runParallelFlag int
var runTimeoutFlag time.Duration
var runStaticOnlyFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Detect, instrument, execute and reconstruct",
		Long:  runLongDescription,
		RunE:  runAnalysis,
	}

	addRunFlags(cmd)

	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, "parallel", "p", 1, "number of scripts analysed at once")
	cmd.Flags().DurationVarP(&runTimeoutFlag, "timeout", "t", 0, "execution deadline per script (default from configuration)")
	cmd.Flags().BoolVar(&runStaticOnlyFlag, "static-only", false, "skip execution and report detection and decoded payloads only")
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	reports, err := workflow.Run(cmd.Context(), domain.RunArgs{
		Paths:    parsePaths(args),
		Parallel: runParallelFlag,
		Options: domain.AnalyzeOptions{
			Timeout:    runTimeoutFlag,
			StaticOnly: runStaticOnlyFlag,
		},
	})
	if err != nil {
		return err
	}

	return exitFor(reports)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
