package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

var traceSaveFlag bool

// traceCmd represents the trace command.
var traceCmd = newTraceCmd()

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <file|->",
		Short: "Reconstruct output from a previously captured trace",
		Long:  traceLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := workflow.Trace(domain.TraceArgs{
				Path:  m.Path(args[0]),
				Stdin: cmd.InOrStdin(),
				Save:  traceSaveFlag,
			})
			if err != nil {
				return err
			}

			return exitFor([]m.Report{report})
		},
	}
	cmd.Flags().BoolVar(&traceSaveFlag, "save", false, "also write the report to the reports directory")

	return cmd
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
