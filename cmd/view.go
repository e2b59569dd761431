package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <report>",
		Short: "View a previously saved report",
		Long:  "View a report saved by run or trace. JSON and YAML reports are accepted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return workflow.View(domain.ViewArgs{Path: m.Path(args[0])})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
