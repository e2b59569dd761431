package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/domain"
)

// injectCmd represents the inject command.
var injectCmd = newInjectCmd()

func newInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject [paths...]",
		Short: "Write instrumented copies of Lua scripts without running them",
		Long:  injectLongDescription,
		RunE: func(_ *cobra.Command, args []string) error {
			return workflow.Inject(domain.InjectArgs{Paths: parsePaths(args)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(injectCmd)
}
