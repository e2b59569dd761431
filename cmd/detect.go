package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/domain"
)

// detectCmd represents the detect command.
var detectCmd = newDetectCmd()

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [paths...]",
		Short: "Fingerprint the obfuscation scheme of Lua scripts",
		Long:  detectLongDescription,
		RunE: func(_ *cobra.Command, args []string) error {
			return workflow.Detect(domain.DetectArgs{Paths: parsePaths(args)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
