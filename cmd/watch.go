package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

var watchDebounceFlag = defaultDebounce
var watchTimeoutFlag time.Duration
var watchStaticOnlyFlag bool

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-analyse a script every time it changes",
		Long:  watchLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Watch(cmd.Context(), domain.WatchArgs{
				Path: m.Path(args[0]),
				Options: domain.AnalyzeOptions{
					Timeout:    watchTimeoutFlag,
					StaticOnly: watchStaticOnlyFlag,
				},
			})
		},
	}
	cmd.Flags().DurationVar(&watchDebounceFlag, "debounce", defaultDebounce, "quiet period before a change triggers a run")
	cmd.Flags().DurationVarP(&watchTimeoutFlag, "timeout", "t", 0, "execution deadline per run (default from configuration)")
	cmd.Flags().BoolVar(&watchStaticOnlyFlag, "static-only", false, "skip execution on every run")

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
