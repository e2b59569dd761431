package controller

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Output selects the UI implementation.
type Output string

// Supported outputs. OutputAuto resolves to OutputTUI on a terminal and to
// OutputText otherwise.
const (
	OutputAuto Output = "auto"
	OutputText Output = "text"
	OutputTUI  Output = "tui"
	OutputJSON Output = "json"
)

// ParseOutput validates an --output flag value.
func ParseOutput(s string) (Output, error) {
	switch o := Output(s); o {
	case OutputAuto, OutputText, OutputTUI, OutputJSON:
		return o, nil
	case "":
		return OutputAuto, nil
	}

	return "", fmt.Errorf("unknown output %q (want auto, text, tui or json)", s)
}

// NewUI creates a UI for the requested output.
func NewUI(cmd *cobra.Command, output Output) UI {
	switch output {
	case OutputJSON:
		return NewJSONUI(cmd.OutOrStdout())
	case OutputTUI:
		return NewTUI(cmd.OutOrStdout())
	case OutputText:
		return NewSimpleUI(cmd)
	}

	if IsTTY(cmd.OutOrStdout()) {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY checks if the given writer is a terminal (TTY).
// Returns false if the output is redirected to a file or pipe.
func IsTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(file.Fd()))
}

func terminalWidth(w io.Writer, fallback int) int {
	file, ok := w.(*os.File)
	if !ok {
		return fallback
	}

	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}

	return width
}
