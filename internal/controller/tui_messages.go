package controller

import (
	m "github.com/mouse-blink/tracelift/internal/model"
)

// Message types.
type runInfoMsg struct {
	files    int
	parallel int
}

type analysisStartedMsg struct {
	path string
}

type analysisCompletedMsg struct {
	report m.Report
	saved  []m.Path
}

type finishedMsg struct{}
