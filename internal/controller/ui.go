// Package controller provides the front ends that display analysis results.
package controller

import (
	m "github.com/mouse-blink/tracelift/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeReport StartMode = iota
	ModeRun
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithReportMode sets the UI to one-shot display of results.
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

// WithRunMode sets the UI to live progress of a batch of analyses.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// UI is what the workflow talks to. Display methods may be called from
// several analysis goroutines at once.
type UI interface {
	Start(options ...StartOption) error
	Close()
	Wait() // Wait for the UI to flush and exit
	DisplayDetection(path m.Path, result m.DetectionResult)
	DisplayInjection(path m.Path, instrumented m.Path, plan m.InjectionPlan)
	DisplayRunInfo(files int, parallel int)
	DisplayAnalysisStarted(path m.Path)
	DisplayAnalysisCompleted(report m.Report, saved []m.Path)
	DisplayReport(report m.Report) error
}
