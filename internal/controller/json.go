package controller

import (
	"encoding/json"
	"io"
	"sync"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// JSONUI writes one JSON document per event, newline delimited, so the
// output of detect or run can be piped into other tools.
type JSONUI struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONUI creates a JSONUI writing to output.
func NewJSONUI(output io.Writer) *JSONUI {
	return &JSONUI{enc: json.NewEncoder(output)}
}

type detectionEvent struct {
	Path      m.Path            `json:"path"`
	Detection m.DetectionResult `json:"detection"`
}

type injectionEvent struct {
	Path         m.Path          `json:"path"`
	Instrumented m.Path          `json:"instrumented"`
	Plan         m.InjectionPlan `json:"plan"`
}

type reportEvent struct {
	Report m.Report `json:"report"`
	Saved  []m.Path `json:"saved,omitempty"`
}

// Start initializes the UI.
func (j *JSONUI) Start(_ ...StartOption) error {
	return nil
}

// Close finalizes the UI.
func (j *JSONUI) Close() {}

// Wait is a no-op.
func (j *JSONUI) Wait() {}

// DisplayDetection emits {"path","detection"}.
func (j *JSONUI) DisplayDetection(path m.Path, result m.DetectionResult) {
	j.emit(detectionEvent{Path: path, Detection: result})
}

// DisplayInjection emits {"path","instrumented","plan"}.
func (j *JSONUI) DisplayInjection(path m.Path, instrumented m.Path, plan m.InjectionPlan) {
	j.emit(injectionEvent{Path: path, Instrumented: instrumented, Plan: plan})
}

// DisplayRunInfo is not part of the JSON stream.
func (j *JSONUI) DisplayRunInfo(_ int, _ int) {}

// DisplayAnalysisStarted is not part of the JSON stream.
func (j *JSONUI) DisplayAnalysisStarted(_ m.Path) {}

// DisplayAnalysisCompleted emits {"report","saved"}.
func (j *JSONUI) DisplayAnalysisCompleted(report m.Report, saved []m.Path) {
	j.emit(reportEvent{Report: report, Saved: saved})
}

// DisplayReport emits {"report"}.
func (j *JSONUI) DisplayReport(report m.Report) error {
	return j.emit(reportEvent{Report: report})
}

func (j *JSONUI) emit(v interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.enc.Encode(v)
}
