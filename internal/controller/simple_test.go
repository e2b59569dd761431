package controller

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/tracelift/internal/model"
)

func newSimpleUIWithBuffer() (*SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return NewSimpleUI(cmd), &buf
}

func TestSimpleUI_DisplayDetection_PrintsTable(t *testing.T) {
	ui, buf := newSimpleUIWithBuffer()

	ui.DisplayDetection("a.lua", m.DetectionResult{
		Scheme:     m.SchemeHercules,
		Version:    "1.6",
		Confidence: 0.7,
		Matched:    []string{"hercules_signature", "hercules_version"},
		Survey: m.Survey{
			Variables:    4,
			TargetsFound: map[string]bool{"SVkOeWirtS": true, "HuDWadUZyHyr": false},
		},
	})

	output := buf.String()
	for _, want := range []string{"a.lua", "hercules", "1.6", "0.70", "hercules_signature, hercules_version", "SVkOeWirtS"} {
		assert.Contains(t, output, want)
	}

	assert.NotContains(t, output, "HuDWadUZyHyr")
}

func TestSimpleUI_DisplayInjection(t *testing.T) {
	ui, buf := newSimpleUIWithBuffer()

	ui.DisplayInjection("a.lua", "a.hooked.lua", m.InjectionPlan{
		AnchorName:     "last_return",
		AnchorOffset:   42,
		WrappedSymbols: []string{"v28"},
		Skipped:        []m.SkippedSymbol{{Symbol: "v29", Reason: "not defined in source"}},
		RunID:          "run-1",
	})

	output := buf.String()
	for _, want := range []string{"a.lua -> a.hooked.lua", "last_return @ 42", "run-1", "v28", "wrapped", "skipped: not defined in source"} {
		assert.Contains(t, output, want)
	}
}

func TestSimpleUI_DisplayInjection_Fallback(t *testing.T) {
	ui, buf := newSimpleUIWithBuffer()

	ui.DisplayInjection("a.lua", "a.hooked.lua", m.InjectionPlan{FallbackUsed: true})

	assert.Contains(t, buf.String(), "fallback instrumentation unavailable")
}

func TestSimpleUI_RunSummary(t *testing.T) {
	ui, buf := newSimpleUIWithBuffer()

	require.NoError(t, ui.Start(WithRunMode()))
	ui.DisplayRunInfo(2, 2)
	ui.DisplayAnalysisStarted("b.lua")

	first := sampleReport()
	first.Source = "b.lua"

	second := m.Report{ID: "x", Source: "a.lua", Outcome: m.OutcomeTimeout, ExecutionError: "execution timed out"}

	ui.DisplayAnalysisCompleted(first, []m.Path{".tracelift-reports/b.5f0c1f8e.json"})
	ui.DisplayAnalysisCompleted(second, nil)
	ui.Close()
	ui.Wait()

	output := buf.String()
	for _, want := range []string{
		"Analysing 2 file(s) with 2 worker(s)",
		`print("BEACON")`,
		"saved:      .tracelift-reports/b.5f0c1f8e.json",
		"execution timed out",
		"TOTAL FILES 2",
		"timeout",
	} {
		assert.Contains(t, output, want)
	}
}

func TestSimpleUI_SingleAnalysisHasNoSummary(t *testing.T) {
	ui, buf := newSimpleUIWithBuffer()

	require.NoError(t, ui.Start())
	ui.DisplayAnalysisCompleted(sampleReport(), nil)
	ui.Close()

	assert.NotContains(t, buf.String(), "TOTAL FILES")
}

func TestSimpleUI_DisplayReport(t *testing.T) {
	ui, buf := newSimpleUIWithBuffer()

	require.NoError(t, ui.DisplayReport(sampleReport()))

	output := buf.String()
	assert.Contains(t, output, "tracelift report 5f0c1f8e-0000-4000-8000-000000000000")
	assert.Contains(t, output, "HELLO")
	assert.Contains(t, output, "1 | 0 | BEACON | string | print | arg1")
}
