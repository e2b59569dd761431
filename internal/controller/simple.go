package controller

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mouse-blink/tracelift/internal/adapter"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// SimpleUI implements UI with plain text tables on the command's output.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex

	completed []m.Report
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(_ ...StartOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed = nil

	return nil
}

// Close prints the batch summary when analyses were reported.
func (s *SimpleUI) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.completed) < 2 {
		return
	}

	sort.Slice(s.completed, func(i, j int) bool {
		return s.completed[i].Source < s.completed[j].Source
	})

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Source", "Outcome", "Best"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, r := range s.completed {
		table.Append([]string{string(r.Source), string(r.Outcome), bestText(r)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(s.completed)),
		string(m.WorstOutcome(s.completed)),
		"",
	})
	table.Render()
	s.printf("\n%s", tableBuffer.String())
}

// Wait is a no-op: text output is written synchronously.
func (s *SimpleUI) Wait() {}

// DisplayDetection prints the fingerprint of one source.
func (s *SimpleUI) DisplayDetection(path m.Path, result m.DetectionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	table.Append([]string{"scheme", string(result.Scheme)})
	table.Append([]string{"version", orDash(result.Version)})
	table.Append([]string{"confidence", fmt.Sprintf("%.2f", result.Confidence)})
	table.Append([]string{"matched", orDash(strings.Join(result.Matched, ", "))})
	table.Append([]string{"variables", fmt.Sprintf("%d", result.Survey.Variables)})
	table.Append([]string{"functions", fmt.Sprintf("%d", result.Survey.Functions)})
	table.Append([]string{"hex payloads", fmt.Sprintf("%d", result.Survey.HexPayloads)})

	targets := make([]string, 0, len(result.Survey.TargetsFound))
	for symbol, found := range result.Survey.TargetsFound {
		if found {
			targets = append(targets, symbol)
		}
	}

	sort.Strings(targets)
	table.Append([]string{"targets", orDash(strings.Join(targets, ", "))})
	table.Render()

	s.printf("%s\n%s\n", path, tableBuffer.String())
}

// DisplayInjection prints where instrumentation went and what it wrapped.
func (s *SimpleUI) DisplayInjection(path m.Path, instrumented m.Path, plan m.InjectionPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.printf("%s -> %s\n", path, instrumented)
	s.printf("  anchor   %s @ %d\n", orDash(plan.AnchorName), plan.AnchorOffset)
	s.printf("  run      %s\n", plan.RunID)

	if plan.FallbackUsed {
		s.printf("  fallback instrumentation unavailable, source left unchanged\n")
	}

	if len(plan.WrappedSymbols) == 0 && len(plan.Skipped) == 0 {
		return
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Symbol", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, symbol := range plan.WrappedSymbols {
		table.Append([]string{symbol, "wrapped"})
	}

	for _, skipped := range plan.Skipped {
		table.Append([]string{skipped.Symbol, "skipped: " + skipped.Reason})
	}

	table.Render()
	s.printf("\n%s", tableBuffer.String())
}

// DisplayRunInfo shows the batch size and worker count.
func (s *SimpleUI) DisplayRunInfo(files int, parallel int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.printf("Analysing %d file(s) with %d worker(s)\n", files, parallel)
}

// DisplayAnalysisStarted is quiet in text mode; completions carry the news.
func (s *SimpleUI) DisplayAnalysisStarted(_ m.Path) {}

// DisplayAnalysisCompleted prints the report of a finished analysis.
func (s *SimpleUI) DisplayAnalysisCompleted(report m.Report, saved []m.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed = append(s.completed, report)

	var buf bytes.Buffer

	adapter.WriteTextReport(&buf, report)
	s.printf("%s", buf.String())

	for _, path := range saved {
		s.printf("saved:      %s\n", path)
	}

	s.printf("\n")
}

// DisplayReport prints a single report.
func (s *SimpleUI) DisplayReport(report m.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer

	adapter.WriteTextReport(&buf, report)
	s.printf("%s", buf.String())

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func bestText(r m.Report) string {
	if best, ok := r.Best(); ok {
		return best.Text
	}

	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
