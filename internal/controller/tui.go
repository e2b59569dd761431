package controller

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// TUI implements UI using Bubble Tea for live progress and glamour for
// rendered reports.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	started bool
	closed  bool
	runErr  error
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the progress program in run mode. Report mode prints
// directly and needs no program.
func (t *TUI) Start(options ...StartOption) error {
	cfg := &StartConfig{mode: ModeReport}
	for _, opt := range options {
		opt(cfg)
	}

	if cfg.mode != ModeRun {
		t.mu.Lock()
		t.started = true
		t.mu.Unlock()

		return nil
	}

	return t.startWithModel(newRunModel())
}

func (t *TUI) startWithModel(model tea.Model) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return nil
	}

	t.program = tea.NewProgram(model, tea.WithOutput(t.output), tea.WithInput(nil))
	t.done = make(chan struct{})
	t.started = true
	t.closed = false

	program, done := t.program, t.done

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			t.mu.Lock()
			t.runErr = err
			t.mu.Unlock()
		}
	}()

	return nil
}

func (t *TUI) ensureStarted() {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	if !started {
		_ = t.Start()
	}
}

func (t *TUI) running() *tea.Program {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	return t.program
}

func (t *TUI) send(msg tea.Msg) bool {
	program := t.running()
	if program == nil {
		return false
	}

	program.Send(msg)

	return true
}

// Close tells the progress program to render its final frame and waits for it.
func (t *TUI) Close() {
	t.mu.Lock()

	if t.program == nil || t.closed {
		t.mu.Unlock()
		return
	}

	t.closed = true
	program := t.program
	t.mu.Unlock()

	program.Send(finishedMsg{})
	t.Wait()
}

// Wait blocks until the progress program has exited.
func (t *TUI) Wait() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	<-done
}

// DisplayDetection prints a styled fingerprint card.
func (t *TUI) DisplayDetection(path m.Path, result m.DetectionResult) {
	t.ensureStarted()

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	scheme := string(result.Scheme)
	if result.Version != "" {
		scheme += " " + result.Version
	}

	targets := make([]string, 0, len(result.Survey.TargetsFound))
	for symbol, found := range result.Survey.TargetsFound {
		if found {
			targets = append(targets, symbol)
		}
	}

	sort.Strings(targets)

	rows := []string{
		label.Render("scheme") + value.Render(scheme),
		label.Render("confidence") + value.Render(fmt.Sprintf("%.2f", result.Confidence)),
		label.Render("matched") + value.Render(orDash(strings.Join(result.Matched, ", "))),
		label.Render("survey") + value.Render(fmt.Sprintf("%d vars, %d functions, %d payloads",
			result.Survey.Variables, result.Survey.Functions, result.Survey.HexPayloads)),
		label.Render("targets") + value.Render(orDash(strings.Join(targets, ", "))),
	}

	t.print(card(string(path), rows))
}

// DisplayInjection prints a styled injection plan card.
func (t *TUI) DisplayInjection(path m.Path, instrumented m.Path, plan m.InjectionPlan) {
	t.ensureStarted()

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	rows := []string{
		label.Render("output") + value.Render(string(instrumented)),
		label.Render("anchor") + value.Render(fmt.Sprintf("%s @ %d", orDash(plan.AnchorName), plan.AnchorOffset)),
		label.Render("wrapped") + value.Render(orDash(strings.Join(plan.WrappedSymbols, ", "))),
	}

	for _, s := range plan.Skipped {
		rows = append(rows, label.Render("skipped")+warn.Render(s.Symbol+": "+s.Reason))
	}

	if plan.FallbackUsed {
		rows = append(rows, warn.Render("instrumentation unavailable, source left unchanged"))
	}

	t.print(card(string(path), rows))
}

// DisplayRunInfo updates the progress header.
func (t *TUI) DisplayRunInfo(files int, parallel int) {
	t.send(runInfoMsg{files: files, parallel: parallel})
}

// DisplayAnalysisStarted adds a spinner row.
func (t *TUI) DisplayAnalysisStarted(path m.Path) {
	t.send(analysisStartedMsg{path: string(path)})
}

// DisplayAnalysisCompleted settles a row, or renders the report when no
// progress program is running.
func (t *TUI) DisplayAnalysisCompleted(report m.Report, saved []m.Path) {
	if t.send(analysisCompletedMsg{report: report, saved: saved}) {
		return
	}

	_ = t.DisplayReport(report)
}

// DisplayReport renders the report as Markdown.
func (t *TUI) DisplayReport(report m.Report) error {
	out, err := t.renderMarkdown(ReportMarkdown(report))
	if err != nil {
		return err
	}

	t.print(out)

	return nil
}

func (t *TUI) renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(terminalWidth(t.output, 100)),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}

	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	return out, nil
}

func (t *TUI) print(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = fmt.Fprint(t.output, s)
}

func card(title string, rows []string) string {
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render(title)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Padding(0, 1)

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{header}, rows...)...)) + "\n"
}
