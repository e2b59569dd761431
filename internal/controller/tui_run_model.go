package controller

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/tracelift/internal/model"
)

var outcomeColors = map[m.Outcome]lipgloss.Color{
	m.OutcomeSuccess:      lipgloss.Color("2"),  // Green
	m.OutcomeInconclusive: lipgloss.Color("11"), // Yellow
	m.OutcomeStaticOnly:   lipgloss.Color("5"),  // Magenta
	m.OutcomeTimeout:      lipgloss.Color("1"),  // Red
	m.OutcomeInputError:   lipgloss.Color("1"),  // Red
}

// fileRow is one analysed source in start order.
type fileRow struct {
	path    string
	done    bool
	outcome m.Outcome
	best    string
	saved   int
}

// runModel shows the progress of a batch of analyses.
type runModel struct {
	width     int
	spinner   spinner.Model
	bar       progress.Model
	rows      []fileRow
	index     map[string]int
	total     int
	parallel  int
	completed int
	finished  bool
}

func newRunModel() runModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return runModel{
		width:   80,
		spinner: sp,
		bar:     bar,
		index:   make(map[string]int),
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return rm, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd

		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd

	case runInfoMsg:
		rm.total = msg.files
		rm.parallel = msg.parallel

	case analysisStartedMsg:
		rm = rm.row(msg.path)

	case analysisCompletedMsg:
		path := string(msg.report.Source)
		rm = rm.row(path)

		r := &rm.rows[rm.index[path]]
		if !r.done {
			rm.completed++
		}

		r.done = true
		r.outcome = msg.report.Outcome
		r.best = bestText(msg.report)
		r.saved = len(msg.saved)

	case finishedMsg:
		rm.finished = true

		return rm, tea.Quit
	}

	return rm, nil
}

func (rm runModel) row(path string) runModel {
	if _, ok := rm.index[path]; ok {
		return rm
	}

	rm.index[path] = len(rm.rows)
	rm.rows = append(rm.rows, fileRow{path: path})

	return rm
}

func (rm runModel) percent() float64 {
	if rm.total <= 0 {
		return 0
	}

	return float64(rm.completed) / float64(rm.total)
}

func (rm runModel) View() string {
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2).
		Render("tracelift")

	summary := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2).
		Render(fmt.Sprintf("Analysed %s / %s  •  Workers: %s",
			accent.Render(fmt.Sprintf("%d", rm.completed)),
			accent.Render(fmt.Sprintf("%d", rm.total)),
			accent.Render(fmt.Sprintf("%d", rm.parallel)),
		))

	bar := lipgloss.NewStyle().Padding(0, 2).Render(rm.bar.ViewAs(rm.percent()))

	lines := make([]string, 0, len(rm.rows))
	pathWidth := rm.width/2 - 4

	for _, r := range rm.rows {
		lines = append(lines, rm.renderRow(r, pathWidth))
	}

	body := lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))

	parts := []string{title, summary, bar, body}
	if !rm.finished {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 2).Render("q quit"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (rm runModel) renderRow(r fileRow, pathWidth int) string {
	path := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Render(truncateToWidth(r.path, pathWidth))

	if !r.done {
		return fmt.Sprintf("%s %s", rm.spinner.View(), path)
	}

	color, ok := outcomeColors[r.outcome]
	if !ok {
		color = lipgloss.Color("8")
	}

	outcome := lipgloss.NewStyle().Foreground(color).Bold(true).Width(13).Render(string(r.outcome))
	best := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render(truncateToWidth(r.best, rm.width-pathWidth-20))

	return fmt.Sprintf("%s %s %s  %s", marker(r.outcome), outcome, path, best)
}

func marker(o m.Outcome) string {
	if o == m.OutcomeSuccess {
		return "✓"
	}

	return "✗"
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	const ellipsis = "…"

	if width <= 1 {
		return ellipsis
	}

	maxWidth := width - lipgloss.Width(ellipsis)
	currentWidth := 0

	result := make([]rune, 0, len(text))
	for _, r := range text {
		rWidth := lipgloss.Width(string(r))
		if currentWidth+rWidth > maxWidth {
			break
		}

		result = append(result, r)
		currentWidth += rWidth
	}

	return string(result) + ellipsis
}
