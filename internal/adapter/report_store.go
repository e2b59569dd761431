package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// ReportStore persists and retrieves analysis reports.
type ReportStore interface {
	// Save writes one file per configured format and returns their paths.
	Save(report m.Report) ([]m.Path, error)
	// Load reads a report written by Save in json or yaml form.
	Load(path m.Path) (m.Report, error)
}

// LocalReportStore writes reports under a directory on disk.
type LocalReportStore struct {
	dir     string
	formats []string
}

// NewLocalReportStore constructs a store from the reports section.
func NewLocalReportStore(cfg config.ReportsConfig) *LocalReportStore {
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []string{"json", "txt"}
	}

	return &LocalReportStore{dir: cfg.Dir, formats: formats}
}

// Save writes <dir>/<base>.<id>.<format> for every format.
func (s *LocalReportStore) Save(report m.Report) ([]m.Path, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	stem := filepath.Join(s.dir, reportStem(report))
	paths := make([]m.Path, 0, len(s.formats))

	for _, format := range s.formats {
		data, err := encodeReport(format, report)
		if err != nil {
			return nil, err
		}

		path := stem + "." + format
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("write report %s: %w", path, err)
		}

		paths = append(paths, m.Path(path))
	}

	return paths, nil
}

// Load decodes a json or yaml report.
func (s *LocalReportStore) Load(path m.Path) (m.Report, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return m.Report{}, fmt.Errorf("read report: %w", err)
	}

	var report m.Report

	switch filepath.Ext(string(path)) {
	case ".json":
		err = json.Unmarshal(data, &report)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &report)
	default:
		return m.Report{}, fmt.Errorf("unsupported report format: %s", path)
	}

	if err != nil {
		return m.Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}

	return report, nil
}

func reportStem(report m.Report) string {
	base := strings.TrimSuffix(filepath.Base(string(report.Source)), filepath.Ext(string(report.Source)))
	if base == "" || base == "." {
		base = "report"
	}

	id := strings.ReplaceAll(report.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}

	if id == "" {
		id = "noid"
	}

	return base + "." + id
}

func encodeReport(format string, report m.Report) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json report: %w", err)
		}

		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("encode yaml report: %w", err)
		}

		return data, nil
	case "txt":
		var buf bytes.Buffer
		WriteTextReport(&buf, report)

		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("unsupported report format %q", format)
}

// WriteTextReport renders the human readable form of a report.
func WriteTextReport(w io.Writer, r m.Report) {
	d := r.Detection

	fmt.Fprintf(w, "tracelift report %s\n", r.ID)
	fmt.Fprintf(w, "source:     %s\n", r.Source)
	fmt.Fprintf(w, "outcome:    %s\n", r.Outcome)

	if r.ExecutionError != "" {
		fmt.Fprintf(w, "execution:  %s\n", r.ExecutionError)
	}

	fmt.Fprintf(w, "scheme:     %s", d.Scheme)

	if d.Version != "" {
		fmt.Fprintf(w, " (%s)", d.Version)
	}

	fmt.Fprintf(w, " confidence %.2f\n", d.Confidence)
	fmt.Fprintf(w, "matched:    %s\n", strings.Join(d.Matched, ", "))
	fmt.Fprintf(w, "anchor:     %s @ %d (fallback %t)\n", orNone(r.Plan.AnchorName), r.Plan.AnchorOffset, r.Plan.FallbackUsed)
	fmt.Fprintf(w, "wrapped:    %s\n", orNone(strings.Join(r.Plan.WrappedSymbols, ", ")))

	for _, s := range r.Plan.Skipped {
		fmt.Fprintf(w, "skipped:    %s (%s)\n", s.Symbol, s.Reason)
	}

	fmt.Fprintln(w)

	stats := tablewriter.NewWriter(w)
	stats.SetHeader([]string{"Strings", "Functions", "Constants", "Instructions", "Entries", "Final", "Readable", "Skipped"})
	stats.SetBorder(false)
	stats.SetCenterSeparator("")
	stats.Append([]string{
		itoa(r.Stats.Strings), itoa(r.Stats.Functions), itoa(r.Stats.Constants), itoa(r.Stats.Instructions),
		itoa(r.Stats.Entries), itoa(r.Stats.FinalStrings), itoa(r.Stats.ReadableStrings), itoa(r.Stats.SkippedLines),
	})
	stats.Render()

	fmt.Fprintln(w)

	if len(r.Candidates) == 0 {
		fmt.Fprintln(w, "no candidates: inconclusive")
	} else {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Rank", "Score", "Heuristic", "Candidate"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetAutoWrapText(false)

		for i, c := range r.Candidates {
			table.Append([]string{itoa(i + 1), itoa(c.Score), string(c.OriginHeuristic), c.Text})
		}

		table.Render()
	}

	if len(r.StaticStrings) > 0 {
		fmt.Fprintln(w, "\nstatic strings:")

		for _, s := range r.StaticStrings {
			fmt.Fprintf(w, "  %q  <- %s\n", s.Value, s.Payload)
		}
	}

	if len(r.TraceTail) > 0 {
		fmt.Fprintln(w, "\ntrace tail:")

		for _, e := range r.TraceTail {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e.RawLine, "\t", " | "))
		}
	}
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
