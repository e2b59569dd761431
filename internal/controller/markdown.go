package controller

import (
	"fmt"
	"strings"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// ReportMarkdown renders a report as Markdown for the terminal renderer.
func ReportMarkdown(r m.Report) string {
	var b strings.Builder

	d := r.Detection

	fmt.Fprintf(&b, "# tracelift report `%s`\n\n", r.ID)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| source | `%s` |\n", cell(string(r.Source)))
	fmt.Fprintf(&b, "| outcome | **%s** |\n", r.Outcome)

	if r.ExecutionError != "" {
		fmt.Fprintf(&b, "| execution | %s |\n", cell(r.ExecutionError))
	}

	scheme := string(d.Scheme)
	if d.Version != "" {
		scheme += " " + d.Version
	}

	fmt.Fprintf(&b, "| scheme | %s (%.2f) |\n", cell(scheme), d.Confidence)
	fmt.Fprintf(&b, "| matched | %s |\n", cell(orDash(strings.Join(d.Matched, ", "))))
	fmt.Fprintf(&b, "| wrapped | %s |\n", cell(orDash(strings.Join(r.Plan.WrappedSymbols, ", "))))

	if r.Plan.FallbackUsed {
		b.WriteString("| fallback | instrumentation unavailable |\n")
	}

	s := r.Stats
	fmt.Fprintf(&b, "\n## Trace\n\n")
	fmt.Fprintf(&b, "| strings | functions | constants | instructions | entries | final | readable | skipped |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d | %d |\n",
		s.Strings, s.Functions, s.Constants, s.Instructions,
		s.Entries, s.FinalStrings, s.ReadableStrings, s.SkippedLines)

	b.WriteString("\n## Candidates\n\n")

	if len(r.Candidates) == 0 {
		b.WriteString("_none_\n")
	} else {
		b.WriteString("| # | score | heuristic | candidate |\n|---|---|---|---|\n")

		for i, c := range r.Candidates {
			fmt.Fprintf(&b, "| %d | %d | %s | `%s` |\n", i+1, c.Score, c.OriginHeuristic, cell(c.Text))
		}
	}

	if len(r.StaticStrings) > 0 {
		b.WriteString("\n## Static strings\n\n")

		for _, st := range r.StaticStrings {
			fmt.Fprintf(&b, "- `%s` from `%s`\n", cell(st.Value), cell(st.Payload))
		}
	}

	if len(r.TraceTail) > 0 {
		b.WriteString("\n## Trace tail\n\n```\n")

		for _, e := range r.TraceTail {
			b.WriteString(strings.ReplaceAll(e.RawLine, "\t", " | "))
			b.WriteString("\n")
		}

		b.WriteString("```\n")
	}

	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "`", "'")

	return strings.ReplaceAll(s, "\n", " ")
}
