package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "github.com/mouse-blink/tracelift/internal/model"
)

func TestReportMarkdown(t *testing.T) {
	md := ReportMarkdown(sampleReport())

	for _, want := range []string{
		"# tracelift report `5f0c1f8e-0000-4000-8000-000000000000`",
		"| outcome | **success** |",
		"| scheme | luaobfuscator Alpha 0.10.6 (0.90) |",
		"| 1 | 60 | direct | `print(\"BEACON\")` |",
		"- `HELLO` from `LOL!4845...`",
		"1 | 0 | BEACON | string | print | arg1",
	} {
		assert.Contains(t, md, want)
	}
}

func TestReportMarkdown_NoCandidates(t *testing.T) {
	md := ReportMarkdown(m.Report{
		ID:             "r",
		Outcome:        m.OutcomeStaticOnly,
		ExecutionError: "execution failed: lua: a|b",
		Plan:           m.InjectionPlan{FallbackUsed: true},
	})

	assert.Contains(t, md, "_none_")
	assert.Contains(t, md, `execution failed: lua: a\|b`)
	assert.Contains(t, md, "| fallback | instrumentation unavailable |")
	assert.NotContains(t, md, "## Static strings")
	assert.NotContains(t, md, "## Trace tail")
}

func TestCell(t *testing.T) {
	assert.Equal(t, `a\|b 'c' d`, cell("a|b `c`\nd"))
}
