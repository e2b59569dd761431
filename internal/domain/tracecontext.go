package domain

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mouse-blink/tracelift/internal/config"
)

var luaNamePath = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// TraceContext is the per-run capture state handed to every generated
// wrapper. In the instrumented script it becomes a single private table that
// owns the output alias, the per-kind sequence counters and the capture
// limits, so no wrapper touches process-wide globals.
type TraceContext struct {
	RunID           string
	Table           string
	OutputPrimitive string
	MaxDepth        int
	Limits          map[string]int
}

// NewTraceContext creates a context with a fresh run id.
func NewTraceContext(capture config.CaptureConfig) *TraceContext {
	return newTraceContext(uuid.NewString(), capture)
}

func newTraceContext(runID string, capture config.CaptureConfig) *TraceContext {
	primitive := capture.OutputPrimitive
	if !luaNamePath.MatchString(primitive) {
		primitive = "print"
	}

	limits := make(map[string]int, len(capture.Limits))
	for k, v := range capture.Limits {
		limits[k] = v
	}

	if limits["generic"] <= 0 {
		limits["generic"] = 50
	}

	depth := capture.MaxDepth
	if depth <= 0 {
		depth = 3
	}

	return &TraceContext{
		RunID:           runID,
		Table:           "__tl_" + shortID(runID),
		OutputPrimitive: primitive,
		MaxDepth:        depth,
		Limits:          limits,
	}
}

// OutputAlias is the private field holding the original output primitive.
func (tc *TraceContext) OutputAlias() string {
	return tc.Table + ".out"
}

// PrimitiveAppendsNewline reports whether the output primitive terminates lines itself.
func (tc *TraceContext) PrimitiveAppendsNewline() bool {
	return tc.OutputPrimitive == "print"
}

// SortedLimits returns the limits in a stable order for code generation.
func (tc *TraceContext) SortedLimits() []Limit {
	out := make([]Limit, 0, len(tc.Limits))
	for k, v := range tc.Limits {
		out = append(out, Limit{Kind: k, Max: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })

	return out
}

// Limit is one capture cap.
type Limit struct {
	Kind string
	Max  int
}

func shortID(runID string) string {
	id := strings.ReplaceAll(runID, "-", "")

	var b strings.Builder

	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}

		if b.Len() == 12 {
			break
		}
	}

	if b.Len() == 0 {
		return "run"
	}

	return b.String()
}
