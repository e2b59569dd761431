package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// Injector inserts capture hooks into a script. Inject is total: every
// problem is reported through the plan instead of an error.
type Injector interface {
	Inject(source string, targets []m.TargetSymbol) (string, m.InjectionPlan)
}

type anchor struct {
	name     string
	re       *regexp.Regexp
	anchored *regexp.Regexp
	last     bool
}

type injector struct {
	anchors []anchor
	capture config.CaptureConfig
	newID   func() string
	logger  *zap.Logger
}

// NewInjector compiles the anchor catalogue in its configured order.
func NewInjector(cfg *config.Config, logger *zap.Logger) Injector {
	inj := &injector{
		capture: cfg.Capture,
		newID:   uuid.NewString,
		logger:  logger,
	}

	for _, a := range cfg.Anchors {
		re, err := regexp.Compile(a.Pattern)
		if err != nil {
			logger.Warn("dropping anchor", zap.String("anchor", a.Name), zap.Error(err))
			continue
		}

		inj.anchors = append(inj.anchors, anchor{
			name:     a.Name,
			re:       re,
			anchored: regexp.MustCompile(`\A(?:` + a.Pattern + `)`),
			last:     a.Last,
		})
	}

	return inj
}

func (inj *injector) Inject(source string, targets []m.TargetSymbol) (string, m.InjectionPlan) {
	tc := newTraceContext(inj.newID(), inj.capture)
	plan := m.InjectionPlan{RunID: tc.RunID, WrappedSymbols: []string{}}

	wraps, wrapped := inj.selectTargets(source, targets, tc, &plan)

	instrumentation, err := inj.instrumentation(tc, wraps, wrapped, &plan)
	if err != nil {
		inj.logger.Error("instrumentation unavailable", zap.Error(err))

		for _, sym := range plan.WrappedSymbols {
			plan.Skipped = append(plan.Skipped, m.SkippedSymbol{Symbol: sym, Reason: "instrumentation unavailable"})
		}

		plan.WrappedSymbols = []string{}
		plan.FallbackUsed = true

		return source, plan
	}

	offset, name, ok := inj.findAnchor(source)
	plan.AnchorOffset = offset
	plan.AnchorName = name
	plan.FallbackUsed = !ok

	var b strings.Builder

	b.Grow(len(source) + len(instrumentation) + 256)
	b.WriteString(source[:offset])
	b.WriteString("\n")
	b.WriteString(instrumentation)
	b.WriteString("\n")
	b.WriteString(source[offset:])

	// A trailer after a final return statement would not parse; the
	// finalizer sentinel in the prelude covers that case.
	if strings.TrimSpace(source[offset:]) == "" {
		if trailer, err := renderTrailer(tc); err == nil {
			b.WriteString(trailer)
		}
	}

	inj.logger.Debug("instrumented",
		zap.String("run_id", tc.RunID),
		zap.String("anchor", name),
		zap.Int("offset", offset),
		zap.Strings("wrapped", plan.WrappedSymbols),
		zap.Int("skipped", len(plan.Skipped)))

	return b.String(), plan
}

func (inj *injector) selectTargets(
	source string,
	targets []m.TargetSymbol,
	tc *TraceContext,
	plan *m.InjectionPlan,
) ([]string, []m.TargetSymbol) {
	rule := buildIgnoreRule(source)
	seen := make(map[string]struct{}, len(targets))

	var (
		wraps   []string
		wrapped []m.TargetSymbol
	)

	for _, t := range targets {
		if _, dup := seen[t.Symbol]; dup {
			continue
		}

		seen[t.Symbol] = struct{}{}

		reason := ""

		switch {
		case !luaNamePath.MatchString(t.Symbol):
			reason = "not a valid name"
		case rule.ignores(t.Symbol):
			reason = "ignored by directive"
		case !t.Builtin && !definesSymbol(source, t.Symbol):
			reason = "not defined in source"
		}

		if reason == "" {
			w, err := renderWrapper(tc, t)
			if err != nil {
				reason = err.Error()
			} else {
				wraps = append(wraps, w)
				wrapped = append(wrapped, t)
				plan.WrappedSymbols = append(plan.WrappedSymbols, t.Symbol)

				continue
			}
		}

		plan.Skipped = append(plan.Skipped, m.SkippedSymbol{Symbol: t.Symbol, Reason: reason})
	}

	return wraps, wrapped
}

// instrumentation renders the prelude and checks that logging cannot recurse
// through a wrapped output primitive. If the check fails the output primitive
// loses its wrapper and the rest of the plan stands.
func (inj *injector) instrumentation(
	tc *TraceContext,
	wraps []string,
	wrapped []m.TargetSymbol,
	plan *m.InjectionPlan,
) (string, error) {
	text, err := renderPrelude(tc, wraps)
	if err != nil {
		return "", err
	}

	err = checkCapabilityCapture(tc, text)
	if err == nil {
		return text, nil
	}

	inj.logger.Warn("output capture check failed", zap.Error(err))

	keep := wraps[:0:0]
	plan.WrappedSymbols = []string{}

	for i, t := range wrapped {
		if t.Symbol == tc.OutputPrimitive {
			plan.Skipped = append(plan.Skipped, m.SkippedSymbol{Symbol: t.Symbol, Reason: "output primitive capture failed"})
			continue
		}

		keep = append(keep, wraps[i])
		plan.WrappedSymbols = append(plan.WrappedSymbols, t.Symbol)
	}

	text, err = renderPrelude(tc, keep)
	if err != nil {
		return "", err
	}

	if err := checkCapabilityCapture(tc, text); err != nil {
		return "", fmt.Errorf("output capture: %w", err)
	}

	return text, nil
}

// findAnchor tries every anchor in order. Candidates are the positions where
// the anchor's pattern matches when started there, walked from the end for
// "last" anchors. A candidate nested in a block, inside a string, or splitting
// a line comment is rejected.
func (inj *injector) findAnchor(source string) (int, string, bool) {
	scope := scanBlocks(source)

	for _, a := range inj.anchors {
		starts := a.candidates(source)
		if a.last {
			slices.Reverse(starts)
		}

		for _, at := range starts {
			if !a.anchored.MatchString(source[at:]) {
				continue
			}

			if !scope.topLevel(at) || splitsComment(source, at) {
				continue
			}

			return at, a.name, true
		}
	}

	return 0, "", false
}

// candidates lists possible match starts in ascending order. A literal
// prefix narrows the search to its occurrences; otherwise every leftmost
// match start is collected, overlapping ones included.
func (a anchor) candidates(source string) []int {
	var starts []int

	if prefix, _ := a.re.LiteralPrefix(); prefix != "" {
		for from := 0; ; {
			i := strings.Index(source[from:], prefix)
			if i < 0 {
				return starts
			}

			starts = append(starts, from+i)
			from += i + 1
		}
	}

	for from := 0; from <= len(source); {
		loc := a.re.FindStringIndex(source[from:])
		if loc == nil {
			break
		}

		starts = append(starts, from+loc[0])
		from += loc[0] + 1
	}

	return starts
}

func splitsComment(source string, offset int) bool {
	lineStart := strings.LastIndexByte(source[:offset], '\n') + 1
	if !strings.Contains(source[lineStart:offset], "--") {
		return false
	}

	rest := source[offset:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	return strings.TrimSpace(rest) != ""
}

// definesSymbol approximates "bound in the script" textually: a local or
// global function definition, a local declaration, or an assignment.
func definesSymbol(source, symbol string) bool {
	if !luaNamePath.MatchString(symbol) {
		return false
	}

	q := regexp.QuoteMeta(symbol)
	patterns := []string{
		`\bfunction\s+` + q + `\s*\(`,
		`\blocal\s+function\s+` + q + `\b`,
		`\blocal\s+(?:[A-Za-z_]\w*\s*,\s*)*` + q + `\s*(?:[,=;]|$)`,
		`(?:^|[;\s(){}])` + q + `\s*=[^=]`,
		`(?:^|[;\s])(?:[A-Za-z_][\w.]*\s*,\s*)+` + q + `\s*=[^=]`,
	}

	for _, p := range patterns {
		if regexp.MustCompile(`(?m)` + p).MatchString(source) {
			return true
		}
	}

	return false
}
