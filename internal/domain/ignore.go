package domain

import (
	"bufio"
	"strings"
)

const ignoreDirective = "tracelift:ignore"

type ignoreRule struct {
	all   bool
	names map[string]struct{}
}

func (r ignoreRule) ignores(symbol string) bool {
	if r.all {
		return true
	}

	if len(r.names) == 0 {
		return false
	}

	_, ok := r.names[symbol]

	return ok
}

func mergeIgnoreRule(dst *ignoreRule, src ignoreRule) {
	if src.all {
		dst.all = true
		dst.names = nil

		return
	}

	if dst.all || len(src.names) == 0 {
		return
	}

	if dst.names == nil {
		dst.names = make(map[string]struct{}, len(src.names))
	}

	for name := range src.names {
		dst.names[name] = struct{}{}
	}
}

// parseIgnoreDirective reads "-- tracelift:ignore [sym, sym...]" from one
// comment. Lua names are case sensitive, so symbols are kept verbatim.
func parseIgnoreDirective(comment string) (ignoreRule, bool) {
	s := strings.TrimSpace(comment)
	if !strings.HasPrefix(s, "--") {
		return ignoreRule{}, false
	}

	s = strings.TrimSpace(strings.TrimLeft(s, "-"))
	s = strings.TrimPrefix(s, "[[")
	s = strings.TrimSpace(strings.TrimSuffix(s, "]]"))

	if !strings.HasPrefix(s, ignoreDirective) {
		return ignoreRule{}, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(s, ignoreDirective))
	if rest == "" {
		return ignoreRule{all: true}, true
	}

	parts := strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	rule := ignoreRule{names: make(map[string]struct{}, len(parts))}

	for _, part := range parts {
		if part == "" {
			continue
		}

		rule.names[part] = struct{}{}
	}

	if len(rule.names) == 0 {
		rule.all = true
		rule.names = nil
	}

	return rule, true
}

// buildIgnoreRule merges every directive comment found on its own line.
func buildIgnoreRule(source string) ignoreRule {
	var rule ignoreRule

	sc := bufio.NewScanner(strings.NewReader(source))
	sc.Buffer(make([]byte, 0, 64*1024), len(source)+1)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "--") || !strings.Contains(line, ignoreDirective) {
			continue
		}

		if r, ok := parseIgnoreDirective(line); ok {
			mergeIgnoreRule(&rule, r)
		}
	}

	return rule
}
