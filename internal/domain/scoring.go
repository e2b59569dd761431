package domain

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
)

// scoringRule is one (predicate, weight) pair. A rule matches when every
// condition it sets holds.
type scoringRule struct {
	name       string
	maxLen     int
	lowerAlpha bool
	pattern    *regexp.Regexp
	weight     int
}

func (r scoringRule) matches(literal string) bool {
	if r.maxLen > 0 && len(literal) >= r.maxLen {
		return false
	}

	if r.lowerAlpha && !isLowerAlpha(literal) {
		return false
	}

	if r.pattern != nil && !r.pattern.MatchString(literal) {
		return false
	}

	return r.maxLen > 0 || r.lowerAlpha || r.pattern != nil
}

type scorer []scoringRule

func newScorer(rules []config.ScoringRule, logger *zap.Logger) scorer {
	s := make(scorer, 0, len(rules))

	for _, r := range rules {
		rule := scoringRule{name: r.Name, maxLen: r.MaxLen, lowerAlpha: r.LowerAlpha, weight: r.Weight}

		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				logger.Warn("dropping scoring rule", zap.String("rule", r.Name), zap.Error(err))
				continue
			}

			rule.pattern = re
		}

		s = append(s, rule)
	}

	return s
}

func (s scorer) score(literal string) int {
	total := 0

	for _, r := range s {
		if r.matches(literal) {
			total += r.weight
		}
	}

	return total
}

func isLowerAlpha(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}

	return true
}
