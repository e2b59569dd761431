package config

import (
	"errors"
	"fmt"
	"regexp"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// Validate checks that the catalogue is well formed. The detector relies on
// every weight being non-negative so that confidence never decreases when an
// extra indicator matches.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool)

	for i, ind := range c.Indicators {
		if ind.Name == "" {
			errs = append(errs, fmt.Errorf("indicators[%d]: name is required", i))
		}

		if seen[ind.Name] {
			errs = append(errs, fmt.Errorf("indicators[%d]: duplicate name %q", i, ind.Name))
		}

		seen[ind.Name] = true

		if _, err := regexp.Compile(ind.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("indicator %q: invalid pattern: %w", ind.Name, err))
		}

		if ind.Weight < 0 || ind.Weight > 1 {
			errs = append(errs, fmt.Errorf("indicator %q: weight %.2f outside [0,1]", ind.Name, ind.Weight))
		}

		switch ind.Class {
		case m.ClassSignature:
			if ind.Weight < 0.2 {
				errs = append(errs, fmt.Errorf("indicator %q: signature weight must be >= 0.2", ind.Name))
			}

			if ind.Scheme == "" {
				errs = append(errs, fmt.Errorf("indicator %q: signature needs a scheme", ind.Name))
			}
		case m.ClassStructural:
			if ind.Weight > 0.1 {
				errs = append(errs, fmt.Errorf("indicator %q: structural weight must be <= 0.1", ind.Name))
			}
		case m.ClassVersion:
			re, err := regexp.Compile(ind.Pattern)
			if err == nil && re.NumSubexp() < 1 {
				errs = append(errs, fmt.Errorf("indicator %q: version pattern needs a capturing group", ind.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("indicator %q: unknown class %q", ind.Name, ind.Class))
		}
	}

	for i, a := range c.Anchors {
		if _, err := regexp.Compile(a.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("anchors[%d] %q: invalid pattern: %w", i, a.Name, err))
		}
	}

	for scheme, targets := range c.Schemes {
		for _, t := range targets {
			if t.Symbol == "" {
				errs = append(errs, fmt.Errorf("scheme %q: target symbol is required", scheme))
			}

			switch t.Inspect {
			case "", m.InspectResult, m.InspectArgs, m.InspectBoth:
			default:
				errs = append(errs, fmt.Errorf("scheme %q target %q: unknown inspect mode %q", scheme, t.Symbol, t.Inspect))
			}

			for idx, kind := range t.Layout {
				if !kind.Valid() {
					errs = append(errs, fmt.Errorf("scheme %q target %q: layout[%d] has unknown kind %q", scheme, t.Symbol, idx, kind))
				}
			}
		}
	}

	for _, r := range c.Reconstruct.Scoring {
		if r.Pattern == "" {
			continue
		}

		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("scoring rule %q: invalid pattern: %w", r.Name, err))
		}
	}

	if c.Reconstruct.ReadableRatio > 1 {
		errs = append(errs, fmt.Errorf("reconstruct.readable_ratio %.2f exceeds 1", c.Reconstruct.ReadableRatio))
	}

	if len(c.Runtime.Interpreters) == 0 {
		errs = append(errs, errors.New("runtime.interpreters must list at least one interpreter"))
	}

	for _, f := range c.Reports.Formats {
		switch f {
		case "json", "yaml", "txt":
		default:
			errs = append(errs, fmt.Errorf("reports.formats: unknown format %q", f))
		}
	}

	return errors.Join(errs...)
}
