package domain

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// Detector fingerprints a source text against the indicator catalogue.
type Detector interface {
	Detect(source string) m.DetectionResult
}

type compiledIndicator struct {
	m.Indicator
	re *regexp.Regexp
}

type detector struct {
	indicators []compiledIndicator
	threshold  float64
	targets    map[m.Scheme][]m.TargetSymbol
	logger     *zap.Logger
}

var (
	vVariablePattern = regexp.MustCompile(`\bv\d+\b`)
	functionPattern  = regexp.MustCompile(`\bfunction\b`)
	hexPayloadRe     = regexp.MustCompile(`"[^"]*(?:LOL|023Q|[0-9A-Fa-f]{20,})[^"]*"`)
)

// NewDetector compiles the catalogue once. Indicators whose pattern does not
// compile are dropped and logged; config.Validate rejects them earlier.
func NewDetector(cfg *config.Config, logger *zap.Logger) Detector {
	d := &detector{
		threshold: cfg.Detection.GenericThreshold,
		targets:   cfg.Schemes,
		logger:    logger,
	}

	for _, ind := range cfg.Indicators {
		re, err := regexp.Compile(ind.Pattern)
		if err != nil {
			logger.Warn("dropping indicator", zap.String("indicator", ind.Name), zap.Error(err))
			continue
		}

		d.indicators = append(d.indicators, compiledIndicator{Indicator: ind, re: re})
	}

	return d
}

// Detect evaluates every indicator. A non-match contributes zero weight.
func (d *detector) Detect(source string) m.DetectionResult {
	result := m.DetectionResult{
		Scheme:  m.SchemeUnknown,
		Matched: []string{},
	}

	var (
		total     float64
		signature *compiledIndicator
		versions  []compiledIndicator
	)

	for i := range d.indicators {
		ind := d.indicators[i]
		if !ind.re.MatchString(source) {
			continue
		}

		total += ind.Weight
		result.Matched = append(result.Matched, ind.Name)

		switch ind.Class {
		case m.ClassSignature:
			if signature == nil || ind.Weight > signature.Weight {
				signature = &d.indicators[i]
			}
		case m.ClassVersion:
			versions = append(versions, ind)
		case m.ClassStructural:
		}
	}

	switch {
	case signature != nil:
		result.Scheme = signature.Scheme
	case total > d.threshold:
		result.Scheme = m.SchemeGeneric
	}

	result.Version = d.version(source, result.Scheme, versions)
	result.Confidence = min(1.0, total)
	result.Survey = d.survey(source, result.Scheme)

	d.logger.Debug("fingerprint",
		zap.String("scheme", string(result.Scheme)),
		zap.Float64("confidence", result.Confidence),
		zap.Strings("matched", result.Matched))

	return result
}

// version returns the first capturing group of the first matching version
// indicator, preferring indicators tied to the detected scheme.
func (d *detector) version(source string, scheme m.Scheme, versions []compiledIndicator) string {
	var fallback string

	for _, ind := range versions {
		groups := ind.re.FindStringSubmatch(source)
		if len(groups) < 2 {
			continue
		}

		if ind.Scheme == scheme {
			return groups[1]
		}

		if fallback == "" {
			fallback = groups[1]
		}
	}

	return fallback
}

func (d *detector) survey(source string, scheme m.Scheme) m.Survey {
	vars := make(map[string]struct{})
	for _, v := range vVariablePattern.FindAllString(source, -1) {
		vars[v] = struct{}{}
	}

	s := m.Survey{
		Variables:    len(vars),
		Functions:    len(functionPattern.FindAllStringIndex(source, -1)),
		HexPayloads:  len(hexPayloadRe.FindAllStringIndex(source, -1)),
		TargetsFound: make(map[string]bool),
	}

	for _, t := range d.targets[scheme] {
		s.TargetsFound[t.Symbol] = definesSymbol(source, t.Symbol)
	}

	return s
}
