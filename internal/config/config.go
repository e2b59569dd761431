// Package config loads the tracelift catalogue and pipeline settings.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = "tracelift.yaml"

//go:embed default.yaml
var defaultYAML []byte

// Config holds the catalogue and every tunable of the pipeline.
type Config struct {
	Indicators  []m.Indicator                 `yaml:"indicators"`
	Detection   DetectionConfig               `yaml:"detection"`
	Schemes     map[m.Scheme][]m.TargetSymbol `yaml:"schemes"`
	Anchors     []AnchorConfig                `yaml:"anchors"`
	Capture     CaptureConfig                 `yaml:"capture"`
	Reconstruct ReconstructConfig             `yaml:"reconstruct"`
	Runtime     RuntimeConfig                 `yaml:"runtime"`
	Reports     ReportsConfig                 `yaml:"reports"`
}

// DetectionConfig tunes classification.
type DetectionConfig struct {
	GenericThreshold float64 `yaml:"generic_threshold"`
}

// AnchorConfig is one injection anchor pattern, tried in list order.
type AnchorConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	// Last tries match positions from the end of the source.
	Last bool `yaml:"last"`
}

// CaptureConfig bounds what generated wrappers log.
type CaptureConfig struct {
	OutputPrimitive string         `yaml:"output_primitive"`
	MaxDepth        int            `yaml:"max_depth"`
	Limits          map[string]int `yaml:"limits"`
}

// Limit returns the per-structure cap for kind, falling back to the generic cap.
func (c CaptureConfig) Limit(kind string) int {
	if n, ok := c.Limits[kind]; ok && n > 0 {
		return n
	}

	return c.Limits["generic"]
}

// ReconstructConfig tunes the trace predicates and candidate ranking.
type ReconstructConfig struct {
	TailWindow    int           `yaml:"tail_window"`
	FinalMaxLen   int           `yaml:"final_max_len"`
	ReadableRatio float64       `yaml:"readable_ratio"`
	MinTokenLen   int           `yaml:"min_token_len"`
	Stopwords     []string      `yaml:"stopwords"`
	Scoring       []ScoringRule `yaml:"scoring"`
}

// ScoringRule adds Weight to a candidate whose literal satisfies the rule.
// Exactly one of MaxLen, LowerAlpha or Pattern is expected to be set.
type ScoringRule struct {
	Name       string `yaml:"name"`
	MaxLen     int    `yaml:"max_len,omitempty"`
	LowerAlpha bool   `yaml:"lower_alpha,omitempty"`
	Pattern    string `yaml:"pattern,omitempty"`
	Weight     int    `yaml:"weight"`
}

// RuntimeConfig drives the external interpreter.
type RuntimeConfig struct {
	Interpreters []string      `yaml:"interpreters"`
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// ProbeArgs are passed to each candidate interpreter to confirm it runs.
	// An empty list accepts the first interpreter found on PATH.
	ProbeArgs []string `yaml:"probe_args"`
	Args      []string `yaml:"args"`
}

// ReportsConfig selects where reports are written.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
	// Formats lists the files written per report: json, yaml, txt.
	Formats []string `yaml:"formats"`
}

// Default returns the embedded configuration.
func Default() *Config {
	cfg, err := decode(defaultYAML, &Config{})
	if err != nil {
		panic(fmt.Sprintf("embedded configuration is invalid: %v", err))
	}

	return cfg
}

// Load reads configuration from a YAML file on top of the embedded defaults.
// If the file doesn't exist, it returns the defaults and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}

		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := decode(data, Default())
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML text on top of the embedded defaults.
func Parse(data []byte) (*Config, error) {
	return decode(data, Default())
}

func decode(data []byte, base *Config) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(base); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}

	applyDefaults(base)

	if err := base.Validate(); err != nil {
		return nil, err
	}

	return base, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Detection.GenericThreshold <= 0 {
		cfg.Detection.GenericThreshold = 0.3
	}

	if cfg.Capture.OutputPrimitive == "" {
		cfg.Capture.OutputPrimitive = "print"
	}

	if cfg.Capture.MaxDepth <= 0 {
		cfg.Capture.MaxDepth = 3
	}

	if cfg.Capture.Limits == nil {
		cfg.Capture.Limits = map[string]int{}
	}

	if cfg.Capture.Limits["generic"] <= 0 {
		cfg.Capture.Limits["generic"] = 50
	}

	if cfg.Reconstruct.TailWindow <= 0 {
		cfg.Reconstruct.TailWindow = 10
	}

	if cfg.Reconstruct.FinalMaxLen <= 0 {
		cfg.Reconstruct.FinalMaxLen = 50
	}

	if cfg.Reconstruct.ReadableRatio <= 0 {
		cfg.Reconstruct.ReadableRatio = 0.6
	}

	if cfg.Runtime.Timeout <= 0 {
		cfg.Runtime.Timeout = 30 * time.Second
	}

	if cfg.Runtime.ProbeTimeout <= 0 {
		cfg.Runtime.ProbeTimeout = 5 * time.Second
	}

	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = ".tracelift-reports"
	}

	if len(cfg.Reports.Formats) == 0 {
		cfg.Reports.Formats = []string{"json", "txt"}
	}
}

// Targets returns the scheme specific entry points followed by the generic ones.
func (c *Config) Targets(scheme m.Scheme) []m.TargetSymbol {
	var targets []m.TargetSymbol

	seen := make(map[string]bool)

	add := func(list []m.TargetSymbol) {
		for _, t := range list {
			if seen[t.Symbol] {
				continue
			}

			seen[t.Symbol] = true

			targets = append(targets, t)
		}
	}

	if scheme != m.SchemeGeneric {
		add(c.Schemes[scheme])
	}

	add(c.Schemes[m.SchemeGeneric])

	return targets
}
