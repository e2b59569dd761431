package model

// Scheme identifies the protection scheme that produced a script.
type Scheme string

const (
	// SchemeLuaObfuscator is the LuaObfuscator.com virtual machine layout.
	SchemeLuaObfuscator Scheme = "luaobfuscator"
	// SchemeHercules is the Hercules obfuscator layout.
	SchemeHercules Scheme = "hercules"
	// SchemeGeneric is returned when weak structural evidence passes the threshold.
	SchemeGeneric Scheme = "generic"
	// SchemeUnknown is returned when there is not enough evidence.
	SchemeUnknown Scheme = "unknown"
)

// IndicatorClass groups indicators by the strength of the evidence they carry.
type IndicatorClass string

const (
	// ClassSignature indicators force the scheme when matched.
	ClassSignature IndicatorClass = "signature"
	// ClassVersion indicators carry a capturing group with the scheme version.
	ClassVersion IndicatorClass = "version"
	// ClassStructural indicators are weak hints shared by many schemes.
	ClassStructural IndicatorClass = "structural"
)

// Indicator is one weighted textual pattern used as classification evidence.
type Indicator struct {
	Name    string         `json:"name" yaml:"name"`
	Pattern string         `json:"pattern" yaml:"pattern"`
	Weight  float64        `json:"weight" yaml:"weight"`
	Class   IndicatorClass `json:"class" yaml:"class"`
	Scheme  Scheme         `json:"scheme,omitempty" yaml:"scheme,omitempty"`
}

// DetectionResult is the fingerprint produced for one source text.
type DetectionResult struct {
	Scheme     Scheme   `json:"scheme" yaml:"scheme"`
	Version    string   `json:"version,omitempty" yaml:"version,omitempty"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Matched    []string `json:"matched" yaml:"matched"`
	Survey     Survey   `json:"survey" yaml:"survey"`
}

// HasMatch reports whether the named indicator matched.
func (d DetectionResult) HasMatch(name string) bool {
	for _, n := range d.Matched {
		if n == name {
			return true
		}
	}

	return false
}

// Survey holds structural counts gathered while fingerprinting.
type Survey struct {
	Variables    int             `json:"variables" yaml:"variables"`
	Functions    int             `json:"functions" yaml:"functions"`
	HexPayloads  int             `json:"hex_payloads" yaml:"hex_payloads"`
	TargetsFound map[string]bool `json:"targets_found,omitempty" yaml:"targets_found,omitempty"`
}
