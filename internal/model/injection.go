package model

// InspectMode selects which values a wrapper inspects around the original call.
type InspectMode string

const (
	// InspectResult inspects the values returned by the original callable.
	InspectResult InspectMode = "result"
	// InspectArgs inspects the arguments passed to the original callable.
	InspectArgs InspectMode = "args"
	// InspectBoth inspects arguments and returned values.
	InspectBoth InspectMode = "both"
)

// TargetSymbol describes one entry point the Injector may intercept.
type TargetSymbol struct {
	Symbol  string             `json:"symbol" yaml:"symbol"`
	Inspect InspectMode        `json:"inspect,omitempty" yaml:"inspect,omitempty"`
	// Tag marks wrappers whose result is a string assembly step ("char", "concat").
	Tag string `json:"tag,omitempty" yaml:"tag,omitempty"`
	// Builtin symbols are provided by the runtime and need no definition in the source.
	Builtin bool `json:"builtin,omitempty" yaml:"builtin,omitempty"`
	// Layout maps positions of a returned table to capture kinds.
	Layout map[int]EntityKind `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// SkippedSymbol records a target the Injector could not wrap.
type SkippedSymbol struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Reason string `json:"reason" yaml:"reason"`
}

// InjectionPlan describes where and what the Injector instrumented.
type InjectionPlan struct {
	AnchorOffset   int             `json:"anchor_offset" yaml:"anchor_offset"`
	AnchorName     string          `json:"anchor_name,omitempty" yaml:"anchor_name,omitempty"`
	WrappedSymbols []string        `json:"wrapped_symbols" yaml:"wrapped_symbols"`
	Skipped        []SkippedSymbol `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	FallbackUsed   bool            `json:"fallback_used" yaml:"fallback_used"`
	RunID          string          `json:"run_id" yaml:"run_id"`
}
