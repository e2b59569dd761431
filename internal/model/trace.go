package model

import "time"

// EntityKind is the category of a captured runtime value.
type EntityKind string

const (
	// KindString is printable text observed at runtime.
	KindString EntityKind = "string"
	// KindFunction is a callable reference.
	KindFunction EntityKind = "function"
	// KindConstant is a scalar constant (number, boolean, or string constant slot).
	KindConstant EntityKind = "constant"
	// KindInstruction is a virtual machine instruction tuple.
	KindInstruction EntityKind = "instruction"
)

// EntityKinds lists every capture kind in report order.
var EntityKinds = []EntityKind{KindString, KindFunction, KindConstant, KindInstruction}

// Valid reports whether k is one of the known capture kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindString, KindFunction, KindConstant, KindInstruction:
		return true
	}

	return false
}

// Provenance tells where a captured value came from.
type Provenance struct {
	Source  string `json:"source" yaml:"source"`
	Context string `json:"context" yaml:"context"`
}

// CapturedEntity is one logged runtime value.
type CapturedEntity struct {
	SequenceID int        `json:"sequence_id" yaml:"sequence_id"`
	RuntimeSeq int        `json:"runtime_seq" yaml:"runtime_seq"`
	Kind       EntityKind `json:"kind" yaml:"kind"`
	Value      string     `json:"value" yaml:"value"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
	WallClock  time.Time  `json:"wall_clock" yaml:"wall_clock"`
}

// TraceEntry is one parsed data line of an execution trace.
type TraceEntry struct {
	Depth   int    `json:"depth" yaml:"depth"`
	Level   int    `json:"level" yaml:"level"`
	Kind    string `json:"kind" yaml:"kind"`
	Content string `json:"content" yaml:"content"`
	RawLine string `json:"raw_line" yaml:"raw_line"`
	// Undecodable is set when the kind column held a malformed escape.
	Undecodable bool `json:"undecodable,omitempty" yaml:"undecodable,omitempty"`
}

// Trace is a parsed trace with its classified partitions. Every partition
// preserves input order.
type Trace struct {
	Entries         []TraceEntry `json:"entries" yaml:"entries"`
	FinalStrings    []TraceEntry `json:"final_strings" yaml:"final_strings"`
	ReadableStrings []TraceEntry `json:"readable_strings" yaml:"readable_strings"`
	Remainder       []TraceEntry `json:"remainder" yaml:"remainder"`
	Skipped         int          `json:"skipped" yaml:"skipped"`
}
