package domain

import (
	"regexp"
	"strings"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

var (
	// referenceLike matches rendered addresses and composite or callable tags.
	referenceLike = regexp.MustCompile(`^(?:function|table|userdata|thread|builtin)(?::|\[)|0x[0-9A-Fa-f]+`)
	numericLike   = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$|^0[xX][0-9A-Fa-f]+$`)
)

// Classifier holds the two string predicates used to partition a trace.
type Classifier struct {
	maxLen int
	ratio  float64
}

// NewClassifier reads thresholds from the reconstruct section.
func NewClassifier(cfg config.ReconstructConfig) Classifier {
	c := Classifier{maxLen: cfg.FinalMaxLen, ratio: cfg.ReadableRatio}
	if c.maxLen <= 0 {
		c.maxLen = 50
	}

	if c.ratio <= 0 {
		c.ratio = 0.6
	}

	return c
}

// IsFinalOutput reports whether s looks like text the script meant to show.
func (c Classifier) IsFinalOutput(s string) bool {
	if s == "" || len(s) >= c.maxLen {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !printableASCII(s[i]) {
			return false
		}
	}

	return !isNumeric(s) && !referenceLike.MatchString(s)
}

// IsReadable reports whether enough of s is printable ASCII.
func (c Classifier) IsReadable(s string) bool {
	if len(s) < 2 || isNumeric(s) {
		return false
	}

	printable := 0

	for i := 0; i < len(s); i++ {
		if printableASCII(s[i]) {
			printable++
		}
	}

	return float64(printable)/float64(len(s)) >= c.ratio
}

// Partition splits entries into final, readable and remaining values. The
// predicates read the captured value column. Undecodable entries and
// operation tags only keep their place in Entries and the remainder.
func (c Classifier) Partition(entries []m.TraceEntry) m.Trace {
	t := m.Trace{
		Entries:         entries,
		FinalStrings:    []m.TraceEntry{},
		ReadableStrings: []m.TraceEntry{},
		Remainder:       []m.TraceEntry{},
	}

	if t.Entries == nil {
		t.Entries = []m.TraceEntry{}
	}

	for _, e := range entries {
		switch {
		case e.Undecodable, isTagLine(e):
			t.Remainder = append(t.Remainder, e)
		case c.IsFinalOutput(e.Kind):
			t.FinalStrings = append(t.FinalStrings, e)
		case c.IsReadable(e.Kind):
			t.ReadableStrings = append(t.ReadableStrings, e)
		default:
			t.Remainder = append(t.Remainder, e)
		}
	}

	return t
}

func printableASCII(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}

func isNumeric(s string) bool {
	return numericLike.MatchString(strings.TrimSpace(s))
}
