package domain

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

const maxTraceLine = 16 * 1024 * 1024

// TraceParser turns raw trace output into classified entries.
type TraceParser interface {
	Parse(r io.Reader) (m.Trace, error)
}

type traceParser struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewTraceParser creates a parser using the reconstruct thresholds.
func NewTraceParser(cfg *config.Config, logger *zap.Logger) TraceParser {
	return &traceParser{
		classifier: NewClassifier(cfg.Reconstruct),
		logger:     logger,
	}
}

// Parse never fails on content. Banner lines, short lines and lines whose
// depth or level is not an integer are counted as skipped. The only error is
// a read failure of r itself.
func (p *traceParser) Parse(r io.Reader) (m.Trace, error) {
	entries := []m.TraceEntry{}
	skipped := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTraceLine)

	for sc.Scan() {
		entry, ok := parseLine(sc.Text())
		if !ok {
			skipped++
			continue
		}

		entries = append(entries, entry)
	}

	if err := sc.Err(); err != nil {
		return m.Trace{}, fmt.Errorf("read trace: %w", err)
	}

	trace := p.classifier.Partition(entries)
	trace.Skipped = skipped

	p.logger.Debug("trace parsed",
		zap.Int("entries", len(trace.Entries)),
		zap.Int("final", len(trace.FinalStrings)),
		zap.Int("readable", len(trace.ReadableStrings)),
		zap.Int("skipped", skipped))

	return trace, nil
}

func parseLine(line string) (m.TraceEntry, bool) {
	line = strings.TrimSuffix(line, "\r")

	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return m.TraceEntry{}, false
	}

	depth, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return m.TraceEntry{}, false
	}

	level, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return m.TraceEntry{}, false
	}

	entry := m.TraceEntry{
		Depth:   depth,
		Level:   level,
		Content: strings.Join(fields[3:], "\t"),
		RawLine: line,
	}

	kind, err := unescapeWire(fields[2])
	if err != nil {
		entry.Kind = fields[2]
		entry.Undecodable = true
	} else {
		entry.Kind = kind
	}

	return entry, true
}

// unescapeWire reverses the escaping done by the generated emit helper:
// \\ \t \n \r and three-digit decimal byte escapes.
func unescapeWire(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		if i+1 >= len(s) {
			return "", fmt.Errorf("%w: dangling escape", ErrDecode)
		}

		i++

		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			if i+3 > len(s) {
				return "", fmt.Errorf("%w: short byte escape", ErrDecode)
			}

			n, err := strconv.Atoi(s[i : i+3])
			if err != nil || n > 255 || !isDigits(s[i:i+3]) {
				return "", fmt.Errorf("%w: bad byte escape %q", ErrDecode, s[i:i+3])
			}

			b.WriteByte(byte(n))

			i += 2
		}
	}

	return b.String(), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return s != ""
}
