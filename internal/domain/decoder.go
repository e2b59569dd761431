package domain

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	m "github.com/mouse-blink/tracelift/internal/model"
)

const (
	minHexRun    = 6
	minStaticRun = 4
	payloadLabel = 32
)

var (
	quotedLiteral  = regexp.MustCompile(`"((?:[^"\\\n]|\\.)*)"|'((?:[^'\\\n]|\\.)*)'`)
	hexRun         = regexp.MustCompile(`[0-9A-Fa-f]{6,}`)
	plainHex       = regexp.MustCompile(`^[0-9A-Fa-f]{10,}$`)
	decimalEscapes = regexp.MustCompile(`\\\d{1,3}`)
	payloadPrefix  = []string{"LOL!", "023Q"}
	qPlaceholders  = []string{"6D", "0", "F", "A"}
)

// Decoder recovers strings from payload literals without running the script.
type Decoder interface {
	Extract(source string) []m.StaticString
}

type decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder(logger *zap.Logger) Decoder {
	return &decoder{logger: logger}
}

// Extract returns decoded strings in source order without duplicates. A
// literal that fails to decode is dropped on its own.
func (d *decoder) Extract(source string) []m.StaticString {
	seen := make(map[string]struct{})
	out := []m.StaticString{}

	add := func(payload, value string) {
		if _, dup := seen[value]; dup {
			return
		}

		seen[value] = struct{}{}
		out = append(out, m.StaticString{Payload: label(payload), Value: value})
	}

	for _, match := range quotedLiteral.FindAllStringSubmatch(source, -1) {
		lit := match[1]
		if lit == "" {
			lit = match[2]
		}

		values, err := decodeLiteral(lit)
		if err != nil {
			d.logger.Debug("payload dropped", zap.String("payload", label(lit)), zap.Error(err))
			continue
		}

		for _, v := range values {
			add(lit, v)
		}
	}

	return out
}

func decodeLiteral(lit string) ([]string, error) {
	switch {
	case hasPayloadPrefix(lit):
		return decodePayload(lit)
	case plainHex.MatchString(lit):
		return decodeHexRuns(lit)
	case decimalEscapes.MatchString(lit):
		s, err := unescapeDecimal(lit)
		if err != nil {
			return nil, err
		}

		if keepStatic(s) {
			return []string{s}, nil
		}
	}

	return nil, nil
}

func hasPayloadPrefix(lit string) bool {
	for _, p := range payloadPrefix {
		if strings.HasPrefix(lit, p) {
			return true
		}
	}

	return false
}

// decodePayload strips the bytecode prefix and tries each substitution of
// the Q placeholder, merging whatever decodes.
func decodePayload(lit string) ([]string, error) {
	body := lit
	for _, p := range payloadPrefix {
		body = strings.TrimPrefix(body, p)
	}

	var (
		out     []string
		lastErr error
	)

	for _, sub := range qPlaceholders {
		values, err := decodeHexRuns(strings.ReplaceAll(body, "Q", sub))
		if err != nil {
			lastErr = err
			continue
		}

		out = append(out, values...)
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return out, nil
}

func decodeHexRuns(s string) ([]string, error) {
	var out []string

	for _, run := range hexRun.FindAllString(s, -1) {
		if len(run)%2 == 1 {
			run = run[:len(run)-1]
		}

		raw, err := hex.DecodeString(run)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}

		out = append(out, printableRuns(raw)...)
	}

	return out, nil
}

func printableRuns(raw []byte) []string {
	var (
		out   []string
		start = -1
	)

	flush := func(end int) {
		if start >= 0 && end-start >= minStaticRun {
			if s := string(raw[start:end]); keepStatic(s) {
				out = append(out, s)
			}
		}

		start = -1
	}

	for i, b := range raw {
		if printableASCII(b) {
			if start < 0 {
				start = i
			}

			continue
		}

		flush(i)
	}

	flush(len(raw))

	return out
}

func unescapeDecimal(lit string) (string, error) {
	var failed error

	s := decimalEscapes.ReplaceAllStringFunc(lit, func(esc string) string {
		n, err := strconv.Atoi(esc[1:])
		if err != nil || n > 255 {
			failed = fmt.Errorf("%w: bad escape %q", ErrDecode, esc)
			return esc
		}

		return string([]byte{byte(n)})
	})

	if failed != nil {
		return "", failed
	}

	return s, nil
}

func keepStatic(s string) bool {
	if len(s) < 2 || isNumeric(s) {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !printableASCII(s[i]) {
			return false
		}
	}

	return true
}

func label(payload string) string {
	if len(payload) <= payloadLabel {
		return payload
	}

	return payload[:payloadLabel] + "..."
}
