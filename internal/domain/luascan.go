package domain

import (
	"sort"
	"strings"
)

type region uint8

const (
	regionCode region = iota
	regionLineComment
	regionQuoted
)

type scopeMark struct {
	offset int
	depth  int
	region region
}

// blockScope records the Lua block depth and lexical region for every
// position of a chunk. Depth counts the openers function, do, if and repeat
// against end and until, which is enough to tell top-level statements from
// statements inside a body.
type blockScope struct {
	marks []scopeMark
}

func scanBlocks(source string) blockScope {
	s := blockScope{marks: []scopeMark{{offset: 0}}}
	depth := 0

	mark := func(offset int, r region) {
		s.marks = append(s.marks, scopeMark{offset: offset, depth: depth, region: r})
	}

	for i := 0; i < len(source); {
		ch := source[i]

		switch {
		case strings.HasPrefix(source[i:], "--"):
			if level, ok := longBracket(source, i+2); ok {
				mark(i, regionQuoted)
				i = closeLongBracket(source, i+2, level)
			} else {
				mark(i, regionLineComment)
				i = lineEnd(source, i)
			}

			mark(i, regionCode)
		case ch == '[':
			if level, ok := longBracket(source, i); ok {
				mark(i, regionQuoted)
				i = closeLongBracket(source, i, level)
				mark(i, regionCode)
			} else {
				i++
			}
		case ch == '"' || ch == '\'':
			mark(i, regionQuoted)
			i = closeQuote(source, i)
			mark(i, regionCode)
		case isIdentStart(ch):
			j := i
			for j < len(source) && isIdentPart(source[j]) {
				j++
			}

			switch source[i:j] {
			case "function", "do", "if", "repeat":
				depth++
				mark(j, regionCode)
			case "end", "until":
				depth--
				mark(j, regionCode)
			}

			i = j
		case ch >= '0' && ch <= '9':
			for i < len(source) && (isIdentPart(source[i]) || source[i] == '.') {
				i++
			}
		default:
			i++
		}
	}

	return s
}

func (s blockScope) at(offset int) scopeMark {
	i := sort.Search(len(s.marks), func(i int) bool { return s.marks[i].offset > offset })

	return s.marks[i-1]
}

// topLevel reports whether offset sits in code outside every block.
func (s blockScope) topLevel(offset int) bool {
	m := s.at(offset)

	return m.region != regionQuoted && m.depth <= 0
}

// longBracket matches "[", any number of "=", "[" at i and returns the level.
func longBracket(source string, i int) (int, bool) {
	if i >= len(source) || source[i] != '[' {
		return 0, false
	}

	j := i + 1
	for j < len(source) && source[j] == '=' {
		j++
	}

	if j < len(source) && source[j] == '[' {
		return j - i - 1, true
	}

	return 0, false
}

func closeLongBracket(source string, i, level int) int {
	closer := "]" + strings.Repeat("=", level) + "]"
	body := i + level + 2

	if end := strings.Index(source[body:], closer); end >= 0 {
		return body + end + len(closer)
	}

	return len(source)
}

func closeQuote(source string, i int) int {
	quote := source[i]

	for j := i + 1; j < len(source); j++ {
		switch source[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		case '\n':
			return j
		}
	}

	return len(source)
}

func lineEnd(source string, i int) int {
	if nl := strings.IndexByte(source[i:], '\n'); nl >= 0 {
		return i + nl
	}

	return len(source)
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
