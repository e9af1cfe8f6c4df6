package parser

import (
	"encoding/json"
	"strings"
)

// Kind is the top-level JSON type a spec expects
type Kind int

const (
	KindObject Kind = iota
	KindArray
	// KindAny accepts whichever of an object or array appears first.
	KindAny
)

// StripCodeFence returns the body of the first fenced block in s, dropping a leading language
// tag such as "json". Text without a fence is returned trimmed.
func StripCodeFence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	rest := s[start+3:]

	i := 0
	for i < len(rest) && isASCIILetter(rest[i]) {
		i++
	}
	if i > 0 && (i == len(rest) || strings.ContainsRune(" \t\r\n{[", rune(rest[i]))) {
		rest = rest[i:]
	}

	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// MaxCandidates bounds how many openers ExtractJSON tries. Each try scans to the end of an
// unbalanced response, so the cap keeps extraction linear in the response length.
const MaxCandidates = 16

// ExtractJSON finds the first syntactically valid JSON value of the requested kind embedded in s.
func ExtractJSON(s string, kind Kind) (string, bool) {
	for pos, tries := 0, 0; pos < len(s) && tries < MaxCandidates; tries++ {
		start := nextOpen(s, pos, kind)
		if start < 0 {
			return "", false
		}
		if candidate, ok := balanced(s, start); ok && json.Valid([]byte(candidate)) {
			return candidate, true
		}
		pos = start + 1
	}
	return "", false
}

// ExtractLoose returns the span from the first opener to the last matching closer, for reporting
// syntax errors on responses ExtractJSON could not repair.
func ExtractLoose(s string, kind Kind) (string, bool) {
	start := nextOpen(s, 0, kind)
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s[start:], true
	}
	return s[start : end+1], true
}

func nextOpen(s string, from int, kind Kind) int {
	switch kind {
	case KindObject:
		return indexFrom(s, from, '{')
	case KindArray:
		return indexFrom(s, from, '[')
	default:
		o, a := indexFrom(s, from, '{'), indexFrom(s, from, '[')
		switch {
		case o < 0:
			return a
		case a < 0:
			return o
		case o < a:
			return o
		default:
			return a
		}
	}
}

func indexFrom(s string, from int, c byte) int {
	if from >= len(s) {
		return -1
	}
	i := strings.IndexByte(s[from:], c)
	if i < 0 {
		return -1
	}
	return from + i
}

// balanced scans from an opening bracket to its matching closer, honoring JSON strings.
func balanced(s string, start int) (string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
