package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxPathLength         = 500
	MaxErrorMessageLength = 1000
	MaxGeneralLength      = 2000
	// MaxPreviewLength caps prompt and completion previews outside debug mode.
	MaxPreviewLength = 200
	// MaxDebugContentLength caps full prompt and completion bodies in debug mode.
	MaxDebugContentLength = 10000
)

// Sanitize drops control characters, repairs invalid UTF-8 and truncates to maxLength bytes
// without splitting a rune.
func Sanitize(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// SanitizePath prepares a URL path for logging.
func SanitizePath(path string) string {
	return Sanitize(path, MaxPathLength)
}

// SanitizeError renders err for logging; nil yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error(), MaxErrorMessageLength)
}

// Preview returns a log-safe rendering of generated or user-supplied text. Full bodies are
// kept only when debug is set.
func Preview(s string, debug bool) string {
	if debug {
		return Sanitize(s, MaxDebugContentLength)
	}
	return Sanitize(s, MaxPreviewLength)
}

// HashID returns a short stable digest of an identifier so sessions can be correlated in logs
// without writing user ids in the clear.
func HashID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}
