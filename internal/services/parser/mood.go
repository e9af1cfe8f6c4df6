package parser

import (
	"strings"

	"github.com/benvon/smart-planner/internal/models"
)

// ParseMood accepts either {"mood": "..."} or a bare vocabulary word, optionally quoted or
// followed by punctuation.
func ParseMood(raw string) Result[models.Mood] {
	res := Mood.Parse(raw)
	if env, ok := res.Value(); ok {
		return Ok(env.Mood)
	}

	token := strings.ToLower(strings.Trim(StripCodeFence(raw), " \t\r\n\"'`.!,;:"))
	if m := models.Mood(token); token != "" && m.IsValid() {
		return Ok(m)
	}
	return Fail[models.Mood](res.Failure())
}
