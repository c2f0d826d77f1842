// Package metrics derives size statistics from message text so that
// telemetry can describe a turn without recording what was said.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Text holds byte, rune, word and line counts for a piece of text.
type Text struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// Measure computes the statistics for s.
func Measure(s string) Text {
	return Text{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

// Fields renders t as a telemetry field map.
func (t Text) Fields() map[string]any {
	return map[string]any{
		"bytes": t.Bytes,
		"runes": t.Runes,
		"words": t.Words,
		"lines": t.Lines,
	}
}

// countLines counts newline-terminated lines plus a trailing partial line.
// Command output ends in '\n', so "hi\n" is one line, not two.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
