// Package ui holds the terminal styles for the session display.
package ui

import "github.com/charmbracelet/lipgloss"

// Theme renders the fixed pieces of session output. Model text and
// command output are never styled.
type Theme struct {
	Question func(string) string
	Answer   func(string) string
	Notice   func(string) string
	Error    func(string) string
}

var (
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	noticeStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Default returns the colored theme used on a terminal.
func Default() Theme {
	return Theme{
		Question: func(s string) string { return questionStyle.Render(s) },
		Answer:   func(s string) string { return answerStyle.Render(s) },
		Notice:   func(s string) string { return noticeStyle.Render(s) },
		Error:    func(s string) string { return errorStyle.Render(s) },
	}
}

// Plain returns a theme that leaves text untouched.
func Plain() Theme {
	id := func(s string) string { return s }
	return Theme{Question: id, Answer: id, Notice: id, Error: id}
}

// For picks Default on a terminal and Plain otherwise.
func For(tty bool) Theme {
	if tty {
		return Default()
	}
	return Plain()
}

// Fill replaces missing funcs with the identity.
func (t Theme) Fill() Theme {
	id := func(s string) string { return s }
	if t.Question == nil {
		t.Question = id
	}
	if t.Answer == nil {
		t.Answer = id
	}
	if t.Notice == nil {
		t.Notice = id
	}
	if t.Error == nil {
		t.Error = id
	}
	return t
}
