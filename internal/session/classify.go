package session

import "strings"

// Kind is what an input line asks the loop to do.
type Kind int

const (
	KindEmpty Kind = iota
	KindExit
	KindClear
	KindCommand
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindExit:
		return "exit"
	case KindClear:
		return "clear"
	case KindCommand:
		return "command"
	case KindChat:
		return "chat"
	}
	return "unknown"
}

// Action is a classified input line. Line is the trimmed input; Text is the
// command without its prefix for KindCommand and the message for KindChat.
type Action struct {
	Kind Kind
	Line string
	Text string
}

// Classify maps a raw input line to an Action. A prefixed line with nothing
// after the prefix is empty.
func Classify(line, prefix string) Action {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Action{Kind: KindEmpty}
	case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
		return Action{Kind: KindExit, Line: line}
	case strings.EqualFold(line, "clear"):
		return Action{Kind: KindClear, Line: line}
	case prefix != "" && strings.HasPrefix(line, prefix):
		cmd := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		if cmd == "" {
			return Action{Kind: KindEmpty, Line: line}
		}
		return Action{Kind: KindCommand, Line: line, Text: cmd}
	}
	return Action{Kind: KindChat, Line: line, Text: line}
}
