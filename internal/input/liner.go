package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
)

// defaultCloseGrace bounds how long Close waits for an abandoned prompt.
const defaultCloseGrace = 250 * time.Millisecond

// prompter is the part of *liner.State a Liner uses.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
	Close() error
}

// Liner reads from the terminal with line editing and history. It is not
// safe for concurrent use.
type Liner struct {
	state       prompter
	historyFile string
	closeGrace  time.Duration

	// pending holds a prompt abandoned by a cancelled ReadLine. liner allows
	// one Prompt at a time, so the next ReadLine or Close waits on it.
	pending chan promptResult
}

// NewLiner puts the terminal under liner control and loads history from
// historyFile when it exists. Ctrl-C aborts the prompt.
func NewLiner(historyFile string) *Liner {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return newLiner(state, historyFile)
}

func newLiner(state prompter, historyFile string) *Liner {
	l := &Liner{state: state, historyFile: historyFile, closeGrace: defaultCloseGrace}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			f.Close()
		}
	}
	return l
}

type promptResult struct {
	line string
	err  error
}

// ReadLine prompts and waits for a line, Ctrl-C, Ctrl-D or cancellation.
// A prompt left running by a cancelled call is reused instead of starting
// a second one.
func (l *Liner) ReadLine(ctx context.Context, prompt string) (string, error) {
	ch := l.pending
	l.pending = nil
	if ch == nil {
		ch = make(chan promptResult, 1)
		go func() {
			line, err := l.state.Prompt(prompt)
			ch <- promptResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		l.pending = ch
		return "", ErrClosed
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, liner.ErrPromptAborted) || errors.Is(res.err, io.EOF) {
				return "", ErrClosed
			}
			return "", fmt.Errorf("%w: %v", ErrClosed, res.err)
		}
		if strings.TrimSpace(res.line) != "" {
			l.state.AppendHistory(res.line)
		}
		return res.line, nil
	}
}

// Close saves history with owner-only permissions and restores the terminal.
// A prompt still waiting for a key is given a short grace period to return.
// Past it the terminal is restored anyway; callers exit right after Close.
func (l *Liner) Close() error {
	if l.pending != nil {
		select {
		case <-l.pending:
		case <-time.After(l.closeGrace):
		}
		l.pending = nil
	}
	if l.historyFile != "" {
		if f, err := os.OpenFile(l.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = l.state.WriteHistory(f)
			f.Close()
		}
	}
	return l.state.Close()
}
