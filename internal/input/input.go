// Package input reads user lines for the session loop.
//
// Both readers unblock on context cancellation and report end-of-input,
// interrupt and cancellation alike as ErrClosed.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrClosed means no more input will arrive.
var ErrClosed = errors.New("input closed")

// Reader reads one line per call, without its line terminator.
type Reader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	Close() error
}

type scanResult struct {
	line string
	err  error
}

// Lines reads from a plain stream such as a pipe or /dev/tty. A goroutine
// scans ahead one line and hands it over through a channel so that a read
// can be abandoned when ctx is cancelled.
type Lines struct {
	prompt io.Writer
	ch     chan scanResult
	done   chan struct{}
	closer io.Closer
}

// NewLines starts scanning r. Prompts are written to w, which may be nil.
// When r is also an io.Closer, Close closes it.
func NewLines(r io.Reader, w io.Writer) *Lines {
	l := &Lines{
		prompt: w,
		ch:     make(chan scanResult),
		done:   make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		l.closer = c
	}
	go l.scan(r)
	return l
}

func (l *Lines) scan(r io.Reader) {
	defer close(l.ch)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case l.ch <- scanResult{line: scanner.Text()}:
		case <-l.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case l.ch <- scanResult{err: err}:
		case <-l.done:
		}
	}
}

func (l *Lines) ReadLine(ctx context.Context, prompt string) (string, error) {
	if l.prompt != nil && prompt != "" {
		fmt.Fprint(l.prompt, prompt)
	}
	select {
	case <-ctx.Done():
		return "", ErrClosed
	case <-l.done:
		return "", ErrClosed
	case res, ok := <-l.ch:
		if !ok {
			return "", ErrClosed
		}
		if res.err != nil {
			return "", fmt.Errorf("%w: %v", ErrClosed, res.err)
		}
		return res.line, nil
	}
}

// Close stops the scanner goroutine. It is safe to call more than once.
func (l *Lines) Close() error {
	select {
	case <-l.done:
		return nil
	default:
		close(l.done)
	}
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
