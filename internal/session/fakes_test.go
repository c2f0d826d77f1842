package session_test

import (
	"context"
	"errors"
	"sync"

	"github.com/petasbytes/botsh/internal/input"
	"github.com/petasbytes/botsh/internal/provider"
	"github.com/petasbytes/botsh/internal/shell"
	"github.com/petasbytes/botsh/memory"
)

// reply scripts one completion call.
type reply struct {
	frags []string
	err   error
	// block makes Next wait for ctx after the fragments are exhausted.
	block bool
}

type fakeStream struct {
	ctx   context.Context
	r     reply
	i     int
	cur   string
	err   error
	ready chan<- struct{}
}

func (s *fakeStream) Next() bool {
	if s.i < len(s.r.frags) {
		s.cur = s.r.frags[s.i]
		s.i++
		return true
	}
	if s.r.block {
		if s.ready != nil {
			close(s.ready)
			s.ready = nil
		}
		<-s.ctx.Done()
		s.err = s.ctx.Err()
		return false
	}
	s.err = s.r.err
	return false
}
func (s *fakeStream) Fragment() string { return s.cur }
func (s *fakeStream) Err() error       { return s.err }
func (s *fakeStream) Close() error     { return nil }

type fakeCompleter struct {
	mu      sync.Mutex
	replies []reply
	reqs    [][]memory.Message
	// blocked is closed when a blocking reply starts waiting.
	blocked chan struct{}
}

func (c *fakeCompleter) Stream(ctx context.Context, req provider.Request) provider.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req.Messages)
	var r reply
	if len(c.replies) > 0 {
		r = c.replies[0]
		c.replies = c.replies[1:]
	}
	st := &fakeStream{ctx: ctx, r: r}
	if r.block {
		st.ready = c.blocked
		c.blocked = nil
	}
	return st
}

func (c *fakeCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

// scriptedInput yields lines, then either ErrClosed or, with block set,
// waits for ctx.
type scriptedInput struct {
	mu      sync.Mutex
	lines   []string
	block   bool
	reads   int
	prompts []string
	waiting chan struct{}
}

func (in *scriptedInput) ReadLine(ctx context.Context, prompt string) (string, error) {
	in.mu.Lock()
	in.reads++
	in.prompts = append(in.prompts, prompt)
	if len(in.lines) > 0 {
		l := in.lines[0]
		in.lines = in.lines[1:]
		in.mu.Unlock()
		return l, nil
	}
	block, waiting := in.block, in.waiting
	in.waiting = nil
	in.mu.Unlock()
	if !block {
		return "", input.ErrClosed
	}
	if waiting != nil {
		close(waiting)
	}
	<-ctx.Done()
	return "", input.ErrClosed
}

func (in *scriptedInput) Close() error { return nil }

func (in *scriptedInput) readCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.reads
}

// fakeShell returns canned processes keyed by command text.
type fakeShell struct {
	mu       sync.Mutex
	outputs  map[string][]string
	startErr error
	block    bool
	started  []string
	running  chan struct{}
}

func (f *fakeShell) Start(ctx context.Context, command string) (shell.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, command)
	if f.startErr != nil {
		return nil, f.startErr
	}
	p := &fakeProcess{ctx: ctx, lines: f.outputs[command], block: f.block, running: f.running}
	f.running = nil
	return p, nil
}

type fakeProcess struct {
	ctx     context.Context
	lines   []string
	cur     string
	block   bool
	running chan struct{}
}

func (p *fakeProcess) Next() bool {
	if len(p.lines) > 0 {
		p.cur = p.lines[0]
		p.lines = p.lines[1:]
		return true
	}
	if p.block {
		if p.running != nil {
			close(p.running)
			p.running = nil
		}
		<-p.ctx.Done()
	}
	return false
}

func (p *fakeProcess) Line() string { return p.cur }

func (p *fakeProcess) Wait() (int, error) {
	if p.ctx.Err() != nil {
		return -1, errors.New("signal: killed")
	}
	return 0, nil
}
