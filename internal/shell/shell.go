// Package shell runs user commands through the host command interpreter.
package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner starts commands.
type Runner interface {
	Start(ctx context.Context, command string) (Process, error)
}

// Process is a started command. Next yields combined stdout and stderr one
// line at a time, each with its trailing newline when the command wrote one.
// Wait must be called after Next returns false.
type Process interface {
	Next() bool
	Line() string
	// Wait releases the process and reports its exit code; -1 when the
	// process did not exit normally.
	Wait() (int, error)
}

// Exec runs commands as argv prefix + command, e.g. /bin/sh -c "<command>".
// It inherits the caller's environment and working directory.
type Exec struct {
	Argv  []string
	Dir   string
	Stdin io.Reader
}

// NewExec returns an Exec for the given interpreter argv.
func NewExec(argv []string) *Exec {
	return &Exec{Argv: argv}
}

// Start spawns command. Cancelling ctx kills it.
func (e *Exec) Start(ctx context.Context, command string) (Process, error) {
	if len(e.Argv) == 0 {
		return nil, errors.New("no shell configured")
	}
	args := append(append([]string{}, e.Argv[1:]...), command)
	cmd := exec.CommandContext(ctx, e.Argv[0], args...)
	cmd.Dir = e.Dir
	cmd.Stdin = e.Stdin

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, err
	}
	// The child holds its own copy of the write end; closing ours lets
	// reads hit EOF once the child and its descendants exit.
	pw.Close()
	// Killing the shell does not reach commands it forked, and they keep the
	// write end open. Closing the read end on cancel unblocks Next anyway.
	stop := context.AfterFunc(ctx, func() { pr.Close() })
	return &process{cmd: cmd, pipe: pr, reader: bufio.NewReader(pr), stop: stop}, nil
}

type process struct {
	cmd    *exec.Cmd
	pipe   *os.File
	reader *bufio.Reader
	stop   func() bool
	line   string
	err    error
}

func (p *process) Next() bool {
	if p.err != nil {
		return false
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		p.err = err
		if line == "" {
			return false
		}
	}
	p.line = line
	return true
}

func (p *process) Line() string { return p.line }

func (p *process) Wait() (int, error) {
	p.stop()
	p.pipe.Close()
	err := p.cmd.Wait()
	if p.err != nil && !errors.Is(p.err, io.EOF) && !errors.Is(p.err, os.ErrClosed) && err == nil {
		err = p.err
	}
	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A non-zero exit is a status, not a failure to run.
		err = nil
	}
	return code, err
}
