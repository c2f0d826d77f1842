// Package session runs the interactive read-dispatch loop and one-shot
// requests on top of a transcript, a turn runner and a shell runner.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/botsh/internal/input"
	"github.com/petasbytes/botsh/internal/metrics"
	"github.com/petasbytes/botsh/internal/runner"
	"github.com/petasbytes/botsh/internal/shell"
	"github.com/petasbytes/botsh/internal/telemetry"
	"github.com/petasbytes/botsh/internal/ui"
	"github.com/petasbytes/botsh/memory"
)

const (
	Prompt          = "Q: "
	AnswerDelimiter = "A: "

	// CommandResultHeader starts every recorded command result.
	CommandResultHeader = "command execution result:\n"

	clearScreen = "\033[2J\033[H"
)

// TurnRunner runs one chat exchange, writing the reply as it streams.
// *runner.Runner satisfies it.
type TurnRunner interface {
	RunTurn(ctx context.Context, conv []memory.Message) (string, error)
}

// Options wires a Session. Turns must write to the same Out.
type Options struct {
	SystemPrompt string
	ShellPrefix  string

	Turns TurnRunner
	Shell shell.Runner
	Input input.Reader

	Out    io.Writer
	ErrOut io.Writer
	Theme  ui.Theme
	Log    *zap.Logger

	// SavePath, when set, receives the final transcript as JSON.
	SavePath string
}

type Session struct {
	opts       Options
	transcript *memory.Transcript
	state      atomic.Int32
}

func New(opts Options) *Session {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.ErrOut == nil {
		opts.ErrOut = io.Discard
	}
	opts.Theme = opts.Theme.Fill()
	return &Session{
		opts:       opts,
		transcript: memory.NewTranscript(opts.SystemPrompt),
	}
}

// State reports where the loop currently is. Safe to call from any goroutine.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Messages returns a copy of the transcript.
func (s *Session) Messages() []memory.Message { return s.transcript.Snapshot() }

// Run drives the interactive loop until exit, end of input or ctx is done.
// A non-empty initial is submitted as the first chat turn. The only error
// returned is a failure to save the transcript.
func (s *Session) Run(ctx context.Context, initial string) error {
	s.setState(StateIdle)
	fmt.Fprintln(s.opts.Out, s.opts.Theme.Notice(fmt.Sprintf(
		"botsh: chat away, %scommand runs a shell command, clear resets, exit quits", s.opts.ShellPrefix)))

	if initial = strings.TrimSpace(initial); initial != "" {
		fmt.Fprintln(s.opts.Out, s.opts.Theme.Question(Prompt)+initial)
		s.setState(StateDispatching)
		s.chat(ctx, initial)
	}

	for ctx.Err() == nil {
		s.setState(StateReadingInput)
		line, err := s.opts.Input.ReadLine(ctx, Prompt)
		if err != nil {
			if !errors.Is(err, input.ErrClosed) {
				s.opts.Log.Warn("input read failed", zap.Error(err))
			}
			break
		}

		s.setState(StateDispatching)
		act := Classify(line, s.opts.ShellPrefix)
		if act.Kind == KindExit {
			break
		}
		s.dispatch(ctx, act)
		if ctx.Err() == nil {
			s.setState(StateIdle)
		}
	}
	return s.close()
}

func (s *Session) dispatch(ctx context.Context, act Action) {
	switch act.Kind {
	case KindClear:
		s.clear()
	case KindCommand:
		s.command(ctx, act.Line, act.Text)
	case KindChat:
		s.chat(ctx, act.Text)
	}
}

func (s *Session) close() error {
	s.setState(StateClosed)
	fmt.Fprintln(s.opts.Out)
	fmt.Fprintln(s.opts.Out, s.opts.Theme.Notice("bye"))
	return s.save()
}

func (s *Session) save() error {
	if s.opts.SavePath == "" {
		return nil
	}
	if err := memory.SaveTranscript(s.opts.SavePath, s.transcript.Snapshot()); err != nil {
		s.printError(err)
		return err
	}
	s.opts.Log.Debug("transcript saved", zap.String("path", s.opts.SavePath))
	return nil
}

func (s *Session) chat(ctx context.Context, text string) {
	s.setState(StateChatting)
	if err := s.transcript.Append(memory.User(text)); err != nil {
		s.printError(err)
		return
	}

	fmt.Fprint(s.opts.Out, s.opts.Theme.Answer(AnswerDelimiter))
	reply, err := s.opts.Turns.RunTurn(ctx, s.transcript.Snapshot())
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		var te *runner.TurnError
		if !errors.As(err, &te) || te.Fragments == 0 {
			fmt.Fprintln(s.opts.Out)
		}
		s.printError(err)
		return
	}
	if err := s.transcript.Append(memory.Assistant(reply)); err != nil {
		s.printError(err)
	}
}

func (s *Session) command(ctx context.Context, line, cmd string) {
	s.setState(StateExecuting)
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	start := time.Now()

	if err := s.transcript.Append(memory.User(line)); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprint(s.opts.Out, s.opts.Theme.Answer(AnswerDelimiter))

	output, code, spawnErr := s.execute(ctx, cmd)
	if output != "" && !strings.HasSuffix(output, "\n") {
		fmt.Fprintln(s.opts.Out)
	}

	fields := map[string]any{
		"turn_id":      turnID,
		"exit_code":    code,
		"duration_ms":  time.Since(start).Milliseconds(),
		"output":       metrics.Measure(output).Fields(),
		"spawn_failed": spawnErr != nil,
		"cancelled":    ctx.Err() != nil,
	}
	telemetry.Emit("command_exec", fields)
	s.opts.Log.Debug("command finished",
		zap.String("turn_id", turnID),
		zap.Int("exit_code", code),
		zap.Bool("spawn_failed", spawnErr != nil),
		zap.Int("output_bytes", len(output)))

	if ctx.Err() != nil {
		return
	}
	if err := s.transcript.Append(memory.System(CommandResultHeader + output)); err != nil {
		s.printError(err)
	}
}

// execute runs cmd, echoing each line of merged output as it arrives. A
// spawn failure is returned as output text with exit code -1.
func (s *Session) execute(ctx context.Context, cmd string) (string, int, error) {
	proc, err := s.opts.Shell.Start(ctx, cmd)
	if err != nil {
		text := "\nerror executing command: " + err.Error()
		fmt.Fprint(s.opts.Out, text)
		return text, -1, err
	}

	var out strings.Builder
	for proc.Next() {
		line := proc.Line()
		fmt.Fprint(s.opts.Out, line)
		out.WriteString(line)
	}
	code, err := proc.Wait()
	if err != nil && ctx.Err() == nil {
		s.opts.Log.Warn("command wait failed", zap.Error(err))
	}
	return out.String(), code, nil
}

func (s *Session) clear() {
	s.setState(StateClearing)
	dropped := s.transcript.Len()
	fmt.Fprint(s.opts.Out, clearScreen)
	s.transcript.Reset(s.opts.SystemPrompt)
	fmt.Fprintln(s.opts.Out, s.opts.Theme.Notice("conversation cleared"))
	telemetry.Emit("transcript_reset", map[string]any{"dropped_messages": dropped})
	s.opts.Log.Debug("transcript reset", zap.Int("dropped_messages", dropped))
}

// OneShot sends text as the only user message and returns the process exit
// code: 0 when the service produced content, 1 otherwise.
func (s *Session) OneShot(ctx context.Context, text string) int {
	s.setState(StateChatting)
	defer s.setState(StateClosed)

	s.transcript.Reset(s.opts.SystemPrompt)
	if err := s.transcript.Append(memory.User(text)); err != nil {
		s.printError(err)
		return 1
	}
	reply, err := s.opts.Turns.RunTurn(ctx, s.transcript.Snapshot())
	if err != nil {
		if ctx.Err() == nil {
			s.printError(err)
		}
		return 1
	}
	_ = s.transcript.Append(memory.Assistant(reply))
	if s.save() != nil {
		return 1
	}
	return 0
}

func (s *Session) printError(err error) {
	fmt.Fprintln(s.opts.ErrOut, s.opts.Theme.Error("error: "+err.Error()))
}
