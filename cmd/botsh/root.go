package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/petasbytes/botsh/internal/config"
	"github.com/petasbytes/botsh/internal/input"
	"github.com/petasbytes/botsh/internal/logging"
	"github.com/petasbytes/botsh/internal/provider"
	"github.com/petasbytes/botsh/internal/runner"
	"github.com/petasbytes/botsh/internal/session"
	"github.com/petasbytes/botsh/internal/shell"
	"github.com/petasbytes/botsh/internal/ui"
)

type flags struct {
	repl       bool
	translate  bool
	printText  bool
	verbose    bool
	prompt     string
	model      string
	configPath string
	savePath   string
}

// openTTY opens the controlling terminal for the loop when stdin was piped.
var openTTY = func() (io.ReadCloser, error) { return os.Open("/dev/tty") }

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		f   flags
		cfg *config.Config
		log *zap.Logger
	)

	cmd := &cobra.Command{
		Use:   "botsh [text...]",
		Short: "Chat with a language model from the shell",
		Long: `botsh sends text to a chat completion service and streams the answer.

With text (as arguments or on stdin) it answers once and exits. Without text,
or with -r, it starts a conversation: lines starting with ! run as shell
commands and their output joins the conversation, clear starts over, exit
or quit leaves.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			if cfg.LogFile != "" {
				if err := config.EnsureDir(cfg.LogFile); err != nil {
					return fmt.Errorf("failed to create log directory: %w", err)
				}
			}
			log, err = logging.New(cfg.LogFile, f.verbose)
			if err != nil {
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, &f, log, args, stdin, stdout, stderr)
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&f.repl, "repl", "r", false, "start a conversation even when text is given")
	fl.BoolVarP(&f.translate, "translate", "t", false, "append the translate instruction to the text")
	fl.BoolVarP(&f.printText, "print-text", "P", false, "print the composed text before sending it")
	fl.StringVarP(&f.prompt, "prompt", "p", "", "system prompt to use instead of the configured one")
	fl.StringVarP(&f.model, "model", "m", "", "model name")
	fl.StringVar(&f.configPath, "config", "", "config file (default $BOTSH_CONFIG or <config dir>/botsh/config.toml)")
	fl.StringVar(&f.savePath, "save", "", "write the conversation as JSON to this file on exit")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "debug level in the log file")
	return cmd
}

// loadConfig layers command-line flags over the file and environment.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	fl := cmd.Flags()
	if fl.Changed("prompt") && strings.TrimSpace(f.prompt) != "" {
		cfg.SystemPrompt = f.prompt
	}
	if fl.Changed("model") {
		cfg.Model = f.model
	}
	if fl.Changed("save") {
		cfg.SaveTranscript = f.savePath
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, f *flags, log *zap.Logger, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	completer, err := provider.New(cfg)
	if err != nil {
		return err
	}

	stdinTTY := isTerminal(stdin)
	var piped string
	if !stdinTTY {
		if piped, err = readPiped(stdin); err != nil {
			return err
		}
	}
	text := composeInput(piped, args, f.translate, cfg.TranslateInstruction)
	if f.printText && text != "" {
		fmt.Fprintln(stdout, text)
	}

	sh := shell.NewExec(cfg.Shell)
	if stdinTTY {
		sh.Stdin = stdin
	}
	if cfg.SaveTranscript != "" {
		if err := config.EnsureDir(cfg.SaveTranscript); err != nil {
			return fmt.Errorf("failed to create transcript directory: %w", err)
		}
	}
	opts := session.Options{
		SystemPrompt: cfg.SystemPrompt,
		ShellPrefix:  cfg.ShellPrefix,
		Turns:        runner.New(completer, cfg.Model, stdout, log),
		Shell:        sh,
		Out:          stdout,
		ErrOut:       stderr,
		Theme:        ui.For(isTerminal(stdout)),
		Log:          log,
		SavePath:     cfg.SaveTranscript,
	}
	log.Debug("starting",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Bool("stdin_tty", stdinTTY),
		zap.Bool("one_shot", text != "" && !f.repl))

	if text != "" && !f.repl {
		if code := session.New(opts).OneShot(ctx, text); code != 0 {
			return &exitError{code: code}
		}
		return nil
	}

	reader := openReader(stdinTTY, stdin, stdout, cfg.HistoryFile, log)
	defer reader.Close()
	opts.Input = reader
	if err := session.New(opts).Run(ctx, text); err != nil {
		return &exitError{code: 1}
	}
	return nil
}

// openReader picks liner on a terminal. Otherwise stdin has already been
// drained, so the loop reads the controlling terminal if there is one.
func openReader(stdinTTY bool, stdin io.Reader, stdout io.Writer, historyFile string, log *zap.Logger) input.Reader {
	if stdinTTY {
		if historyFile != "" {
			if err := config.EnsureDir(historyFile); err != nil {
				log.Warn("history disabled", zap.Error(err))
				historyFile = ""
			}
		}
		return input.NewLiner(historyFile)
	}
	tty, err := openTTY()
	if err != nil {
		log.Debug("no controlling terminal", zap.Error(err))
		return input.NewLines(stdin, stdout)
	}
	return input.NewLines(tty, stdout)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
