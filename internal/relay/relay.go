// Package relay implements the terminal relay loop. Each input line is
// classified and dispatched: ordinary lines go verbatim to the shell
// collaborator and their output is relayed back, `ai `-prefixed lines become
// one-shot AI queries whose suggestion is printed but never executed, and
// `:word` lines are relay builtins (a bare `:` is a shell command). Every
// exchange is appended to the in-memory Session Transcript.
//
// When the shell process dies mid-session, for example on a hard syntax
// error, the relay tells the user and carries on; the runner spawns a
// replacement shell for the next command.
//
// The loop is single-threaded and blocking with exactly one in-flight
// operation. No interrupt handler is installed: Ctrl+C terminates the whole
// process, shell included. This is a documented limitation, not a guarantee.
package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/syntax"

	"github.com/aish-dev/aish/internal/config"
	"github.com/aish-dev/aish/internal/relay/render"
	"github.com/aish-dev/aish/internal/shell"
	"github.com/aish-dev/aish/internal/transcript"
)

// aiPrefix is the reserved input prefix that routes a line to the AI
// collaborator instead of the shell.
const aiPrefix = "ai "

// continuationPrompt is shown while reading an incomplete shell construct.
const continuationPrompt = "> "

// InputKind classifies a single input line.
type InputKind int

const (
	KindEmpty InputKind = iota
	KindExit
	KindBuiltin
	KindAI
	KindShell
)

// Classify determines how an input line is dispatched.
func Classify(line string) InputKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return KindEmpty
	case trimmed == "exit":
		return KindExit
	case isBuiltinLine(trimmed):
		return KindBuiltin
	case trimmed == "ai" || strings.HasPrefix(trimmed, aiPrefix):
		return KindAI
	default:
		return KindShell
	}
}

// isBuiltinLine matches `:word` builtin invocations. A colon followed by
// anything else, including the POSIX no-op `:` itself, belongs to the shell.
func isBuiltinLine(trimmed string) bool {
	if len(trimmed) < 2 || trimmed[0] != ':' {
		return false
	}
	c := trimmed[1]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// CommandRunner forwards a command to the shell collaborator.
type CommandRunner interface {
	Run(ctx context.Context, command string) (*shell.Result, error)
}

// Suggester sends an AI Query to the remote completion collaborator.
type Suggester interface {
	Suggest(ctx context.Context, question string, contextText string) (string, error)
}

// ContextProvider renders session context for AI queries.
type ContextProvider interface {
	FormatContext() string
}

// Completer produces candidate completions for the :complete builtin.
type Completer interface {
	Complete(ctx context.Context, input string) []string
}

// Options configures a Relay.
type Options struct {
	Logger    *zap.Logger
	Config    *config.Config
	Store     *transcript.Store
	Shell     CommandRunner
	Suggester Suggester
	Context   ContextProvider
	Completer Completer
	Renderer  *render.Renderer

	// Input defaults to os.Stdin.
	Input io.Reader

	// Interactive controls whether prompts are printed.
	Interactive bool
}

// Relay is the single component forwarding input between the user, the
// shell, and the remote AI collaborator.
type Relay struct {
	logger          *zap.Logger
	cfg             *config.Config
	store           *transcript.Store
	shell           CommandRunner
	suggester       Suggester
	contextProvider ContextProvider
	completer       Completer
	renderer        *render.Renderer

	scanner     *bufio.Scanner
	parser      *syntax.Parser
	interactive bool

	lastSuggestion string
}

// New creates a Relay.
func New(opts Options) (*Relay, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("relay requires a transcript store")
	}
	if opts.Shell == nil {
		return nil, fmt.Errorf("relay requires a shell runner")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("relay requires a renderer")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	input := opts.Input
	if input == nil {
		input = os.Stdin
	}

	return &Relay{
		logger:          logger,
		cfg:             cfg,
		store:           opts.Store,
		shell:           opts.Shell,
		suggester:       opts.Suggester,
		contextProvider: opts.Context,
		completer:       opts.Completer,
		renderer:        opts.Renderer,
		scanner:         bufio.NewScanner(input),
		parser:          syntax.NewParser(),
		interactive:     opts.Interactive,
	}, nil
}

// Run drives the relay loop until EOF, `exit`, or an unrecoverable error.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if r.interactive {
			r.renderer.Prompt(r.cfg.Prompt)
		}

		line, ok := r.readLine()
		if !ok {
			return r.scanErr()
		}

		switch Classify(line) {
		case KindEmpty:
			continue
		case KindExit:
			return nil
		case KindBuiltin:
			r.handleBuiltin(ctx, strings.TrimSpace(line))
		case KindAI:
			r.handleAIQuery(ctx, line)
		case KindShell:
			block, ok := r.readContinuation(line)
			if !ok {
				return r.scanErr()
			}
			if err := r.handleShellCommand(ctx, block); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) readLine() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	return r.scanner.Text(), true
}

func (r *Relay) scanErr() error {
	if err := r.scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// readContinuation keeps reading lines while the accumulated input is a
// syntactically incomplete shell construct, so constructs like for-loops
// can span lines. EOF mid-construct dispatches nothing.
func (r *Relay) readContinuation(first string) (string, bool) {
	block := first
	for r.isIncomplete(block) {
		if r.interactive {
			r.renderer.Prompt(continuationPrompt)
		}
		line, ok := r.readLine()
		if !ok {
			return "", false
		}
		block += "\n" + line
	}
	return block, true
}

// isIncomplete reports whether the input fails to parse only because more
// lines are needed. Inputs with hard syntax errors are dispatched anyway;
// the shell reports the error in its own words.
func (r *Relay) isIncomplete(input string) bool {
	_, err := r.parser.Parse(strings.NewReader(input), "")
	return err != nil && syntax.IsIncomplete(err)
}

// handleShellCommand forwards a command to the shell and records the
// exchange on the Session Transcript. A command that takes the shell down
// with it is reported to the user; the session itself continues.
func (r *Relay) handleShellCommand(ctx context.Context, command string) error {
	result, err := r.shell.Run(ctx, command)
	if err != nil {
		if errors.Is(err, shell.ErrShellExited) {
			code := 0
			if result != nil {
				code = result.ExitCode
			}
			r.logger.Warn("shell exited",
				zap.String("command", command),
				zap.Int("exitCode", code),
			)
			r.renderer.Error(fmt.Sprintf(
				"shell exited with status %d (often a syntax error); a fresh shell will run the next command", code))
			return nil
		}
		return err
	}

	if _, err := r.store.AppendShell(command, result.Output, result.ExitCode); err != nil {
		r.logger.Warn("failed to record shell exchange", zap.Error(err))
	}

	r.logger.Debug("command relayed",
		zap.String("command", command),
		zap.Int("exitCode", result.ExitCode),
	)
	return nil
}

// handleAIQuery builds an AI Query from the transcript and the question,
// prints the suggestion, and records the exchange. Remote failures are
// reported as text and never stop the loop.
func (r *Relay) handleAIQuery(ctx context.Context, line string) {
	question := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "ai"))
	if question == "" {
		r.renderer.Notice("usage: ai <question>")
		return
	}

	if r.suggester == nil {
		r.renderer.Error("no AI collaborator configured")
		return
	}

	var contextText string
	if r.contextProvider != nil {
		contextText = r.contextProvider.FormatContext()
	}

	suggestion, err := r.suggester.Suggest(ctx, question, contextText)
	if err != nil {
		r.logger.Warn("ai query failed", zap.Error(err))
		r.renderer.Error(err.Error())
		return
	}

	r.renderer.Suggestion(suggestion)
	r.lastSuggestion = suggestion

	if _, err := r.store.AppendAI(question, suggestion); err != nil {
		r.logger.Warn("failed to record ai exchange", zap.Error(err))
	}
}
