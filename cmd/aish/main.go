package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/aish-dev/aish/internal/completion"
	"github.com/aish-dev/aish/internal/config"
	"github.com/aish-dev/aish/internal/core"
	"github.com/aish-dev/aish/internal/llm"
	"github.com/aish-dev/aish/internal/llm/llmcontext"
	"github.com/aish-dev/aish/internal/relay"
	"github.com/aish-dev/aish/internal/relay/render"
	"github.com/aish-dev/aish/internal/shell"
	"github.com/aish-dev/aish/internal/transcript"
)

var BUILD_VERSION = "dev"

var command = flag.String("c", "", "run a single command through the shell and exit")

var helpFlag = flag.Bool("h", false, "display help information")
var versionFlag = flag.Bool("ver", false, "display build version")

const helpText = `aish - a terminal relay with AI command suggestions

USAGE:
  aish                 Start the interactive relay
  aish -c "command"    Run a single command through the shell and exit

Ordinary input lines are forwarded to the shell and their output relayed
back. Lines starting with "ai " are sent, together with recent session
history, to a remote completion API; the suggested command is printed for
manual copy/paste and never executed. Type :help inside the relay for
builtins.

Commands run with their input from /dev/null, so programs that wait for
keyboard input (cat with no file, read, interactive REPLs) see EOF instead
of hanging the relay. If the shell dies, for example on a syntax error,
aish says so and spawns a fresh shell for the next command; shell variables
and the working directory reset when that happens.

The API credential is read from the environment (OPENAI_API_KEY by default).
Ctrl+C terminates aish and its shell entirely; this is a known limitation.

OPTIONS:
`

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if *helpFlag {
		fmt.Print(helpText)
		flag.PrintDefaults()
		return
	}

	cfg, err := config.Load(core.ConfigFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "aish: %v\n", err)
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // Flush any buffered log entries

	logger.Info("-------- new aish session --------", zap.Any("args", os.Args))

	// Initialize the session transcript
	store, err := transcript.NewStore()
	if err != nil {
		logger.Error("failed to initialize transcript store", zap.Error(err))
		fmt.Fprintf(os.Stderr, "aish: %v\n", err)
		os.Exit(1)
	}

	// Spawn the shell collaborator. Without a shell there is nothing to
	// relay, so this is fatal.
	runner, err := shell.NewRunner(shell.Options{
		Shell:  cfg.Shell,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to spawn shell", zap.Error(err))
		fmt.Fprintf(os.Stderr, "aish: %v\n", err)
		os.Exit(1)
	}
	defer runner.Close()

	exitCode, err := run(cfg, logger, store, runner)
	if err != nil {
		logger.Error("unhandled error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "aish: %v\n", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func run(cfg *config.Config, logger *zap.Logger, store *transcript.Store, runner *shell.Runner) (int, error) {
	ctx := context.Background()

	// aish -c "echo hello"
	if *command != "" {
		result, err := runner.Run(ctx, *command)
		if err != nil && !errors.Is(err, shell.ErrShellExited) {
			return 1, err
		}
		return result.ExitCode, nil
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	renderer := render.New(os.Stdout, render.TerminalWidth)

	provider := llmcontext.NewProvider(logger,
		llmcontext.NewSystemInfoRetriever(cfg.Shell),
		llmcontext.NewWorkingDirectoryRetriever(),
		llmcontext.NewTranscriptRetriever(store, cfg.ContextLimit),
	)

	r, err := relay.New(relay.Options{
		Logger:      logger,
		Config:      cfg,
		Store:       store,
		Shell:       runner,
		Suggester:   llm.NewClient(cfg, logger),
		Context:     provider,
		Completer:   completion.NewCompleter(runner, logger),
		Renderer:    renderer,
		Interactive: interactive,
	})
	if err != nil {
		return 1, fmt.Errorf("failed to initialize relay: %w", err)
	}

	if interactive {
		renderer.Notice(fmt.Sprintf("aish %s, relaying to %s. Ask with \"ai <question>\", see :help for builtins.",
			BUILD_VERSION, runner.Name()))
	}

	return 0, r.Run(ctx)
}

func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = cfg.ZapLevel()

	// Logs only go to file so they never interleave with relayed shell
	// output. Use `tail -f ~/.aish/aish.log` to monitor.
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}

	return loggerConfig.Build()
}
