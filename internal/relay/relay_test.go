package relay

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aish-dev/aish/internal/config"
	"github.com/aish-dev/aish/internal/relay/render"
	"github.com/aish-dev/aish/internal/shell"
	"github.com/aish-dev/aish/internal/transcript"
)

type fakeRunner struct {
	commands []string
	result   shell.Result
	err      error
	errOnce  error
}

func (f *fakeRunner) Run(_ context.Context, command string) (*shell.Result, error) {
	f.commands = append(f.commands, command)
	result := f.result
	if f.errOnce != nil {
		err := f.errOnce
		f.errOnce = nil
		return &result, err
	}
	return &result, f.err
}

type fakeSuggester struct {
	questions []string
	contexts  []string
	response  string
	err       error
}

func (f *fakeSuggester) Suggest(_ context.Context, question string, contextText string) (string, error) {
	f.questions = append(f.questions, question)
	f.contexts = append(f.contexts, contextText)
	return f.response, f.err
}

type fakeContext struct{ text string }

func (f *fakeContext) FormatContext() string { return f.text }

type fakeCompleter struct{ candidates []string }

func (f *fakeCompleter) Complete(_ context.Context, _ string) []string { return f.candidates }

type testRelay struct {
	relay     *Relay
	out       *bytes.Buffer
	runner    *fakeRunner
	suggester *fakeSuggester
	store     *transcript.Store
}

func newTestRelay(t *testing.T, input string, mutate ...func(*Options)) *testRelay {
	t.Helper()

	store, err := transcript.NewStore()
	require.NoError(t, err)

	out := &bytes.Buffer{}
	runner := &fakeRunner{result: shell.Result{Output: "out\n", ExitCode: 0}}
	suggester := &fakeSuggester{response: "ls -a"}

	opts := Options{
		Config:    config.Default(),
		Store:     store,
		Shell:     runner,
		Suggester: suggester,
		Context:   &fakeContext{text: "CTX"},
		Renderer:  render.New(out, func() int { return 80 }),
		Input:     strings.NewReader(input),
	}
	for _, m := range mutate {
		m(&opts)
	}

	relay, err := New(opts)
	require.NoError(t, err)

	return &testRelay{relay: relay, out: out, runner: runner, suggester: suggester, store: store}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want InputKind
	}{
		{"", KindEmpty},
		{"   ", KindEmpty},
		{"exit", KindExit},
		{"  exit  ", KindExit},
		{":history", KindBuiltin},
		{":Help", KindBuiltin},
		{":", KindShell},
		{": > file", KindShell},
		{":2", KindShell},
		{"ai", KindAI},
		{"ai how do I list hidden files", KindAI},
		{"ls", KindShell},
		{"air quality", KindShell},
		{"aids=1", KindShell},
		{"echo ai ", KindShell},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("requires store, shell, and renderer", func(t *testing.T) {
		_, err := New(Options{})
		assert.Error(t, err)
	})
}

func TestShellDispatch(t *testing.T) {
	tr := newTestRelay(t, "ls\n")
	tr.runner.result = shell.Result{Output: "file1\nfile2\n", ExitCode: 0}

	require.NoError(t, tr.relay.Run(context.Background()))

	assert.Equal(t, []string{"ls"}, tr.runner.commands)

	entries, err := tr.store.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, transcript.KindShell, entries[0].Kind)
	assert.Equal(t, "ls", entries[0].Command)
	assert.Equal(t, "file1\nfile2\n", entries[0].Output)
}

func TestShellExitIsRecovered(t *testing.T) {
	t.Run("a typo does not end the session", func(t *testing.T) {
		tr := newTestRelay(t, "fi\necho still-alive\n")
		tr.runner.errOnce = shell.ErrShellExited
		tr.runner.result = shell.Result{ExitCode: 2}

		require.NoError(t, tr.relay.Run(context.Background()))

		assert.Equal(t, []string{"fi", "echo still-alive"}, tr.runner.commands,
			"the command after the failure must still be relayed")
		assert.Contains(t, tr.out.String(), "shell exited with status 2")
	})

	t.Run("other runner errors are fatal", func(t *testing.T) {
		tr := newTestRelay(t, "ls\necho never\n")
		tr.runner.err = assert.AnError

		require.Error(t, tr.relay.Run(context.Background()))
		assert.Equal(t, []string{"ls"}, tr.runner.commands)
	})
}

func TestAIDispatch(t *testing.T) {
	t.Run("query goes to the suggester, not the shell", func(t *testing.T) {
		tr := newTestRelay(t, "ai how do I list hidden files\n")

		require.NoError(t, tr.relay.Run(context.Background()))

		assert.Empty(t, tr.runner.commands, "AI queries must never reach the shell")
		require.Len(t, tr.suggester.questions, 1)
		assert.Equal(t, "how do I list hidden files", tr.suggester.questions[0])
		assert.Equal(t, "CTX", tr.suggester.contexts[0])
		assert.Contains(t, tr.out.String(), "ls -a")

		entries, err := tr.store.Recent(10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, transcript.KindAI, entries[0].Kind)
	})

	t.Run("suggestion is not executed afterwards", func(t *testing.T) {
		tr := newTestRelay(t, "ai how do I list hidden files\npwd\n")

		require.NoError(t, tr.relay.Run(context.Background()))

		// Only the explicit follow-up command reaches the shell.
		assert.Equal(t, []string{"pwd"}, tr.runner.commands)
	})

	t.Run("bare ai prints usage", func(t *testing.T) {
		tr := newTestRelay(t, "ai\n")

		require.NoError(t, tr.relay.Run(context.Background()))

		assert.Empty(t, tr.suggester.questions)
		assert.Contains(t, tr.out.String(), "usage: ai <question>")
	})

	t.Run("query failure is reported and the loop continues", func(t *testing.T) {
		tr := newTestRelay(t, "ai broken\nls\n")
		tr.suggester.err = assert.AnError

		require.NoError(t, tr.relay.Run(context.Background()))

		assert.Contains(t, tr.out.String(), assert.AnError.Error())
		assert.Equal(t, []string{"ls"}, tr.runner.commands, "relay must survive query failures")
	})
}

func TestExit(t *testing.T) {
	tr := newTestRelay(t, "exit\nls\n")

	require.NoError(t, tr.relay.Run(context.Background()))
	assert.Empty(t, tr.runner.commands)
}

func TestContinuation(t *testing.T) {
	tr := newTestRelay(t, "for i in 1 2; do\necho $i\ndone\n")

	require.NoError(t, tr.relay.Run(context.Background()))

	require.Len(t, tr.runner.commands, 1)
	assert.Equal(t, "for i in 1 2; do\necho $i\ndone", tr.runner.commands[0])
}

func TestInteractivePrompt(t *testing.T) {
	tr := newTestRelay(t, "ls\n", func(o *Options) {
		o.Interactive = true
	})

	require.NoError(t, tr.relay.Run(context.Background()))
	assert.True(t, strings.HasPrefix(tr.out.String(), "aish> "))
}

func TestBuiltins(t *testing.T) {
	t.Run("history lists recent entries", func(t *testing.T) {
		tr := newTestRelay(t, "ls\n:history\n")

		require.NoError(t, tr.relay.Run(context.Background()))
		assert.Contains(t, tr.out.String(), "$   ls")
	})

	t.Run("history with query filters", func(t *testing.T) {
		tr := newTestRelay(t, "git status\nls\n:history git\n")

		require.NoError(t, tr.relay.Run(context.Background()))

		got := tr.out.String()
		assert.Contains(t, got, "git status")
		assert.NotContains(t, got, "$   ls")
	})

	t.Run("clear empties the transcript", func(t *testing.T) {
		tr := newTestRelay(t, "ls\n:clear\n")

		require.NoError(t, tr.relay.Run(context.Background()))

		count, err := tr.store.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.Contains(t, tr.out.String(), "transcript cleared")
	})

	t.Run("copy without a suggestion is an error message", func(t *testing.T) {
		tr := newTestRelay(t, ":copy\n")

		require.NoError(t, tr.relay.Run(context.Background()))
		assert.Contains(t, tr.out.String(), "no suggestion to copy yet")
	})

	t.Run("complete prints candidates", func(t *testing.T) {
		tr := newTestRelay(t, ":complete ma\n", func(o *Options) {
			o.Completer = &fakeCompleter{candidates: []string{"main.go", "makefile"}}
		})

		require.NoError(t, tr.relay.Run(context.Background()))
		assert.Contains(t, tr.out.String(), "main.go")
		assert.Contains(t, tr.out.String(), "makefile")
	})

	t.Run("unknown builtin suggests help", func(t *testing.T) {
		tr := newTestRelay(t, ":bogus\n")

		require.NoError(t, tr.relay.Run(context.Background()))
		assert.Contains(t, tr.out.String(), "unknown builtin :bogus")
	})

	t.Run("help lists builtins", func(t *testing.T) {
		tr := newTestRelay(t, ":help\n")

		require.NoError(t, tr.relay.Run(context.Background()))
		assert.Contains(t, tr.out.String(), ":history")
		assert.Contains(t, tr.out.String(), ":copy")
	})
}

func TestEmptyLinesAreSkipped(t *testing.T) {
	tr := newTestRelay(t, "\n   \nls\n")

	require.NoError(t, tr.relay.Run(context.Background()))
	assert.Equal(t, []string{"ls"}, tr.runner.commands)
}
