// Package completion produces candidate completions for a partial input
// word. Candidates come from the live shell when it supports a completion
// query (zsh globbing, bash/sh compgen), with a pure-Go directory listing
// as the fallback. `ai ` prefixes get canned question suggestions instead.
package completion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/syntax"

	"github.com/aish-dev/aish/internal/shell"
)

// aiSuggestions are canned starting points for `ai` questions.
var aiSuggestions = []string{
	"find large files",
	"compress images",
	"list processes",
	"check disk space",
	"find duplicates",
	"backup directory",
	"monitor resources",
	"search for text",
	"update system",
}

var errUnsupportedShell = errors.New("shell has no completion query")

// ShellQuerier runs a quiet query against the live shell session.
type ShellQuerier interface {
	Capture(ctx context.Context, command string) (*shell.Result, error)
	Name() string
}

// Completer generates completions for partial input.
type Completer struct {
	shell  ShellQuerier
	logger *zap.Logger
}

// NewCompleter creates a Completer. The shell querier may be nil, in which
// case only the fallback and `ai ` paths are available.
func NewCompleter(sh ShellQuerier, logger *zap.Logger) *Completer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		shell:  sh,
		logger: logger,
	}
}

// Complete returns candidate completions for the given input. Completion
// is best-effort: failures are logged and produce an empty result.
func (c *Completer) Complete(ctx context.Context, input string) []string {
	if strings.HasPrefix(input, "ai ") {
		query := strings.TrimSpace(input[3:])
		return lo.Filter(aiSuggestions, func(s string, _ int) bool {
			return query == "" || strings.HasPrefix(s, query)
		})
	}

	word := lastWord(input)

	candidates, err := c.shellComplete(ctx, word)
	if err != nil || len(candidates) == 0 {
		if err != nil && !errors.Is(err, errUnsupportedShell) {
			c.logger.Debug("shell completion failed", zap.Error(err))
		}
		candidates = fallbackComplete(word)
	}

	base := lastPathSegment(word)
	candidates = lo.Filter(candidates, func(s string, _ int) bool {
		return s != "" && (base == "" || strings.HasPrefix(s, base) || strings.HasPrefix(s, word))
	})
	candidates = lo.Uniq(candidates)
	sort.Strings(candidates)
	return candidates
}

// shellComplete asks the live shell for completions of word.
func (c *Completer) shellComplete(ctx context.Context, word string) ([]string, error) {
	if c.shell == nil || word == "" {
		return nil, errUnsupportedShell
	}

	quoted, err := syntax.Quote(word, syntax.LangPOSIX)
	if err != nil {
		return nil, fmt.Errorf("failed to quote completion word: %w", err)
	}

	var query string
	switch filepath.Base(c.shell.Name()) {
	case "zsh":
		query = fmt.Sprintf("print -rl -- %s*(N)", quoted)
	case "bash", "sh":
		query = fmt.Sprintf("compgen -A file -A command -- %s", quoted)
	default:
		return nil, errUnsupportedShell
	}

	result, err := c.shell.Capture(ctx, query)
	if err != nil {
		return nil, err
	}
	// compgen exits non-zero when there are no matches.
	if result.ExitCode != 0 {
		return nil, nil
	}

	lines := strings.Split(strings.TrimRight(result.Output, "\n"), "\n")
	return lo.Filter(lines, func(s string, _ int) bool { return s != "" }), nil
}

// fallbackComplete lists directory entries matching the word's last path
// segment, used when the shell query is unavailable.
func fallbackComplete(word string) []string {
	if word == "" {
		return nil
	}

	expanded := word
	if strings.HasPrefix(expanded, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = home + expanded[1:]
		}
	}

	var dir, prefix string
	switch {
	case isDir(expanded):
		dir, prefix = expanded, ""
	case strings.Contains(expanded, "/"):
		dir = filepath.Dir(expanded)
		prefix = filepath.Base(expanded)
	default:
		dir, prefix = ".", expanded
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var results []string
	for _, entry := range entries {
		name := entry.Name()
		if prefix == "" || strings.HasPrefix(name, prefix) {
			results = append(results, name)
		}
	}
	return results
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// lastWord returns the word being completed: the final whitespace-separated
// token, or empty when the input ends mid-whitespace (a new word is starting).
func lastWord(input string) string {
	if input != strings.TrimRight(input, " \t") {
		return ""
	}
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// lastPathSegment returns the final path segment of a word, which is what
// directory-based candidates are named after.
func lastPathSegment(word string) string {
	if strings.Contains(word, "/") {
		return filepath.Base(word)
	}
	return word
}
