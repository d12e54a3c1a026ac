package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"

	"github.com/aish-dev/aish/internal/transcript"
)

// historyListLimit caps how many transcript entries :history prints.
const historyListLimit = 30

// handleBuiltin dispatches colon-prefixed relay builtins. Builtins never
// reach the shell.
func (r *Relay) handleBuiltin(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ":help":
		r.builtinHelp()
	case ":history":
		r.builtinHistory(args)
	case ":clear":
		r.builtinClear()
	case ":copy":
		r.builtinCopy()
	case ":complete":
		r.builtinComplete(ctx, args)
	default:
		r.renderer.Error(fmt.Sprintf("unknown builtin %s, try :help", cmd))
	}
}

func (r *Relay) builtinHelp() {
	r.renderer.Plain("aish builtins:")
	r.renderer.Plain("  ai <question>      ask for a command suggestion (printed, never run)")
	r.renderer.Plain("  :history [query]   list this session's transcript, optionally filtered")
	r.renderer.Plain("  :copy              copy the last AI suggestion to the clipboard")
	r.renderer.Plain("  :complete <word>   show completions for a partial word")
	r.renderer.Plain("  :clear             clear the session transcript")
	r.renderer.Plain("  exit               leave aish (Ctrl+D also works)")
}

func (r *Relay) builtinHistory(args []string) {
	var entries []transcript.Exchange
	var err error

	if len(args) > 0 {
		entries, err = r.store.Search(strings.Join(args, " "), historyListLimit)
	} else {
		entries, err = r.store.Recent(historyListLimit)
	}
	if err != nil {
		r.renderer.Error(fmt.Sprintf("failed to read transcript: %v", err))
		return
	}

	if len(entries) == 0 {
		r.renderer.Notice("transcript is empty")
		return
	}

	for _, entry := range entries {
		marker := "$"
		if entry.Kind == transcript.KindAI {
			marker = "ai>"
		}
		r.renderer.Plain(fmt.Sprintf("%-3s %s  (%s)", marker, entry.Command, humanize.Time(entry.CreatedAt)))
	}
}

func (r *Relay) builtinClear() {
	if err := r.store.Clear(); err != nil {
		r.renderer.Error(fmt.Sprintf("failed to clear transcript: %v", err))
		return
	}
	r.lastSuggestion = ""
	r.renderer.Notice("transcript cleared")
}

func (r *Relay) builtinCopy() {
	if r.lastSuggestion == "" {
		r.renderer.Error("no suggestion to copy yet")
		return
	}
	if err := clipboard.WriteAll(r.lastSuggestion); err != nil {
		r.renderer.Error(fmt.Sprintf("failed to copy suggestion: %v", err))
		return
	}
	r.renderer.Notice("suggestion copied to clipboard")
}

func (r *Relay) builtinComplete(ctx context.Context, args []string) {
	if r.completer == nil {
		r.renderer.Error("completion is not available")
		return
	}
	if len(args) == 0 {
		r.renderer.Notice("usage: :complete <word>")
		return
	}

	candidates := r.completer.Complete(ctx, strings.Join(args, " "))
	if len(candidates) == 0 {
		r.renderer.Notice("no completions")
		return
	}
	for _, candidate := range candidates {
		r.renderer.Plain(candidate)
	}
}
