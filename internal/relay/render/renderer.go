// Package render handles terminal output for the relay: prompts, system
// notices, errors, and AI suggestions. Suggestions are word-wrapped to the
// terminal width and framed so they are visually distinct from relayed
// shell output, but remain plain text for manual copy/paste.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"
)

const minWrapWidth = 20

var suggestionStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("12")).
	Padding(0, 1)

// Renderer writes relay output. The width function is consulted per render
// so resizing the terminal takes effect immediately.
type Renderer struct {
	out   io.Writer
	width func() int
}

// New creates a Renderer. A nil width function falls back to TerminalWidth.
func New(out io.Writer, width func() int) *Renderer {
	if width == nil {
		width = TerminalWidth
	}
	return &Renderer{
		out:   out,
		width: width,
	}
}

// TerminalWidth returns the current terminal width, or 80 when stdout is
// not a terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// Prompt writes the input prompt without a trailing newline.
func (r *Renderer) Prompt(prompt string) {
	fmt.Fprint(r.out, prompt)
}

// Suggestion renders an AI suggestion. The text is printed, never executed.
func (r *Renderer) Suggestion(text string) {
	width := r.width()
	wrap := width - 4 // border and padding
	if wrap < minWrapWidth {
		wrap = minWrapWidth
	}

	wrapped := wordwrap.String(strings.TrimSpace(text), wrap)
	fmt.Fprintln(r.out, suggestionStyle.Render(wrapped))
}

// Error reports a recoverable error to the user.
func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.out, ERROR("aish: "+msg))
}

// Notice prints an informational message from the relay itself.
func (r *Renderer) Notice(msg string) {
	fmt.Fprintln(r.out, NOTICE(msg))
}

// Plain prints unstyled text, used for builtin command output.
func (r *Renderer) Plain(msg string) {
	fmt.Fprintln(r.out, msg)
}
