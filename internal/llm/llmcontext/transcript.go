package llmcontext

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/aish-dev/aish/internal/transcript"
)

const (
	// DefaultTranscriptLimit is the default number of exchanges included.
	DefaultTranscriptLimit = 20

	// maxPreviewLines caps how many output lines each exchange contributes.
	maxPreviewLines = 8

	// maxLineWidth caps the display width of each preview line.
	maxLineWidth = 200
)

// TranscriptRetriever renders recent Session Transcript exchanges as model
// context: commands with their output previews and exit codes, plus earlier
// AI questions and suggestions.
type TranscriptRetriever struct {
	store *transcript.Store
	limit int
}

// NewTranscriptRetriever creates a new TranscriptRetriever.
// If limit is 0 or negative, DefaultTranscriptLimit is used.
func NewTranscriptRetriever(store *transcript.Store, limit int) *TranscriptRetriever {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	return &TranscriptRetriever{
		store: store,
		limit: limit,
	}
}

// Name returns the retriever name.
func (r *TranscriptRetriever) Name() string {
	return "session_transcript"
}

// GetContext returns recent exchanges formatted for model context.
func (r *TranscriptRetriever) GetContext() (string, error) {
	entries, err := r.store.Recent(r.limit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, entry := range entries {
		switch entry.Kind {
		case transcript.KindAI:
			b.WriteString("ai> " + entry.Command + "\n")
			b.WriteString(previewOutput(entry.Output))
		default:
			b.WriteString("$ " + entry.Command + "\n")
			b.WriteString(previewOutput(entry.Output))
			if entry.ExitCode.Valid && entry.ExitCode.Int32 != 0 {
				b.WriteString(fmt.Sprintf("(exit %d)\n", entry.ExitCode.Int32))
			}
		}
	}

	return fmt.Sprintf(`<recent_exchanges>
%s
</recent_exchanges>`, strings.TrimSpace(b.String())), nil
}

// previewOutput trims a command's output to a bounded preview.
func previewOutput(output string) string {
	if output == "" {
		return ""
	}

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	truncated := false
	if len(lines) > maxPreviewLines {
		lines = lines[:maxPreviewLines]
		truncated = true
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(truncateWidth(line, maxLineWidth) + "\n")
	}
	if truncated {
		b.WriteString("[...]\n")
	}
	return b.String()
}

// truncateWidth cuts a string to at most max display cells, grapheme-aware.
func truncateWidth(s string, max int) string {
	if uniseg.StringWidth(s) <= max {
		return s
	}

	var b strings.Builder
	width := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if width+w > max-1 {
			break
		}
		b.WriteString(g.Str())
		width += w
	}
	b.WriteString("…")
	return b.String()
}
