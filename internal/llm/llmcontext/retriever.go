// Package llmcontext aggregates session context for AI queries. It collects
// information from various sources (the session transcript, working
// directory, system info) so the remote model can suggest commands that fit
// what the user has been doing.
package llmcontext

import (
	"strings"

	"go.uber.org/zap"
)

// Retriever is the interface that all context retrievers must implement.
// Each retriever is responsible for collecting one type of context
// information included in AI queries.
type Retriever interface {
	// Name returns the unique identifier for this retriever.
	Name() string

	// GetContext returns the context string for this retriever.
	// The returned string should be formatted for model consumption.
	GetContext() (string, error)
}

// Provider aggregates retrievers into a single formatted context block.
type Provider struct {
	retrievers []Retriever
	logger     *zap.Logger
}

// NewProvider creates a Provider. Retriever order is preserved in the
// formatted output.
func NewProvider(logger *zap.Logger, retrievers ...Retriever) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		retrievers: retrievers,
		logger:     logger,
	}
}

// FormatContext collects context from all retrievers and renders it as
// labeled sections. A retriever that errors is logged and skipped; context
// gathering never blocks an AI query.
func (p *Provider) FormatContext() string {
	var b strings.Builder
	for _, r := range p.retrievers {
		value, err := r.GetContext()
		if err != nil {
			p.logger.Warn("context retriever failed", zap.String("retriever", r.Name()), zap.Error(err))
			continue
		}
		if value == "" {
			continue
		}
		b.WriteString("## " + r.Name() + "\n" + value + "\n\n")
	}
	return b.String()
}
