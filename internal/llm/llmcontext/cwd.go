package llmcontext

import (
	"fmt"
	"os"
)

// WorkingDirectoryRetriever retrieves the relay's current working directory.
type WorkingDirectoryRetriever struct{}

// NewWorkingDirectoryRetriever creates a new WorkingDirectoryRetriever.
func NewWorkingDirectoryRetriever() *WorkingDirectoryRetriever {
	return &WorkingDirectoryRetriever{}
}

// Name returns the retriever name.
func (r *WorkingDirectoryRetriever) Name() string {
	return "working_directory"
}

// GetContext returns the working directory formatted for model context.
func (r *WorkingDirectoryRetriever) GetContext() (string, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<working_dir>%s</working_dir>", pwd), nil
}
