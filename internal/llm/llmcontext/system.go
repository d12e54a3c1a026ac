package llmcontext

import (
	"fmt"
	"runtime"
)

// SystemInfoRetriever retrieves system information context.
type SystemInfoRetriever struct {
	shell string
}

// NewSystemInfoRetriever creates a new SystemInfoRetriever. The shell name
// is included so the model suggests syntax matching the user's shell.
func NewSystemInfoRetriever(shell string) *SystemInfoRetriever {
	return &SystemInfoRetriever{shell: shell}
}

// Name returns the retriever name.
func (r *SystemInfoRetriever) Name() string {
	return "system_info"
}

// GetContext returns system information formatted for model context.
func (r *SystemInfoRetriever) GetContext() (string, error) {
	return fmt.Sprintf("<system_info>OS: %s, Arch: %s, Shell: %s</system_info>",
		runtime.GOOS, runtime.GOARCH, r.shell), nil
}
