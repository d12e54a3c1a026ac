package llm

import "fmt"

// systemPrompt establishes the suggestion contract: one command, plain text.
// The relay prints the result for manual copy/paste and never runs it.
const systemPrompt = `You are aish, an assistant embedded in a terminal session.
You will be given context about the user's current session and a question.

# Instructions
* Suggest a single shell command that answers the question
* Output only the command as plain text, with no markdown fences and no commentary
* Prefer portable POSIX syntax unless the context shows a specific shell
* If the question cannot be answered with a command, reply with a one-line explanation instead`

// BuildUserMessage assembles the user message from the rendered session
// context and the question text.
func BuildUserMessage(contextText string, question string) string {
	if contextText == "" {
		return fmt.Sprintf("# Question\n%s", question)
	}
	return fmt.Sprintf("# Session Context\n%s\n# Question\n%s", contextText, question)
}
