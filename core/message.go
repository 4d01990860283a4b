package core

// Role labels the conversational origin of a message.
type Role string

const (
	// RoleSystem marks instructions for the run, not user input.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleAssistant marks previously generated assistant output.
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversational input forwarded to the upstream run.
// Clients send the full history on every request, so sources never need to
// persist message content themselves.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LastUserMessage returns the content of the most recent user message, or ""
// when the history carries none. Sources that only accept a single prompt use
// this to pick the effective input.
func LastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
