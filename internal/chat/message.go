package chat

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation sent to the model. Order within
// a message slice is significant: it is the literal history the model sees.
type Message struct {
	Role    Role
	Content string
}

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Transcript renders messages as "ROLE: content" lines, used as context
// for commit message generation.
func Transcript(msgs []Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString("\n")
		b.WriteString(strings.ToUpper(string(msg.Role)))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// EstimateTokens gives a rough token count for a string. The heuristic
// (one token per four bytes) matches what the rest of the budget logic
// assumes; exact counts are the transport's business.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// EstimateMessageTokens estimates the token footprint of a message list,
// including a small per-message framing overhead.
func EstimateMessageTokens(msgs []Message) int {
	total := 0
	for _, msg := range msgs {
		total += EstimateTokens(msg.Content) + 4
	}
	return total
}
