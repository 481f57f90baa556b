package domain

// ChatRole is the author of a chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message of the client-held conversation. History is
// ephemeral: the client resends the full transcript on every request.
type ChatTurn struct {
	Role    ChatRole
	Content string
}

// ValidateChatTurn rejects turns with unknown roles or no content.
func ValidateChatTurn(t ChatTurn) error {
	if t.Role != ChatRoleUser && t.Role != ChatRoleAssistant {
		return ErrInvalidChatRole
	}
	if t.Content == "" {
		return ErrMissingRequiredField
	}
	return nil
}
