package models

import (
	"encoding/json"
	"time"
)

// Conversation is one exchange of a chat session: the user's message and
// the agent messages produced in reply. (ChatID, MessageID) is unique.
type Conversation struct {
	ID            int64           `json:"id"`
	ChatID        string          `json:"chat_id"`
	MessageID     int64           `json:"message_id"`
	UserMessage   string          `json:"user_message"`
	AgentMessages json.RawMessage `json:"agent_messages"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
