package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ekaya-inc/ekaya-biotools/pkg/database"
	"github.com/ekaya-inc/ekaya-biotools/pkg/models"
)

// ConversationRepository provides data access for chat transcripts.
type ConversationRepository interface {
	// Upsert inserts the record or overwrites the one with the same
	// (chat_id, message_id) in a single statement, returning the row id.
	Upsert(ctx context.Context, conv *models.Conversation) (int64, error)
}

type conversationRepository struct {
	db database.Querier
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db database.Querier) ConversationRepository {
	return &conversationRepository{db: db}
}

var _ ConversationRepository = (*conversationRepository)(nil)

func (r *conversationRepository) Upsert(ctx context.Context, conv *models.Conversation) (int64, error) {
	agentMessages := conv.AgentMessages
	if len(agentMessages) == 0 {
		agentMessages = json.RawMessage("null")
	}

	query := `
		INSERT INTO conversations (chat_id, message_id, user_message, agent_messages)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, message_id) DO UPDATE SET
			user_message = EXCLUDED.user_message,
			agent_messages = EXCLUDED.agent_messages,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		conv.ChatID, conv.MessageID, conv.UserMessage, []byte(agentMessages),
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return conv.ID, nil
}
