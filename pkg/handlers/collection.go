package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/models"
)

// maxCollectionBody bounds a posted transcript.
const maxCollectionBody = 10 << 20

// ConversationStore persists chat transcripts.
type ConversationStore interface {
	Upsert(ctx context.Context, conv *models.Conversation) (int64, error)
}

// CollectionHandler records chat exchanges posted by the chat front end.
type CollectionHandler struct {
	store  ConversationStore
	logger *zap.Logger
}

// NewCollectionHandler creates a CollectionHandler. A nil store answers
// every post with an error.
func NewCollectionHandler(store ConversationStore, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{store: store, logger: logger.Named("collection")}
}

// RegisterRoutes mounts POST /data/collection, wrapped by mw.
func (h *CollectionHandler) RegisterRoutes(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	mux.Handle("/data/collection", mw(http.HandlerFunc(h.Collect)))
}

type collectionRequest struct {
	ChatID        json.RawMessage `json:"chat_id"`
	MessageID     json.RawMessage `json:"message_id"`
	UserMessage   json.RawMessage `json:"user_message"`
	AgentMessages json.RawMessage `json:"agent_messages"`
}

// Collect stores one exchange. Posting the same (chat_id, message_id)
// again overwrites the stored record.
func (h *CollectionHandler) Collect(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req collectionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCollectionBody)).Decode(&req); err != nil {
		h.fail(w, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	conv, err := req.toConversation()
	if err != nil {
		h.fail(w, err.Error())
		return
	}

	if h.store == nil {
		h.fail(w, "conversation store is not configured")
		return
	}

	id, err := h.store.Upsert(r.Context(), conv)
	if err != nil {
		h.logger.Error("Failed to store conversation",
			zap.String("chat_id", conv.ChatID),
			zap.Int64("message_id", conv.MessageID),
			zap.String("error", logging.SanitizeError(err)))
		h.fail(w, "failed to store conversation")
		return
	}

	h.logger.Debug("Stored conversation",
		zap.Int64("id", id),
		zap.String("chat_id", conv.ChatID),
		zap.Int64("message_id", conv.MessageID))

	if err := WriteJSON(w, http.StatusOK, StatusResponse{Status: statusSuccess, ID: &id}); err != nil {
		h.logger.Error("Failed to encode collection response", zap.Error(err))
	}
}

func (h *CollectionHandler) fail(w http.ResponseWriter, message string) {
	if err := WriteStatusError(w, http.StatusBadRequest, logging.TruncateError(message)); err != nil {
		h.logger.Error("Failed to encode collection error", zap.Error(err))
	}
}

func (req collectionRequest) toConversation() (*models.Conversation, error) {
	chatID, err := jsonutil.FlexibleString(req.ChatID)
	if err != nil {
		return nil, fieldError("chat_id", err)
	}

	messageID, err := jsonutil.FlexibleInt64(req.MessageID)
	if err != nil {
		return nil, fieldError("message_id", err)
	}

	var userMessage *string
	if err := json.Unmarshal(orNull(req.UserMessage), &userMessage); err != nil {
		return nil, fmt.Errorf("user_message must be a string")
	}
	if userMessage == nil {
		return nil, fmt.Errorf("user_message is required")
	}

	if len(req.AgentMessages) == 0 || string(req.AgentMessages) == "null" {
		return nil, fmt.Errorf("agent_messages is required")
	}

	return &models.Conversation{
		ChatID:        chatID,
		MessageID:     messageID,
		UserMessage:   *userMessage,
		AgentMessages: req.AgentMessages,
	}, nil
}

func fieldError(field string, err error) error {
	if errors.Is(err, jsonutil.ErrNull) {
		return fmt.Errorf("%s is required", field)
	}
	return fmt.Errorf("%s: %v", field, err)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
