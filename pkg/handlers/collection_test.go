package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/models"
)

// memoryStore upserts by (chat_id, message_id) like the database constraint.
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*models.Conversation
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]*models.Conversation)}
}

func (m *memoryStore) Upsert(_ context.Context, conv *models.Conversation) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s/%d", conv.ChatID, conv.MessageID)
	if existing, ok := m.rows[key]; ok {
		conv.ID = existing.ID
	} else {
		m.nextID++
		conv.ID = m.nextID
	}
	m.rows[key] = conv
	return conv.ID, nil
}

func postCollection(t *testing.T, h *CollectionHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, func(next http.Handler) http.Handler { return next })
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/data/collection", strings.NewReader(body)))
	return rec
}

func TestCollection_CreatesThenOverwrites(t *testing.T) {
	store := newMemoryStore()
	h := NewCollectionHandler(store, zap.NewNop())

	rec := postCollection(t, h, `{"chat_id":"c1","message_id":1,"user_message":"first","agent_messages":[{"role":"agent","text":"a"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeStatus(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["id"])

	rec = postCollection(t, h, `{"chat_id":"c1","message_id":1,"user_message":"second","agent_messages":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeStatus(t, rec)["id"])

	require.Len(t, store.rows, 1)
	for _, conv := range store.rows {
		assert.Equal(t, "second", conv.UserMessage)
		assert.JSONEq(t, `[]`, string(conv.AgentMessages))
	}

	rec = postCollection(t, h, `{"chat_id":"c1","message_id":2,"user_message":"third","agent_messages":{}}`)
	assert.Equal(t, float64(2), decodeStatus(t, rec)["id"])
}

func TestCollection_FlexibleIDs(t *testing.T) {
	store := newMemoryStore()
	h := NewCollectionHandler(store, zap.NewNop())

	rec := postCollection(t, h, `{"chat_id":12345678901234567,"message_id":"7","user_message":"","agent_messages":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, store.rows, 1)
	for _, conv := range store.rows {
		assert.Equal(t, "12345678901234567", conv.ChatID)
		assert.Equal(t, int64(7), conv.MessageID)
		assert.Equal(t, "", conv.UserMessage)
	}
}

func TestCollection_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"chat_id":`, "invalid JSON body"},
		{"missing chat id", `{"message_id":1,"user_message":"x","agent_messages":[]}`, "chat_id is required"},
		{"object chat id", `{"chat_id":{},"message_id":1,"user_message":"x","agent_messages":[]}`, "chat_id"},
		{"fractional message id", `{"chat_id":"c","message_id":1.5,"user_message":"x","agent_messages":[]}`, "message_id"},
		{"missing message id", `{"chat_id":"c","user_message":"x","agent_messages":[]}`, "message_id is required"},
		{"numeric user message", `{"chat_id":"c","message_id":1,"user_message":5,"agent_messages":[]}`, "user_message must be a string"},
		{"null user message", `{"chat_id":"c","message_id":1,"user_message":null,"agent_messages":[]}`, "user_message is required"},
		{"missing agent messages", `{"chat_id":"c","message_id":1,"user_message":"x"}`, "agent_messages is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			rec := postCollection(t, NewCollectionHandler(store, zap.NewNop()), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeStatus(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Contains(t, body["message"], tt.message)
			assert.Empty(t, store.rows)
		})
	}
}

func TestCollection_StoreFailureHidesDetails(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("pq: password authentication failed for user biotools")

	rec := postCollection(t, NewCollectionHandler(store, zap.NewNop()), `{"chat_id":"c","message_id":1,"user_message":"x","agent_messages":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeStatus(t, rec)
	assert.Equal(t, "failed to store conversation", body["message"])
}

func TestCollection_MethodNotAllowed(t *testing.T) {
	h := NewCollectionHandler(newMemoryStore(), zap.NewNop())
	rec := httptest.NewRecorder()
	h.Collect(rec, httptest.NewRequest(http.MethodGet, "/data/collection", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestCollection_NoStore(t *testing.T) {
	rec := postCollection(t, NewCollectionHandler(nil, zap.NewNop()), `{"chat_id":"c","message_id":1,"user_message":"x","agent_messages":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conversation store is not configured", decodeStatus(t, rec)["message"])
}
