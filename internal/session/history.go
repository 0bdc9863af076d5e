package session

import (
	"offline-llm-be/internal/constant"
	"offline-llm-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Histories keeps per-session chat transcripts in memory. Transcripts are
// not persisted: a purge (explicit or reaped) discards them together with the
// session's retrieval collection.
type Histories struct {
	conversations *cache.Cache // session id -> []llm.Message
}

func NewHistories() *Histories {
	return &Histories{
		conversations: cache.New(cache.NoExpiration, 0),
	}
}

// NewSessionID mints an opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Messages returns the transcript for the session, creating it with the
// model's system prompt on first use. The model only influences the system
// prompt of a brand-new transcript; an existing one is returned as is.
func (h *Histories) Messages(sessionID, model string) []llm.Message {
	if msgs, found := h.conversations.Get(sessionID); found {
		return msgs.([]llm.Message)
	}

	msgs := []llm.Message{
		{Role: constant.ChatMessageRoleSystem, Content: constant.SystemPromptFor(model)},
	}
	h.conversations.Set(sessionID, msgs, cache.NoExpiration)
	return msgs
}

// AppendTurn records a completed user/assistant exchange.
func (h *Histories) AppendTurn(sessionID, userText, assistantText string) {
	var msgs []llm.Message
	if cached, found := h.conversations.Get(sessionID); found {
		msgs = cached.([]llm.Message)
	}
	msgs = append(msgs,
		llm.Message{Role: constant.ChatMessageRoleUser, Content: userText},
		llm.Message{Role: constant.ChatMessageRoleAssistant, Content: assistantText},
	)
	h.conversations.Set(sessionID, msgs, cache.NoExpiration)
}

// Drop discards the session's transcript. Safe on unknown IDs.
func (h *Histories) Drop(sessionID string) {
	h.conversations.Delete(sessionID)
}

// Exists reports whether a transcript is held for the session.
func (h *Histories) Exists(sessionID string) bool {
	_, found := h.conversations.Get(sessionID)
	return found
}
