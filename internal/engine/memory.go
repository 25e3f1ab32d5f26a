package engine

import "sync"

// Exchange is one completed query/response pair in a conversation.
type Exchange struct {
	Query    string
	Response string
}

// Memory keeps per-conversation history in process memory. It is not
// persisted and not bounded; a restart clears all conversations.
type Memory struct {
	mu            sync.Mutex
	conversations map[string][]Exchange
}

func NewMemory() *Memory {
	return &Memory{conversations: make(map[string][]Exchange)}
}

func (m *Memory) Append(conversationID, query, response string) {
	if conversationID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversationID] = append(m.conversations[conversationID], Exchange{
		Query:    query,
		Response: response,
	})
}

// History returns a copy of the conversation's exchanges in order.
func (m *Memory) History(conversationID string) []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.conversations[conversationID]
	if len(stored) == 0 {
		return nil
	}
	out := make([]Exchange, len(stored))
	copy(out, stored)
	return out
}
