package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/logger"
)

// Session is one live subscriber connection. A websocket connection
// satisfies it directly.
type Session interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Message is the envelope every subscriber receives.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	MessageGraphUpdate   = "graph_update"
	MessageConversation  = "conversation_update"
	MessageSystemMessage = "system_message"
)

// Hub fans graph deltas out to the sessions subscribed to a user.
// Delivery is best effort and at most once: a failed write drops the
// session, it never blocks or fails the caller. Writes to one session
// are serialized; a websocket connection allows a single concurrent
// writer and publishers run on arbitrary goroutines.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Session]*sync.Mutex
	logger   *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		sessions: map[string]map[Session]*sync.Mutex{},
		logger:   logger.Get(),
	}
}

// Subscribe registers a session for a user's deltas.
func (h *Hub) Subscribe(userID string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = map[Session]*sync.Mutex{}
	}
	h.sessions[userID][s] = &sync.Mutex{}
	h.logger.Debug("session subscribed", zap.String("user_id", userID))
}

// Unsubscribe removes a session. Safe to call for sessions that were
// never subscribed or were already dropped.
func (h *Hub) Unsubscribe(userID string, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(userID, s)
}

// Publish delivers a graph delta to every session of one user.
func (h *Hub) Publish(userID string, delta model.GraphDelta) {
	h.send(userID, Message{Type: MessageGraphUpdate, Payload: delta})
}

// Notify delivers a conversation update to one user's sessions.
func (h *Hub) Notify(userID string, payload interface{}) {
	h.send(userID, Message{Type: MessageConversation, Payload: payload})
}

// System delivers an operational notice to every connected session.
func (h *Hub) System(text string) {
	h.mu.RLock()
	users := make([]string, 0, len(h.sessions))
	for userID := range h.sessions {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	for _, userID := range users {
		h.send(userID, Message{Type: MessageSystemMessage, Payload: map[string]string{"text": text}})
	}
}

// SessionCount reports how many sessions a user currently holds.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

type target struct {
	session Session
	writeMu *sync.Mutex
}

func (h *Hub) send(userID string, msg Message) {
	h.mu.RLock()
	targets := make([]target, 0, len(h.sessions[userID]))
	for s, mu := range h.sessions[userID] {
		targets = append(targets, target{session: s, writeMu: mu})
	}
	h.mu.RUnlock()

	var failed []Session
	for _, t := range targets {
		t.writeMu.Lock()
		err := t.session.WriteJSON(msg)
		t.writeMu.Unlock()
		if err != nil {
			h.logger.Warn("dropping subscriber after failed write",
				zap.String("user_id", userID), zap.Error(err))
			failed = append(failed, t.session)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, s := range failed {
			h.remove(userID, s)
		}
		h.mu.Unlock()
		for _, s := range failed {
			_ = s.Close()
		}
	}
}

// remove expects h.mu held for writing.
func (h *Hub) remove(userID string, s Session) {
	if set, ok := h.sessions[userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, userID)
		}
	}
}
