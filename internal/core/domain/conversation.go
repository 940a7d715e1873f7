package domain

import "time"

// DefaultMemoryWindow is the number of turns kept per user.
const DefaultMemoryWindow = 10

// Role identifies who produced a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single utterance inside a turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationTurn is one question and its answer. Never mutated after creation.
type ConversationTurn struct {
	User      Message   `json:"user"`
	Assistant Message   `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// NewConversationTurn pairs a question with its answer.
func NewConversationTurn(userText, assistantText string) ConversationTurn {
	return ConversationTurn{
		User:      Message{Role: RoleUser, Content: userText},
		Assistant: Message{Role: RoleAssistant, Content: assistantText},
		Timestamp: time.Now(),
	}
}

// Exchange is the flattened view of a turn returned by history endpoints.
type Exchange struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// UserSession holds the bounded conversation of one user.
type UserSession struct {
	UserID         string             `json:"user_id"`
	History        []ConversationTurn `json:"history"`
	CreatedAt      time.Time          `json:"created_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
	MessageCount   int                `json:"message_count"`
}

// NewUserSession creates an empty session
func NewUserSession(userID string) *UserSession {
	now := time.Now()
	return &UserSession{
		UserID:         userID,
		History:        []ConversationTurn{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Append adds a turn and evicts the oldest turns beyond window.
func (s *UserSession) Append(turn ConversationTurn, window int) {
	s.History = append(s.History, turn)
	if window > 0 && len(s.History) > window {
		trimmed := make([]ConversationTurn, window)
		copy(trimmed, s.History[len(s.History)-window:])
		s.History = trimmed
	}
	s.MessageCount++
	s.LastActivityAt = turn.Timestamp
}

// Clear empties the history and message counter. CreatedAt is kept.
func (s *UserSession) Clear() {
	s.History = []ConversationTurn{}
	s.MessageCount = 0
	s.LastActivityAt = time.Now()
}

// Recent returns up to n of the newest turns, oldest first.
func (s *UserSession) Recent(n int) []ConversationTurn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if n > len(s.History) {
		n = len(s.History)
	}
	out := make([]ConversationTurn, n)
	copy(out, s.History[len(s.History)-n:])
	return out
}

// Exchanges returns the history as flat user/assistant pairs.
func (s *UserSession) Exchanges() []Exchange {
	out := make([]Exchange, len(s.History))
	for i, t := range s.History {
		out[i] = Exchange{User: t.User.Content, Assistant: t.Assistant.Content, Timestamp: t.Timestamp}
	}
	return out
}

// Clone returns a deep copy safe to hand outside the owning lock.
func (s *UserSession) Clone() *UserSession {
	c := *s
	c.History = make([]ConversationTurn, len(s.History))
	copy(c.History, s.History)
	return &c
}
