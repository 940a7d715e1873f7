package domain

import (
	"strings"
	"time"
)

// FrameType tags outbound chat frames
type FrameType string

const (
	FrameSystem    FrameType = "system"
	FrameUser      FrameType = "user"
	FrameTyping    FrameType = "typing"
	FrameAssistant FrameType = "assistant"
	FrameError     FrameType = "error"
)

// Frame is one outbound chat event.
type Frame struct {
	Type         FrameType `json:"type"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	Confidence   *float64  `json:"confidence,omitempty"`
	ContextCount *int      `json:"context_count,omitempty"`
	Data         any       `json:"data,omitempty"`
}

// NewFrame stamps a frame with the current time.
func NewFrame(t FrameType, userID, message string) *Frame {
	return &Frame{
		Type:      t,
		Message:   message,
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// WithAnswer attaches confidence and context count.
func (f *Frame) WithAnswer(confidence float64, contextCount int) *Frame {
	f.Confidence = &confidence
	f.ContextCount = &contextCount
	return f
}

// WithData attaches a payload.
func (f *Frame) WithData(data any) *Frame {
	f.Data = data
	return f
}

// InboundMessage is what clients send.
type InboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Command is a recognized control message.
type Command string

const (
	CommandNone    Command = ""
	CommandClear   Command = "/clear"
	CommandHistory Command = "/history"
	CommandUsers   Command = "/users"
)

// ParseCommand matches a trimmed message against the control commands, ignoring case.
func ParseCommand(message string) Command {
	switch Command(strings.ToLower(strings.TrimSpace(message))) {
	case CommandClear:
		return CommandClear
	case CommandHistory:
		return CommandHistory
	case CommandUsers:
		return CommandUsers
	}
	return CommandNone
}
