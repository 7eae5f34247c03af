// Package diningtypes defines session and conversation types for the dining hall guide.
// This file contains the append-only chat log entries and the session state machine states.
package diningtypes

import (
	"errors"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks messages typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks seed, reply, and error-explanation messages.
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single entry in the append-only conversation log.
// Sequence equals the message position in the log and starts at 0.
type ChatMessage struct {
	ID        string    `json:"id" yaml:"id"`
	Sequence  int       `json:"sequence" yaml:"sequence"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ChatSessionState is the state of the conversation controller.
type ChatSessionState int

const (
	// StateUninitialized is the state before any activation.
	StateUninitialized ChatSessionState = iota
	// StateEmpty is the display state entered when activation sees no selected foods.
	StateEmpty
	// StateIdle accepts user turns. A session whose last turn failed is still Idle.
	StateIdle
	// StateAwaitingReply means exactly one completion call is in flight.
	StateAwaitingReply
)

// String returns the display name of the state.
func (s ChatSessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEmpty:
		return "empty"
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// Rejections returned by the chat session. None of them modify the log or the state.
var (
	ErrBlankMessage     = errors.New("message is blank")
	ErrReplyPending     = errors.New("a reply is still pending")
	ErrSessionNotActive = errors.New("chat session is not active")
)

// Transcript is an exportable snapshot of a conversation.
type Transcript struct {
	SessionID      string        `json:"session_id" yaml:"session_id"`
	Recommendation string        `json:"recommendation" yaml:"recommendation"`
	Selection      []FoodItem    `json:"selection" yaml:"selection"`
	Messages       []ChatMessage `json:"messages" yaml:"messages"`
	ExportedAt     time.Time     `json:"exported_at" yaml:"exported_at"`
}
