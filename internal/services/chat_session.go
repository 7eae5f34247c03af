package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"diningguide/internal/logger"
	"diningguide/internal/testutils"
	"diningguide/pkg/diningtypes"
)

// ChatSession is the conversation controller.
//
// States move Uninitialized -> Idle <-> AwaitingReply. An empty selection at
// activation leaves the session in the Empty display state with no log. The log
// is append-only and sequence numbers are contiguous from 0. At most one
// completion call is in flight; a failed call appends an assistant error message
// and returns the session to Idle.
type ChatSession struct {
	mu sync.Mutex

	id        string
	testMode  testutils.TestModeProvider
	provider  diningtypes.CompletionProvider
	timeout   time.Duration
	onMessage func(diningtypes.ChatMessage)

	state     diningtypes.ChatSessionState
	selection []diningtypes.FoodItem
	hall      string
	hasHall   bool
	messages  []diningtypes.ChatMessage
	lastErr   *diningtypes.CompletionError
}

// ChatSessionOption configures a ChatSession.
type ChatSessionOption func(*ChatSession)

// WithCompletionTimeout bounds each completion call. Zero means no bound.
func WithCompletionTimeout(timeout time.Duration) ChatSessionOption {
	return func(s *ChatSession) { s.timeout = timeout }
}

// WithTestMode makes message IDs and timestamps deterministic when tm reports test mode.
func WithTestMode(tm testutils.TestModeProvider) ChatSessionOption {
	return func(s *ChatSession) { s.testMode = tm }
}

// WithMessageListener registers fn to be called, outside the session lock, for every appended message.
func WithMessageListener(fn func(diningtypes.ChatMessage)) ChatSessionOption {
	return func(s *ChatSession) { s.onMessage = fn }
}

// NewChatSession creates an uninitialized session that sends turns to provider.
func NewChatSession(provider diningtypes.CompletionProvider, opts ...ChatSessionOption) *ChatSession {
	s := &ChatSession{
		provider: provider,
		state:    diningtypes.StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = testutils.GenerateSessionID(s.testMode)
	return s
}

// ID returns the session identifier.
func (s *ChatSession) ID() string {
	return s.id
}

// Activate seeds the conversation from selection.
// It is a no-op once the log holds messages. An empty selection moves the
// session to the Empty state without creating a log. Activate reports whether
// a seed message was appended.
func (s *ChatSession) Activate(selection []diningtypes.FoodItem) bool {
	s.mu.Lock()

	if len(s.messages) > 0 {
		s.mu.Unlock()
		return false
	}

	if len(selection) == 0 {
		s.transition(diningtypes.StateEmpty)
		s.selection = nil
		s.hall, s.hasHall = "", false
		s.mu.Unlock()
		return false
	}

	s.selection = make([]diningtypes.FoodItem, len(selection))
	copy(s.selection, selection)
	s.hall, s.hasHall = Recommend(s.selection)

	seed := s.appendLocked(diningtypes.RoleAssistant, SeedMessage(s.hall, s.hasHall))
	s.transition(diningtypes.StateIdle)
	s.mu.Unlock()

	logger.Debug("Chat session activated", "session", s.id, "hall", s.hall, "selected", len(selection))
	s.notify(seed)
	return true
}

// SendUserMessage appends a user turn and starts the completion call.
// Blank text, a pending reply, or an inactive session are rejected without
// touching the log. The returned channel yields the assistant message (reply or
// error explanation) once the call settles, then closes.
func (s *ChatSession) SendUserMessage(ctx context.Context, text string) (<-chan diningtypes.ChatMessage, error) {
	s.mu.Lock()

	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return nil, diningtypes.ErrBlankMessage
	}
	switch s.state {
	case diningtypes.StateIdle:
	case diningtypes.StateAwaitingReply:
		s.mu.Unlock()
		return nil, diningtypes.ErrReplyPending
	default:
		s.mu.Unlock()
		return nil, diningtypes.ErrSessionNotActive
	}

	userMsg := s.appendLocked(diningtypes.RoleUser, text)
	s.transition(diningtypes.StateAwaitingReply)

	history := make([]diningtypes.CompletionMessage, len(s.messages))
	for i, msg := range s.messages {
		history[i] = diningtypes.CompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	systemPrompt := BuildSystemPrompt(s.selection, s.hall, s.hasHall)
	provider := s.provider
	timeout := s.timeout
	s.mu.Unlock()

	s.notify(userMsg)

	settled := make(chan diningtypes.ChatMessage, 1)
	go func() {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		reply, err := complete(callCtx, provider, systemPrompt, history)
		msg := s.settle(reply, err)
		settled <- msg
		close(settled)
	}()

	return settled, nil
}

// Ask sends text and waits until the reply or error explanation is appended.
func (s *ChatSession) Ask(ctx context.Context, text string) (diningtypes.ChatMessage, error) {
	settled, err := s.SendUserMessage(ctx, text)
	if err != nil {
		return diningtypes.ChatMessage{}, err
	}
	return <-settled, nil
}

func complete(ctx context.Context, provider diningtypes.CompletionProvider, systemPrompt string, history []diningtypes.CompletionMessage) (reply string, err error) {
	if provider == nil {
		return "", &diningtypes.CompletionError{Message: "no completion provider configured"}
	}
	defer func() {
		if r := recover(); r != nil {
			err = diningtypes.NewCompletionError(provider.GetProviderName(), fmt.Errorf("provider panic: %v", r))
		}
	}()
	reply, err = provider.Complete(ctx, systemPrompt, history)
	if err != nil {
		return "", diningtypes.AsCompletionError(err)
	}
	return reply, nil
}

// settle applies the completion outcome and returns the appended assistant message.
func (s *ChatSession) settle(reply string, err error) diningtypes.ChatMessage {
	s.mu.Lock()
	var msg diningtypes.ChatMessage
	if err != nil {
		s.lastErr = diningtypes.AsCompletionError(err)
		msg = s.appendLocked(diningtypes.RoleAssistant, ErrorMessage(err))
	} else {
		s.lastErr = nil
		msg = s.appendLocked(diningtypes.RoleAssistant, reply)
	}
	s.transition(diningtypes.StateIdle)
	s.mu.Unlock()

	if err != nil {
		logger.Warn("Completion failed", "session", s.id, "error", err)
	}
	s.notify(msg)
	return msg
}

func (s *ChatSession) appendLocked(role diningtypes.Role, content string) diningtypes.ChatMessage {
	msg := diningtypes.ChatMessage{
		ID:        testutils.GenerateUUID(s.testMode),
		Sequence:  len(s.messages),
		Role:      role,
		Content:   content,
		Timestamp: testutils.GetCurrentTime(s.testMode),
	}
	s.messages = append(s.messages, msg)
	return msg
}

func (s *ChatSession) transition(to diningtypes.ChatSessionState) {
	if s.state == to {
		return
	}
	logger.StateTransition(s.id, s.state.String(), to.String())
	s.state = to
}

func (s *ChatSession) notify(msg diningtypes.ChatMessage) {
	if s.onMessage != nil {
		s.onMessage(msg)
	}
}

// State returns the current state.
func (s *ChatSession) State() diningtypes.ChatSessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the log.
func (s *ChatSession) Messages() []diningtypes.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]diningtypes.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Recommendation returns the hall chosen at activation.
func (s *ChatSession) Recommendation() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hall, s.hasHall
}

// Selection returns the foods captured at activation.
func (s *ChatSession) Selection() []diningtypes.FoodItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]diningtypes.FoodItem, len(s.selection))
	copy(out, s.selection)
	return out
}

// LastError returns the failure of the most recent turn, or nil if it succeeded.
func (s *ChatSession) LastError() *diningtypes.CompletionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Transcript returns an exportable snapshot of the conversation.
func (s *ChatSession) Transcript() diningtypes.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := diningtypes.Transcript{
		SessionID:      s.id,
		Recommendation: s.hall,
		Selection:      make([]diningtypes.FoodItem, len(s.selection)),
		Messages:       make([]diningtypes.ChatMessage, len(s.messages)),
		ExportedAt:     testutils.GetCurrentTime(s.testMode),
	}
	copy(t.Selection, s.selection)
	copy(t.Messages, s.messages)
	return t
}
