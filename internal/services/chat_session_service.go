package services

import (
	"fmt"
	"sync"
	"time"

	diningcontext "diningguide/internal/context"
	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// ChatSessionService owns the current conversation for the browsing session.
// The completion provider is resolved from configuration through the client factory.
type ChatSessionService struct {
	initialized bool

	mu        sync.Mutex
	session   *ChatSession
	provider  diningtypes.CompletionProvider
	timeout   time.Duration
	listeners []func(diningtypes.ChatMessage)
}

// NewChatSessionService creates a new ChatSessionService instance.
func NewChatSessionService() *ChatSessionService {
	return &ChatSessionService{}
}

// Name returns the service name "chat_session" for registration.
func (c *ChatSessionService) Name() string {
	return "chat_session"
}

// Initialize resolves the completion provider unless one was set explicitly.
// A missing credential is not an error here; it surfaces in-chat on the first turn.
func (c *ChatSessionService) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	if config, err := LookupService[*ConfigurationService]("configuration"); err == nil {
		c.timeout = config.GetDuration("DINING_COMPLETION_TIMEOUT", 0)
	}

	if c.provider == nil {
		factory, err := LookupService[*ClientFactoryService]("client_factory")
		if err != nil {
			return fmt.Errorf("client factory unavailable: %w", err)
		}
		provider, err := factory.GetConfiguredClient()
		if err != nil {
			return err
		}
		c.provider = provider
	}

	logger.ServiceOperation("chat_session", "initialize", "provider", c.provider.GetProviderName())
	c.initialized = true
	return nil
}

// SetProvider replaces the completion provider used by new sessions.
func (c *ChatSessionService) SetProvider(provider diningtypes.CompletionProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = provider
}

// Provider returns the completion provider used by new sessions.
func (c *ChatSessionService) Provider() diningtypes.CompletionProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// OnMessage registers fn for every message appended to future sessions.
func (c *ChatSessionService) OnMessage(fn func(diningtypes.ChatMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Current returns the active session, creating one on first use.
func (c *ChatSessionService) Current() (*ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, fmt.Errorf("chat session service not initialized")
	}
	if c.session == nil {
		c.session = c.newSessionLocked()
	}
	return c.session, nil
}

// Reset discards the current conversation. It fails while a reply is pending.
func (c *ChatSessionService) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return fmt.Errorf("chat session service not initialized")
	}
	if c.session != nil && c.session.State() == diningtypes.StateAwaitingReply {
		return diningtypes.ErrReplyPending
	}
	c.session = nil
	return nil
}

func (c *ChatSessionService) newSessionLocked() *ChatSession {
	listeners := append([]func(diningtypes.ChatMessage){}, c.listeners...)
	return NewChatSession(c.provider,
		WithCompletionTimeout(c.timeout),
		WithTestMode(diningcontext.GetGlobalContext()),
		WithMessageListener(func(msg diningtypes.ChatMessage) {
			for _, fn := range listeners {
				fn(msg)
			}
		}),
	)
}
