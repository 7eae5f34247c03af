package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// AnthropicClient implements the CompletionProvider interface for Anthropic's Messages API.
// The SDK client is created lazily on first use so a missing key surfaces as a CompletionError.
type AnthropicClient struct {
	apiKey  string
	options CompletionOptions
	baseURL string

	mu     sync.Mutex
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client with lazy initialization.
func NewAnthropicClient(apiKey string, options CompletionOptions) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		options: options.withDefaults("anthropic"),
	}
}

// GetProviderName returns the provider name for this client.
func (c *AnthropicClient) GetProviderName() string {
	return "anthropic"
}

// IsConfigured returns true if the client has a valid API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SetBaseURL points the client at a different Messages API endpoint.
func (c *AnthropicClient) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
	c.client = nil
}

func (c *AnthropicClient) initializeClientIfNeeded() (*anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic %w", diningtypes.ErrMissingAPIKey)
	}

	opts := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := anthropic.NewClient(opts...)
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", "anthropic")
	return c.client, nil
}

// Complete sends the system prompt and history to the Messages API and returns the reply text.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt string, history []diningtypes.CompletionMessage) (string, error) {
	client, err := c.initializeClientIfNeeded()
	if err != nil {
		return "", &diningtypes.CompletionError{Provider: "anthropic", Message: err.Error(), Err: err}
	}

	messages, greeting := c.convertMessagesToAnthropic(history)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.options.Model),
		MaxTokens: int64(c.options.MaxTokens),
		Messages:  messages,
	}

	if greeting != "" {
		systemPrompt = strings.TrimSpace(systemPrompt + "\n\nYou already greeted the user with:\n" + greeting)
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	logger.Debug("Sending Anthropic request", "model", c.options.Model, "message_count", len(messages))
	message, err := client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("Anthropic request failed", "error", err)
		return "", diningtypes.NewCompletionError("anthropic", err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		content.WriteString(block.Text)
	}
	if content.Len() == 0 {
		return "", &diningtypes.CompletionError{Provider: "anthropic", Message: "empty response content"}
	}

	logger.Debug("Anthropic response received", "content_length", content.Len())
	return content.String(), nil
}

// convertMessagesToAnthropic maps the history to Anthropic message params.
// The Messages API expects the conversation to open with a user turn, so
// assistant turns before the first user turn are returned separately and
// folded into the system prompt.
func (c *AnthropicClient) convertMessagesToAnthropic(history []diningtypes.CompletionMessage) ([]anthropic.MessageParam, string) {
	messages := make([]anthropic.MessageParam, 0, len(history))
	var leading []string

	for _, msg := range history {
		switch msg.Role {
		case diningtypes.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case diningtypes.RoleAssistant:
			if len(messages) == 0 {
				leading = append(leading, msg.Content)
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return messages, strings.Join(leading, "\n\n")
}
